package dispatcher

import (
	"context"
	"errors"
	"testing"

	"github.com/local/readorder/internal/ai"
)

func TestIsTransientError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limit", &RateLimitError{Provider: "openai", Model: "m", Reason: "timeout"}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"http 503", &HTTPError{StatusCode: 503, Service: "openai"}, true},
		{"http 429", &HTTPError{StatusCode: 429, Service: "openai"}, true},
		{"http 401", &HTTPError{StatusCode: 401, Service: "openai"}, false},
		{"content refused", ai.ErrContentRefused, true},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"plain error", errors.New("something odd"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := isTransientError(c.err); got != c.want {
				t.Errorf("isTransientError(%v) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}

func TestIsFatalError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", &ValidationError{Message: "missing image"}, true},
		{"http 400", &HTTPError{StatusCode: 400, Service: "openai"}, true},
		{"http 429", &HTTPError{StatusCode: 429, Service: "openai"}, false},
		{"http 500", &HTTPError{StatusCode: 500, Service: "openai"}, false},
		{"bad request text", errors.New("upstream said: bad request"), true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := isFatalError(c.err); got != c.want {
				t.Errorf("isFatalError(%v) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}
