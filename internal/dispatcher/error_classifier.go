package dispatcher

import (
	"context"
	"errors"
	"strings"

	"github.com/local/readorder/internal/ai"
)

var transientFragments = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"network",
	"eof",
}

var fatalFragments = []string{
	"invalid request",
	"validation failed",
	"bad request",
	"malformed",
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}

// isTransientError reports whether a retry on another model or provider
// could plausibly succeed.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if ai.IsContentRefused(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == 429 ||
			(httpErr.StatusCode >= 500 && httpErr.StatusCode < 600)
	}
	return containsAny(strings.ToLower(err.Error()), transientFragments)
}

// isFatalError reports whether no retry should happen at all.
func isFatalError(err error) bool {
	if err == nil {
		return false
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 &&
			httpErr.StatusCode != 429
	}
	return containsAny(strings.ToLower(err.Error()), fatalFragments)
}
