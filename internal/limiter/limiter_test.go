package limiter

import (
	"testing"
	"time"
)

func TestBackoffFor(t *testing.T) {
	base := 30 * time.Second
	max := 5 * time.Minute
	cases := []struct {
		name     string
		attempts int64
		want     time.Duration
	}{
		{"first trip", 1, 30 * time.Second},
		{"second trip", 2, time.Minute},
		{"fourth trip", 4, 4 * time.Minute},
		{"saturates at max", 5, max},
		{"well past max", 12, max},
		{"shift width exceeded", 80, max},
		{"zero attempts treated as first", 0, 30 * time.Second},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := backoffFor(c.attempts, base, max)
			if got != c.want {
				t.Errorf("backoffFor(%d) = %v, want %v", c.attempts, got, c.want)
			}
			if got <= 0 {
				t.Errorf("backoffFor(%d) = %v, cooldown must stay positive", c.attempts, got)
			}
		})
	}
}
