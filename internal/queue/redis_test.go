package queue

import (
	"errors"
	"testing"
)

func TestIsBusyGroupErr(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busygroup reply", errors.New("BUSYGROUP Consumer Group name already exists"), true},
		{"lowercase reply", errors.New("busygroup consumer group name already exists"), true},
		{"unrelated error", errors.New("connection refused"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := isBusyGroupErr(c.err); got != c.want {
				t.Errorf("isBusyGroupErr(%v) = %v, want %v", c.err, got, c.want)
			}
		})
	}
}
