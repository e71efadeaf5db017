package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	const jitter = 250 * time.Millisecond
	base, max := 500*time.Millisecond, 10*time.Second

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 500 * time.Millisecond},
		{attempt: 1, want: time.Second},
		{attempt: 3, want: 4 * time.Second},
		{attempt: 10, want: max},
		{attempt: 200, want: max},
	}

	for _, tt := range tests {
		got := Backoff(tt.attempt, base, max)
		assert.GreaterOrEqual(t, got, tt.want, "attempt %d", tt.attempt)
		assert.Less(t, got, tt.want+jitter, "attempt %d", tt.attempt)
	}
}
