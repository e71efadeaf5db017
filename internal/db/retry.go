package db

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Backoff returns the wait before retry number attempt (0-based): base
// doubled per attempt, capped at max, plus up to 250ms of jitter.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > max || delay <= 0 {
		delay = max
	}

	return delay + time.Duration(rand.Intn(250))*time.Millisecond
}

// ConnectWithRetry opens a pool, retrying while the database is still coming
// up. It gives up after attempts tries or when ctx is done.
func ConnectWithRetry(ctx context.Context, log *slog.Logger, dbURL string, maxConns int32, attempts int) (*pgxpool.Pool, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		pool, err := NewPool(ctx, dbURL, maxConns)
		if err == nil {
			return pool, nil
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}

		wait := Backoff(attempt, 500*time.Millisecond, 10*time.Second)
		log.Warn("database not ready, retrying", "attempt", attempt+1, "wait", wait, "err", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("connect after %d attempts: %w", attempts, lastErr)
}
