package database

import (
	"context"
	"fmt"
	"time"

	"impact_chat/pkg/logger"

	"go.uber.org/zap"
)

// Retry connect retry setting
type Retry struct {
	Count    int
	Interval time.Duration
}

// PebbleRetry another process may hold the store lock for a moment
var PebbleRetry = Retry{Count: 5, Interval: 200 * time.Millisecond}

// connectWithRetry call connect until it succeeds, Count runs out or ctx is done
func connectWithRetry[T any](ctx context.Context, name string, r Retry, connect func() (T, error)) (T, error) {
	var (
		out T
		err error
	)
	if r.Count < 1 {
		r.Count = 1
	}

	for attempt := 1; attempt <= r.Count; attempt++ {
		out, err = connect()
		if err == nil {
			return out, nil
		}
		if attempt == r.Count {
			break
		}

		logger.Log.Warn(
			"Failed to connect to "+name+", retrying...",
			zap.Int("attempt", attempt),
			zap.Int("max", r.Count),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-time.After(r.Interval):
		}
	}
	return out, fmt.Errorf("%s: giving up after %d attempts: %w", name, r.Count, err)
}
