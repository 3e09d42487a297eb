package redis

import (
	"context"
	"time"
)

// AttemptLimiter adapts the fixed window limiter to a per-account attempt
// cap. Counts are shared by every API replica.
type AttemptLimiter struct {
	fw     *FixedWindowLimiter
	limit  int
	window time.Duration
}

func NewAttemptLimiter(fw *FixedWindowLimiter, limit int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{fw: fw, limit: limit, window: window}
}

func (l *AttemptLimiter) Allow(ctx context.Context, key string) (bool, error) {
	d, err := l.fw.AllowFixedWindow(ctx, Key("attempts", key), l.limit, l.window)
	if err != nil {
		return false, err
	}
	return d.Allowed, nil
}
