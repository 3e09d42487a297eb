package memory

import (
	"context"
	"sync"
	"time"
)

const sweepThreshold = 1024

// AttemptLimiter is a per-process fixed window counter. It backs the verify
// attempt cap when Redis is not configured, so limits are per replica.
type AttemptLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	hits   map[string]attemptWindow
}

type attemptWindow struct {
	count   int
	resetAt time.Time
}

func NewAttemptLimiter(limit int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		hits:   make(map[string]attemptWindow),
	}
}

func (l *AttemptLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.hits) > sweepThreshold {
		for k, w := range l.hits {
			if !now.Before(w.resetAt) {
				delete(l.hits, k)
			}
		}
	}

	w, ok := l.hits[key]
	if !ok || !now.Before(w.resetAt) {
		w = attemptWindow{resetAt: now.Add(l.window)}
	}
	w.count++
	l.hits[key] = w
	return w.count <= l.limit, nil
}
