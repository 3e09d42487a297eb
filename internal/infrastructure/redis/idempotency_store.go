package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	keyPrefixIdem         = "catboard:mailer:sent:"
	defaultIdempotencyTTL = 24 * time.Hour
)

// IdempotencyStore remembers which notifications the mailer already sent so
// redelivered messages do not produce duplicate emails.
type IdempotencyStore struct {
	rdb *goredis.Client
}

func NewIdempotencyStore(c *Client) *IdempotencyStore {
	return &IdempotencyStore{rdb: c.rdb}
}

func (s *IdempotencyStore) Seen(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("idempotency: empty key")
	}
	n, err := s.rdb.Exists(ctx, keyPrefixIdem+key).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *IdempotencyStore) MarkSent(ctx context.Context, key string, ttl time.Duration) error {
	if key == "" {
		return errors.New("idempotency: empty key")
	}
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return s.rdb.Set(ctx, keyPrefixIdem+key, "1", ttl).Err()
}
