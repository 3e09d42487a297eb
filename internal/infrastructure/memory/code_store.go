package memory

import (
	"context"

	"github.com/catboard/auth-service/internal/domain"
)

type CodeStore struct {
	s *Store
}

func (c *CodeStore) Create(ctx context.Context, vc domain.VerificationCode) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	if _, ok := c.s.users[vc.UserID]; !ok {
		return domain.ErrUserNotFound()
	}
	c.s.codes[vc.UserID] = append(c.s.codes[vc.UserID], vc)
	return nil
}

// Find returns the latest-expiring exact match.
func (c *CodeStore) Find(ctx context.Context, userID, code string) (domain.VerificationCode, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	var (
		best  domain.VerificationCode
		found bool
	)
	for _, vc := range c.s.codes[userID] {
		if vc.Code != code {
			continue
		}
		if !found || vc.ExpiresAt.After(best.ExpiresAt) {
			best, found = vc, true
		}
	}
	if !found {
		return domain.VerificationCode{}, domain.ErrInvalidOrExpiredCode()
	}
	return best, nil
}

func (c *CodeStore) DeleteAllForUser(ctx context.Context, userID string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()

	delete(c.s.codes, userID)
	return nil
}

// Count is used by tests and the dev console to inspect outstanding codes.
func (c *CodeStore) Count(userID string) int {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return len(c.s.codes[userID])
}
