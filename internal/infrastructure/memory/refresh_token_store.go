package memory

import (
	"context"

	"github.com/catboard/auth-service/internal/domain"
)

type RefreshTokenStore struct {
	s *Store
}

func (r *RefreshTokenStore) Add(ctx context.Context, t domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[t.UserID]; !ok {
		return domain.ErrUserNotFound()
	}
	r.s.tokens[t.Token] = t
	return nil
}

func (r *RefreshTokenStore) FindByValue(ctx context.Context, token string) (domain.RefreshToken, domain.User, error) {
	if token == "" {
		return domain.RefreshToken{}, domain.User{}, domain.ErrMissingToken()
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[token]
	if !ok {
		return domain.RefreshToken{}, domain.User{}, domain.ErrInvalidOrExpiredToken("unknown")
	}
	return t, r.s.users[t.UserID], nil
}

func (r *RefreshTokenStore) Remove(ctx context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tokens[token]; !ok {
		return domain.ErrInvalidOrExpiredToken("unknown")
	}
	delete(r.s.tokens, token)
	return nil
}

// Rotate swaps oldToken for next under the store lock, so only one caller
// can consume a given value.
func (r *RefreshTokenStore) Rotate(ctx context.Context, oldToken string, next domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tokens[oldToken]; !ok {
		return domain.ErrInvalidOrExpiredToken("rotated")
	}
	if _, ok := r.s.users[next.UserID]; !ok {
		return domain.ErrUserNotFound()
	}
	delete(r.s.tokens, oldToken)
	r.s.tokens[next.Token] = next
	return nil
}
