package auth

import (
	"context"
	"strings"

	"github.com/catboard/auth-service/internal/domain"
)

// Refresh rotates a refresh token and issues a new access token.
// Rotation rule: old refresh token becomes invalid once used successfully.
// A failed refresh never deletes anything.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (AuthTokens, domain.User, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return AuthTokens{}, domain.User{}, domain.ErrMissingToken()
	}

	stored, u, err := s.tokens.FindByValue(ctx, refreshToken)
	if err != nil {
		return AuthTokens{}, domain.User{}, err
	}

	rec := s.auditor(ctx, "auth.refresh", map[string]string{"user_id": u.ID})

	if stored.Expired(s.clock.Now()) {
		err := domain.ErrInvalidOrExpiredToken("expired")
		rec("error", err, nil)
		return AuthTokens{}, domain.User{}, err
	}

	if u.Blocked {
		err := domain.ErrAccountLocked()
		rec("error", err, nil)
		return AuthTokens{}, domain.User{}, err
	}

	access, err := s.signAccess(u)
	if err != nil {
		return AuthTokens{}, domain.User{}, err
	}

	next, err := s.newRefreshToken(u.ID)
	if err != nil {
		return AuthTokens{}, domain.User{}, err
	}

	// Losing a concurrent rotation surfaces here as invalid_or_expired_token.
	if err := s.tokens.Rotate(ctx, refreshToken, next); err != nil {
		rec("error", err, nil)
		return AuthTokens{}, domain.User{}, err
	}

	rec("success", nil, nil)
	return s.tokensFor(access, next), u, nil
}
