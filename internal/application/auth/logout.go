package auth

import (
	"context"
	"strings"

	"github.com/catboard/auth-service/internal/domain"
)

// Logout revokes the current refresh token (single session logout).
// A missing, unknown or already-removed token is a no-op.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil
	}

	err := s.tokens.Remove(ctx, refreshToken)
	if err != nil && !domain.Is(err, "invalid_or_expired_token") {
		return err
	}
	return nil
}
