package auth

import (
	"context"
	"strings"

	"github.com/catboard/auth-service/internal/domain"
)

// DeleteUser removes an account. Its refresh tokens and verification codes go
// with it (the store cascades).
func (s *Service) DeleteUser(ctx context.Context, actorID, actorRole, targetUserID string) error {
	actorID = strings.TrimSpace(actorID)
	targetUserID = strings.TrimSpace(targetUserID)

	audit := s.auditor(ctx, "admin.delete_user", map[string]string{
		"actor_id":   actorID,
		"actor_role": actorRole,
		"target_id":  targetUserID,
	})

	if targetUserID == "" {
		err := domain.ErrMissingField("user_id")
		audit("error", err, nil)
		return err
	}
	if err := requireAtLeast(actorRole, domain.RoleAdministrator); err != nil {
		audit("error", err, nil)
		return err
	}
	if actorID != "" && actorID == targetUserID {
		err := domain.ErrCannotAffectSelf()
		audit("error", err, nil)
		return err
	}

	if err := s.users.Delete(ctx, targetUserID); err != nil {
		audit("error", err, nil)
		return err
	}

	audit("success", nil, nil)
	return nil
}
