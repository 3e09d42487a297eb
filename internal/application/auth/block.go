package auth

import (
	"context"
	"strings"

	"github.com/catboard/auth-service/internal/domain"
)

// BlockUser locks a target account. Blocked users cannot log in or refresh.
// Hard rules enforced here (not in handlers):
// - Administrator only
// - Nobody can block themselves
func (s *Service) BlockUser(ctx context.Context, actorID, actorRole, targetUserID string) error {
	return s.setBlocked(ctx, "admin.block_user", actorID, actorRole, targetUserID, true)
}

// UnblockUser lifts a block. Administrator only.
func (s *Service) UnblockUser(ctx context.Context, actorID, actorRole, targetUserID string) error {
	return s.setBlocked(ctx, "admin.unblock_user", actorID, actorRole, targetUserID, false)
}

func (s *Service) setBlocked(ctx context.Context, action, actorID, actorRole, targetUserID string, blocked bool) error {
	actorID = strings.TrimSpace(actorID)
	targetUserID = strings.TrimSpace(targetUserID)

	audit := s.auditor(ctx, action, map[string]string{
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
		audit("error", err, map[string]string{"required_role": string(domain.RoleAdministrator)})
		return err
	}

	if blocked && actorID != "" && actorID == targetUserID {
		err := domain.ErrCannotAffectSelf()
		audit("error", err, nil)
		return err
	}

	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		audit("error", err, nil)
		return err
	}

	if target.Blocked != blocked {
		target.Blocked = blocked
		target.UpdatedAt = s.clock.Now()
		if _, err := s.users.Update(ctx, target); err != nil {
			audit("error", err, nil)
			return err
		}
	}

	audit("success", nil, map[string]string{"target_role": string(target.Role)})
	return nil
}
