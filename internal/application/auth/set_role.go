package auth

import (
	"context"
	"strings"

	"github.com/catboard/auth-service/internal/domain"
)

func (s *Service) SetUserRole(
	ctx context.Context,
	actorID, actorRole, targetUserID, newRole string,
) error {
	actorID = strings.TrimSpace(actorID)
	targetUserID = strings.TrimSpace(targetUserID)
	newRole = strings.TrimSpace(newRole)

	audit := s.auditor(ctx, "admin.set_user_role", map[string]string{
		"actor_id":   actorID,
		"actor_role": actorRole,
		"target_id":  targetUserID,
	})

	// --- input validation ---
	if targetUserID == "" {
		err := domain.ErrMissingField("user_id")
		audit("error", err, nil)
		return err
	}

	// --- RBAC: admin only ---
	if err := requireAtLeast(actorRole, domain.RoleAdministrator); err != nil {
		audit("error", err, map[string]string{"required_role": string(domain.RoleAdministrator)})
		return err
	}

	// a non-admin learns nothing about which role names exist
	if newRole == "" {
		err := domain.ErrMissingField("role")
		audit("error", err, nil)
		return err
	}
	role, err := domain.ParseRole(newRole)
	if err != nil {
		audit("error", err, nil)
		return err
	}

	// --- hard rule: cannot modify self ---
	if actorID != "" && actorID == targetUserID {
		err := domain.ErrCannotAffectSelf()
		audit("error", err, nil)
		return err
	}

	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		audit("error", err, nil)
		return err
	}

	// --- protect last admin ---
	if target.Role == domain.RoleAdministrator && role != domain.RoleAdministrator {
		cnt, err := s.users.CountByRole(ctx, domain.RoleAdministrator)
		if err != nil {
			audit("error", err, nil)
			return err
		}
		if cnt <= 1 {
			err := domain.ErrLastAdminProtected()
			audit("error", err, nil)
			return err
		}
	}

	oldRole := target.Role
	target.Role = role
	target.UpdatedAt = s.clock.Now()
	if _, err := s.users.Update(ctx, target); err != nil {
		audit("error", err, nil)
		return err
	}

	audit("success", nil, map[string]string{
		"old_role": string(oldRole),
		"new_role": string(role),
	})
	return nil
}
