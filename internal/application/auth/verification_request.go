package auth

import (
	"context"
	"strings"

	"github.com/catboard/auth-service/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type UserPage struct {
	Items    []domain.User
	Total    int
	Page     int
	PageSize int
}

// RequestVerification flags the caller's account for moderator review.
func (s *Service) RequestVerification(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	audit := s.auditor(ctx, "user.request_verification", map[string]string{"user_id": userID})

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		audit("error", err, nil)
		return err
	}

	// Already at or above VerifiedUser: nothing to review.
	if domain.RoleRank(u.Role) >= domain.RoleRank(domain.RoleVerifiedUser) {
		audit("noop", nil, map[string]string{"role": string(u.Role)})
		return nil
	}

	if !u.VerificationRequested {
		u.VerificationRequested = true
		u.UpdatedAt = s.clock.Now()
		if _, err := s.users.Update(ctx, u); err != nil {
			audit("error", err, nil)
			return err
		}
	}

	audit("success", nil, nil)
	return nil
}

// ListVerificationRequests pages through accounts awaiting review. Moderator or above.
func (s *Service) ListVerificationRequests(ctx context.Context, actorRole string, page, pageSize int) (UserPage, error) {
	if err := requireAtLeast(actorRole, domain.RoleModerator); err != nil {
		return UserPage{}, err
	}

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	items, total, err := s.users.ListVerificationRequests(ctx, pageSize, (page-1)*pageSize)
	if err != nil {
		return UserPage{}, err
	}
	return UserPage{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ReviewVerification resolves a pending request. Approval promotes the account
// to VerifiedUser unless it already holds a higher role.
func (s *Service) ReviewVerification(ctx context.Context, actorID, actorRole, targetUserID string, approved bool) error {
	actorID = strings.TrimSpace(actorID)
	targetUserID = strings.TrimSpace(targetUserID)

	audit := s.auditor(ctx, "mod.review_verification", map[string]string{
		"actor_id":   actorID,
		"actor_role": actorRole,
		"target_id":  targetUserID,
	})

	if targetUserID == "" {
		err := domain.ErrMissingField("user_id")
		audit("error", err, nil)
		return err
	}

	if err := requireAtLeast(actorRole, domain.RoleModerator); err != nil {
		audit("error", err, map[string]string{"required_role": string(domain.RoleModerator)})
		return err
	}

	target, err := s.users.GetByID(ctx, targetUserID)
	if err != nil {
		audit("error", err, nil)
		return err
	}

	target.VerificationRequested = false
	if approved && domain.RoleRank(target.Role) < domain.RoleRank(domain.RoleVerifiedUser) {
		target.Role = domain.RoleVerifiedUser
	}
	target.UpdatedAt = s.clock.Now()

	if _, err := s.users.Update(ctx, target); err != nil {
		audit("error", err, nil)
		return err
	}

	result := "rejected"
	if approved {
		result = "approved"
	}
	audit("success", nil, map[string]string{"decision": result, "role": string(target.Role)})
	return nil
}
