package auth

import (
	"context"
	"strings"

	"github.com/catboard/auth-service/internal/domain"
)

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	if code := domain.CodeOf(err); code != "" {
		return code
	}
	return "non_domain_error"
}

// auditor returns a recorder for one action; base fields are copied into every entry.
func (s *Service) auditor(ctx context.Context, action string, base map[string]string) func(result string, err error, extra map[string]string) {
	return func(result string, err error, extra map[string]string) {
		fields := make(map[string]string, len(base)+len(extra)+2)
		for k, v := range base {
			fields[k] = v
		}
		fields["result"] = result
		if err != nil {
			fields["error_code"] = domainCode(err)
		}
		for k, v := range extra {
			fields[k] = v
		}
		s.audit(ctx, action, fields)
	}
}

// requireAtLeast re-checks RBAC inside the service so it does not rely on
// middleware ordering alone.
func requireAtLeast(actorRole string, min domain.Role) error {
	role := domain.Role(strings.TrimSpace(actorRole))
	if !role.Valid() {
		return domain.ErrForbidden()
	}
	if domain.RoleRank(role) < domain.RoleRank(min) {
		return domain.ErrInsufficientRole(min)
	}
	return nil
}

// deliverCode hands the code to the delivery port without letting a failure
// (or the caller cancelling) affect the request outcome.
func (s *Service) deliverCode(ctx context.Context, u domain.User, vc domain.VerificationCode) {
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.deliveryTimeout)
	defer cancel()

	err := s.delivery.DeliverVerificationCode(dctx, VerificationCodeEvent{
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Code:      vc.Code,
		ExpiresAt: vc.ExpiresAt,
	})

	rec := s.auditor(ctx, "auth.code_delivery", map[string]string{"user_id": u.ID})
	if err != nil {
		rec("error", err, map[string]string{"cause": err.Error()})
		return
	}
	rec("success", nil, nil)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
