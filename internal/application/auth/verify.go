package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/catboard/auth-service/internal/domain"
)

// issueCode creates, persists and delivers a new verification code for u.
// Earlier codes are left alone; they stay valid until they expire or one is consumed.
func (s *Service) issueCode(ctx context.Context, u domain.User) (domain.VerificationCode, error) {
	code, err := s.secrets.VerificationCode()
	if err != nil {
		return domain.VerificationCode{}, domain.ErrRandomFailed(err)
	}

	now := s.clock.Now()
	vc := domain.VerificationCode{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Code:      code,
		ExpiresAt: now.Add(s.codeTTL),
		CreatedAt: now,
	}
	if err := s.codes.Create(ctx, vc); err != nil {
		return domain.VerificationCode{}, err
	}

	s.deliverCode(ctx, u, vc)
	return vc, nil
}

// Verify consumes a verification code, marks the email verified and logs the user in.
func (s *Service) Verify(ctx context.Context, userID, code string) (LoginResult, error) {
	userID = strings.TrimSpace(userID)
	code = strings.TrimSpace(code)
	rec := s.auditor(ctx, "auth.verify", map[string]string{"user_id": userID})

	if userID == "" {
		return LoginResult{}, domain.ErrMissingField("user_id")
	}
	if code == "" {
		return LoginResult{}, domain.ErrMissingField("code")
	}

	if s.attempts != nil {
		// fails closed: an unreachable limiter denies the attempt
		ok, lerr := s.attempts.Allow(ctx, "verify:"+userID)
		if lerr != nil || !ok {
			reason := "too_many_attempts"
			if lerr != nil {
				reason = "limiter_unavailable: " + lerr.Error()
			}
			err := domain.ErrRateLimited("auth.verify")
			rec("error", err, map[string]string{"reason": reason})
			return LoginResult{}, err
		}
	}

	vc, err := s.codes.Find(ctx, userID, code)
	if err != nil {
		rec("error", err, nil)
		return LoginResult{}, err
	}
	if vc.Expired(s.clock.Now()) {
		err := domain.ErrInvalidOrExpiredCode()
		rec("error", err, map[string]string{"reason": "expired"})
		return LoginResult{}, err
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		rec("error", err, nil)
		return LoginResult{}, err
	}

	if err := s.codes.DeleteAllForUser(ctx, userID); err != nil {
		rec("error", err, nil)
		return LoginResult{}, err
	}

	if !u.EmailVerified {
		u.EmailVerified = true
		u.UpdatedAt = s.clock.Now()
		if u, err = s.users.Update(ctx, u); err != nil {
			rec("error", err, nil)
			return LoginResult{}, err
		}
	}

	if u.Blocked {
		err := domain.ErrAccountLocked()
		rec("error", err, nil)
		return LoginResult{}, err
	}

	toks, err := s.issueTokens(ctx, u)
	if err != nil {
		rec("error", err, nil)
		return LoginResult{}, err
	}

	rec("success", nil, nil)
	return LoginResult{User: u, Tokens: toks}, nil
}
