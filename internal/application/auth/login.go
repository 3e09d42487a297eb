package auth

import (
	"context"

	"github.com/catboard/auth-service/internal/domain"
)

// Login authenticates a user and issues tokens.
// IMPORTANT: must not leak whether the email exists (avoid user enumeration).
//
// Unverified accounts get a fresh code and ErrVerificationPending instead of tokens;
// the returned LoginResult still carries the user so callers can report the id.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = normalizeEmail(email)
	rec := s.auditor(ctx, "auth.login", map[string]string{"email": email})

	if email == "" || password == "" {
		err := domain.ErrInvalidCredentials()
		rec("error", err, nil)
		return LoginResult{}, err
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			err = domain.ErrInvalidCredentials()
		}
		rec("error", err, nil)
		return LoginResult{}, err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		err := domain.ErrInvalidCredentials()
		rec("error", err, map[string]string{"user_id": u.ID})
		return LoginResult{}, err
	}

	if u.Blocked {
		err := domain.ErrAccountLocked()
		rec("error", err, map[string]string{"user_id": u.ID})
		return LoginResult{}, err
	}

	if !u.EmailVerified {
		if _, err := s.issueCode(ctx, u); err != nil {
			rec("error", err, map[string]string{"user_id": u.ID})
			return LoginResult{}, err
		}
		err := domain.ErrVerificationPending(u.ID)
		rec("error", err, map[string]string{"user_id": u.ID})
		return LoginResult{User: u}, err
	}

	toks, err := s.issueTokens(ctx, u)
	if err != nil {
		rec("error", err, map[string]string{"user_id": u.ID})
		return LoginResult{}, err
	}

	rec("success", nil, map[string]string{"user_id": u.ID})
	return LoginResult{User: u, Tokens: toks}, nil
}
