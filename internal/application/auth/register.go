package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/catboard/auth-service/internal/domain"
)

// Register creates an unverified account and sends it a verification code.
func (s *Service) Register(ctx context.Context, name, email, password string) (RegisterResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	rec := s.auditor(ctx, "auth.register", map[string]string{"email": email})

	switch {
	case name == "":
		return RegisterResult{}, domain.ErrMissingField("name")
	case email == "":
		return RegisterResult{}, domain.ErrMissingField("email")
	case password == "":
		return RegisterResult{}, domain.ErrMissingField("password")
	}

	// Fast path for the common duplicate; the store's unique index covers the race.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		err := domain.ErrEmailAlreadyExists()
		rec("error", err, nil)
		return RegisterResult{}, err
	} else if !domain.Is(err, "user_not_found") {
		rec("error", err, nil)
		return RegisterResult{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return RegisterResult{}, domain.ErrHashFailed(err)
	}

	now := s.clock.Now()
	created, err := s.users.Create(ctx, domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		rec("error", err, nil)
		return RegisterResult{}, err
	}

	if _, err := s.issueCode(ctx, created); err != nil {
		// Without a code the account could never be verified, and its email
		// would stay taken. Undo the insert so the client can simply retry.
		extra := map[string]string{"user_id": created.ID, "rolled_back": "true"}
		if derr := s.users.Delete(context.WithoutCancel(ctx), created.ID); derr != nil {
			extra["rolled_back"] = "false"
			extra["rollback_error"] = derr.Error()
		}
		rec("error", err, extra)
		return RegisterResult{}, err
	}

	rec("success", nil, map[string]string{"user_id": created.ID})
	return RegisterResult{User: created}, nil
}
