package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/catboard/auth-service/internal/domain"
)

type SeederHasher interface {
	Hash(password string) (string, error)
}

type SeederRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
}

// SeedUsers creates one verified account per staff role plus a plain user.
// Dev only; existing emails are skipped so restarts are safe.
func SeedUsers(ctx context.Context, repo SeederRepo, hasher SeederHasher) int {
	type seedUser struct {
		Name  string
		Email string
		Role  domain.Role
		Pass  string
	}

	seeds := []seedUser{
		{Name: "Admin", Email: "admin@catboard.local", Role: domain.RoleAdministrator, Pass: "AdminPassword123!"},
		{Name: "Moderator", Email: "moderator@catboard.local", Role: domain.RoleModerator, Pass: "ModeratorPassword123!"},
		{Name: "User", Email: "user@catboard.local", Role: domain.RoleUser, Pass: "UserPassword123!"},
	}

	created := 0
	for _, s := range seeds {
		hash, err := hasher.Hash(s.Pass)
		if err != nil {
			zlog.Warn().Err(err).Str("email", s.Email).Msg("seed: hash failed")
			continue
		}

		now := time.Now().UTC()
		u := domain.User{
			ID:            uuid.NewString(),
			Name:          s.Name,
			Email:         s.Email,
			PasswordHash:  hash,
			Role:          s.Role,
			EmailVerified: true,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if _, err := repo.Create(ctx, u); err != nil {
			if !domain.Is(err, "email_already_exists") {
				zlog.Warn().Err(err).Str("email", s.Email).Msg("seed: create failed")
			}
			continue
		}
		created++
	}

	zlog.Info().Int("created", created).Msg("seed: users seeded")
	return created
}
