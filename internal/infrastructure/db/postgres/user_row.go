package postgres

import (
	"time"

	"github.com/catboard/auth-service/internal/domain"
)

const userColumns = `id, name, email, password_hash, role, blocked, email_verified, verification_requested, phone_number, telegram_username, created_at, updated_at`

type userRow struct {
	ID                    string
	Name                  string
	Email                 string
	PasswordHash          string
	Role                  string
	Blocked               bool
	EmailVerified         bool
	VerificationRequested bool
	PhoneNumber           string
	TelegramUsername      string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func (ur *userRow) fields() []any {
	return []any{
		&ur.ID,
		&ur.Name,
		&ur.Email,
		&ur.PasswordHash,
		&ur.Role,
		&ur.Blocked,
		&ur.EmailVerified,
		&ur.VerificationRequested,
		&ur.PhoneNumber,
		&ur.TelegramUsername,
		&ur.CreatedAt,
		&ur.UpdatedAt,
	}
}

func scanUser(s scanner) (userRow, error) {
	var ur userRow
	err := s.Scan(ur.fields()...)
	return ur, err
}

func (ur userRow) toDomain() domain.User {
	return domain.User{
		ID:                    ur.ID,
		Name:                  ur.Name,
		Email:                 ur.Email,
		PasswordHash:          ur.PasswordHash,
		Role:                  domain.Role(ur.Role),
		Blocked:               ur.Blocked,
		EmailVerified:         ur.EmailVerified,
		VerificationRequested: ur.VerificationRequested,
		PhoneNumber:           ur.PhoneNumber,
		TelegramUsername:      ur.TelegramUsername,
		CreatedAt:             ur.CreatedAt,
		UpdatedAt:             ur.UpdatedAt,
	}
}
