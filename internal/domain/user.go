package domain

import "time"

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role

	Blocked               bool
	EmailVerified         bool
	VerificationRequested bool

	PhoneNumber      string
	TelegramUsername string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VerificationCode is a short numeric code proving control of the user's email.
type VerificationCode struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the code can no longer be honoured at now.
func (c VerificationCode) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// RefreshToken is an opaque single-use secret exchanged for a new token pair.
type RefreshToken struct {
	ID        string
	Token     string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (t RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
