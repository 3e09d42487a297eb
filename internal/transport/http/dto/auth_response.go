package dto

import (
	"time"

	"github.com/catboard/auth-service/internal/application/auth"
	"github.com/catboard/auth-service/internal/domain"
)

// UserView is the public user projection. It never carries the password hash.
type UserView struct {
	ID                    string    `json:"id"`
	Name                  string    `json:"name"`
	Email                 string    `json:"email"`
	Role                  string    `json:"role"`
	EmailVerified         bool      `json:"email_verified"`
	Blocked               bool      `json:"blocked"`
	VerificationRequested bool      `json:"verification_requested"`
	PhoneNumber           string    `json:"phone_number,omitempty"`
	TelegramUsername      string    `json:"telegram_username,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

func NewUserView(u domain.User) UserView {
	return UserView{
		ID:                    u.ID,
		Name:                  u.Name,
		Email:                 u.Email,
		Role:                  string(u.Role),
		EmailVerified:         u.EmailVerified,
		Blocked:               u.Blocked,
		VerificationRequested: u.VerificationRequested,
		PhoneNumber:           u.PhoneNumber,
		TelegramUsername:      u.TelegramUsername,
		CreatedAt:             u.CreatedAt,
	}
}

type TokensView struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

func NewTokensView(t auth.AuthTokens) TokensView {
	return TokensView{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		TokenType:        t.TokenType,
		ExpiresIn:        t.ExpiresIn,
		RefreshExpiresIn: t.RefreshExpiresIn,
	}
}

// AuthData is returned by login, verify and refresh.
type AuthData struct {
	User   UserView   `json:"user"`
	Tokens TokensView `json:"tokens"`
}

// RegisterData is returned by register; tokens only follow verification.
type RegisterData struct {
	User                 UserView `json:"user"`
	VerificationRequired bool     `json:"verification_required"`
}

type MeData struct {
	User UserView `json:"user"`
}
