package dto

import "strings"

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=150"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

func (r *RegisterRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type VerifyRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Code   string `json:"code" validate:"required,numeric,len=6"`
}

// RefreshRequest is optional; the RefreshToken cookie takes precedence.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// SetRoleRequest only checks presence; the service maps unknown values to
// invalid_role.
type SetRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// UpdateProfileRequest fields are optional; empty leaves the value unchanged.
type UpdateProfileRequest struct {
	Name             string `json:"name,omitempty" validate:"max=100"`
	PhoneNumber      string `json:"phone_number,omitempty" validate:"max=15"`
	TelegramUsername string `json:"telegram_username,omitempty" validate:"max=50"`
}

type PageQuery struct {
	Page     int `validate:"gte=0"`
	PageSize int `validate:"gte=0,lte=100"`
}
