package auth

import (
	"context"
	"time"

	"github.com/catboard/auth-service/internal/domain"
)

/*
UserRepo
--------
Persistence port for users.
Only describes WHAT the auth service needs, not HOW it's stored.
Implementations must enforce email uniqueness themselves (ErrEmailAlreadyExists on Create).
*/
type UserRepo interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	Create(ctx context.Context, u domain.User) (domain.User, error)
	Update(ctx context.Context, u domain.User) (domain.User, error)
	Delete(ctx context.Context, id string) error

	CountByRole(ctx context.Context, role domain.Role) (int, error)
	ListVerificationRequests(ctx context.Context, limit, offset int) ([]domain.User, int, error)
}

/*
PasswordHasher
--------------
Abstracts bcrypt.
*/
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash string, password string) error // nil if match
}

/*
TokenSigner
-----------
Issues and verifies access tokens (JWT).
Used by service + auth middleware.
*/
type TokenClaims struct {
	UserID string
	Role   domain.Role
	Exp    time.Time
}

type TokenSigner interface {
	SignAccessToken(userID string, role domain.Role, ttl time.Duration) (string, error)
	VerifyAccessToken(token string) (TokenClaims, error)
}

/*
RefreshTokenStore
-----------------
Persisted refresh tokens. A missing token is reported as ErrInvalidOrExpiredToken.
Rotate must delete oldToken and insert next atomically; if oldToken is already
gone it returns ErrInvalidOrExpiredToken and inserts nothing.
*/
type RefreshTokenStore interface {
	Add(ctx context.Context, t domain.RefreshToken) error
	FindByValue(ctx context.Context, token string) (domain.RefreshToken, domain.User, error)
	Remove(ctx context.Context, token string) error
	Rotate(ctx context.Context, oldToken string, next domain.RefreshToken) error
}

/*
VerificationCodeStore
---------------------
Find is an exact (userID, code) lookup; a miss is ErrInvalidOrExpiredCode.
Expiry is checked by the caller.
*/
type VerificationCodeStore interface {
	Create(ctx context.Context, c domain.VerificationCode) error
	Find(ctx context.Context, userID, code string) (domain.VerificationCode, error)
	DeleteAllForUser(ctx context.Context, userID string) error
}

/*
CodeDelivery
------------
Hands a freshly issued code to the email side (RabbitMQ or direct SMTP).
The service never fails a request because delivery failed.
*/
type CodeDelivery interface {
	DeliverVerificationCode(ctx context.Context, evt VerificationCodeEvent) error
}

type VerificationCodeEvent struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

/*
AttemptLimiter
--------------
Caps verification code guesses per account, whichever client sends them.
Allow counts one attempt under key and reports whether it fits the window.
*/
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SecretGenerator produces verification codes and refresh token values.
type SecretGenerator interface {
	VerificationCode() (string, error)
	RefreshToken() (string, error)
}

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
