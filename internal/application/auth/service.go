package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/catboard/auth-service/internal/domain"
)

const (
	defaultCodeTTL         = 10 * time.Minute
	defaultDeliveryTimeout = 3 * time.Second

	codeMin = 100000
	codeMax = 999999
)

type Service struct {
	users    UserRepo
	hasher   PasswordHasher
	signer   TokenSigner
	tokens   RefreshTokenStore
	codes    VerificationCodeStore
	delivery CodeDelivery

	secrets  SecretGenerator
	clock    Clock
	attempts AttemptLimiter // nil: no per-account cap on Verify

	accessTTL       time.Duration
	refreshTTL      time.Duration
	codeTTL         time.Duration
	deliveryTimeout time.Duration
	audit           AuditFunc
}

type Config struct {
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	CodeTTL         time.Duration
	DeliveryTimeout time.Duration
}

func NewService(
	users UserRepo,
	hasher PasswordHasher,
	signer TokenSigner,
	tokens RefreshTokenStore,
	codes VerificationCodeStore,
	delivery CodeDelivery,
	cfg Config,
) *Service {
	codeTTL := cfg.CodeTTL
	if codeTTL <= 0 {
		codeTTL = defaultCodeTTL
	}
	deliveryTimeout := cfg.DeliveryTimeout
	if deliveryTimeout <= 0 {
		deliveryTimeout = defaultDeliveryTimeout
	}
	return &Service{
		users:    users,
		hasher:   hasher,
		signer:   signer,
		tokens:   tokens,
		codes:    codes,
		delivery: delivery,

		secrets: cryptoSecrets{},
		clock:   SystemClock{},
		audit:   func(context.Context, string, map[string]string) {},

		accessTTL:       cfg.AccessTTL,
		refreshTTL:      cfg.RefreshTTL,
		codeTTL:         codeTTL,
		deliveryTimeout: deliveryTimeout,
	}
}

// AuthTokens is the common token output for handlers/DTO mapping.
type AuthTokens struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string // "Bearer"
	ExpiresIn        int64  // access token lifetime, seconds
	RefreshExpiresIn int64
}

type RegisterResult struct {
	User domain.User
}

type LoginResult struct {
	User   domain.User
	Tokens AuthTokens
}

// AuditFunc receives one entry per business event; fields always carry "result".
type AuditFunc func(ctx context.Context, action string, fields map[string]string)

func (s *Service) WithAudit(fn AuditFunc) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

func (s *Service) WithClock(c Clock) *Service {
	if c != nil {
		s.clock = c
	}
	return s
}

func (s *Service) WithVerifyAttempts(l AttemptLimiter) *Service {
	if l != nil {
		s.attempts = l
	}
	return s
}

func (s *Service) WithSecrets(g SecretGenerator) *Service {
	if g != nil {
		s.secrets = g
	}
	return s
}

// newRefreshToken builds (but does not persist) a refresh token for userID.
func (s *Service) newRefreshToken(userID string) (domain.RefreshToken, error) {
	value, err := s.secrets.RefreshToken()
	if err != nil {
		return domain.RefreshToken{}, domain.ErrRandomFailed(err)
	}
	now := s.clock.Now()
	return domain.RefreshToken{
		ID:        uuid.NewString(),
		Token:     value,
		UserID:    userID,
		ExpiresAt: now.Add(s.refreshTTL),
		CreatedAt: now,
	}, nil
}

func (s *Service) signAccess(u domain.User) (string, error) {
	access, err := s.signer.SignAccessToken(u.ID, u.Role, s.accessTTL)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return access, nil
}

func (s *Service) tokensFor(access string, rt domain.RefreshToken) AuthTokens {
	return AuthTokens{
		AccessToken:      access,
		RefreshToken:     rt.Token,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.accessTTL.Seconds()),
		RefreshExpiresIn: int64(s.refreshTTL.Seconds()),
	}
}

// issueTokens signs an access token and persists a brand new refresh token.
func (s *Service) issueTokens(ctx context.Context, u domain.User) (AuthTokens, error) {
	access, err := s.signAccess(u)
	if err != nil {
		return AuthTokens{}, err
	}

	rt, err := s.newRefreshToken(u.ID)
	if err != nil {
		return AuthTokens{}, err
	}
	if err := s.tokens.Add(ctx, rt); err != nil {
		return AuthTokens{}, err
	}

	return s.tokensFor(access, rt), nil
}

// cryptoSecrets draws everything from crypto/rand.
type cryptoSecrets struct{}

func (cryptoSecrets) VerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

func (cryptoSecrets) RefreshToken() (string, error) {
	return newOpaqueToken(32)
}

// newOpaqueToken returns a URL-safe opaque token.
func newOpaqueToken(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		return "", fmt.Errorf("invalid token length %d", bytesLen)
	}
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
