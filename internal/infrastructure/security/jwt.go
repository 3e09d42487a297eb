package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/catboard/auth-service/internal/application/auth"
	"github.com/catboard/auth-service/internal/domain"
)

type JWTSigner struct {
	secret   []byte
	issuer   string
	audience string
	clock    auth.Clock
}

func NewJWTSigner(secret, issuer, audience string) *JWTSigner {
	return &JWTSigner{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		clock:    auth.SystemClock{},
	}
}

// WithClock swaps the time source used for iat/exp and for validation.
func (s *JWTSigner) WithClock(c auth.Clock) *JWTSigner {
	if c != nil {
		s.clock = c
	}
	return s
}

type accessClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (s *JWTSigner) SignAccessToken(userID string, role domain.Role, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", domain.ErrTokenSignFailed(errors.New("empty signing secret"))
	}

	now := s.clock.Now()
	claims := accessClaims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   userID,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

func (s *JWTSigner) VerifyAccessToken(token string) (auth.TokenClaims, error) {
	if token == "" {
		return auth.TokenClaims{}, domain.ErrMissingToken()
	}

	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		// prevent alg confusion
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return auth.TokenClaims{}, domain.ErrInvalidOrExpiredToken("expired")
		}
		return auth.TokenClaims{}, domain.ErrInvalidOrExpiredToken("invalid")
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok || !parsed.Valid {
		return auth.TokenClaims{}, domain.ErrInvalidOrExpiredToken("invalid")
	}

	role, rerr := domain.ParseRole(claims.Role)
	if rerr != nil || claims.UserID == "" {
		return auth.TokenClaims{}, domain.ErrInvalidOrExpiredToken("invalid")
	}

	return auth.TokenClaims{
		UserID: claims.UserID,
		Role:   role,
		Exp:    claims.ExpiresAt.Time,
	}, nil
}
