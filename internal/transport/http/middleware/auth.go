package middleware

import (
	"net/http"
	"strings"

	"github.com/catboard/auth-service/internal/application/auth"
	"github.com/catboard/auth-service/internal/domain"
	"github.com/catboard/auth-service/internal/infrastructure/security"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (auth.TokenClaims, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// Auth accepts an access token from "Authorization: Bearer <jwt>" or, when the
// header is absent, from the AccessToken cookie. Verified claims go into the
// request context.
func Auth(verifier TokenVerifier, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := accessToken(r)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			claims, err := verifier.VerifyAccessToken(raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			if strings.TrimSpace(claims.UserID) == "" {
				writeErr(w, r, domain.ErrInvalidOrExpiredToken("invalid"))
				return
			}

			ctx := WithUser(r.Context(), claims.UserID, string(claims.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func accessToken(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return "", domain.ErrInvalidOrExpiredToken("malformed_header")
		}
		raw := strings.TrimSpace(parts[1])
		if raw == "" {
			return "", domain.ErrMissingToken()
		}
		return raw, nil
	}

	raw, err := security.ReadAccessToken(r)
	if err != nil || strings.TrimSpace(raw) == "" {
		return "", domain.ErrMissingToken()
	}
	return raw, nil
}
