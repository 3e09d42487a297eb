package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	pkgctx "github.com/catboard/auth-service/internal/pkg/context"
)

const HeaderXRequestID = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID reuses a caller-supplied id when it is sane, otherwise mints one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := strings.TrimSpace(r.Header.Get(HeaderXRequestID))
		if reqID == "" || len(reqID) > maxRequestIDLen {
			reqID = uuid.NewString()
		}

		w.Header().Set(HeaderXRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(pkgctx.WithRequestID(r.Context(), reqID)))
	})
}
