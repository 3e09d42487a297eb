package middleware

import (
	"context"

	pkgctx "github.com/catboard/auth-service/internal/pkg/context"
)

type principalKey struct{}

type principal struct {
	userID string
	role   string
}

// WithUser attaches the verified caller. The id is mirrored into pkg/context
// so request loggers and audit lines carry it.
func WithUser(ctx context.Context, userID, role string) context.Context {
	ctx = pkgctx.WithUserID(ctx, userID)
	return context.WithValue(ctx, principalKey{}, principal{userID: userID, role: role})
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p.userID, p.userID != ""
}

func RoleFromContext(ctx context.Context) (string, bool) {
	p, _ := ctx.Value(principalKey{}).(principal)
	return p.role, p.role != ""
}
