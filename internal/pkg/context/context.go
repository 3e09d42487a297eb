// Package context holds the request-scoped values shared by transport,
// logging and audit code.
package context

import "context"

type key int

const (
	requestIDKey key = iota
	userIDKey
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	return str(ctx, requestIDKey)
}

// WithUserID records the authenticated caller for log enrichment. It is not
// an authorization source; handlers read identity from the auth middleware.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

func GetUserID(ctx context.Context) string {
	return str(ctx, userIDKey)
}

func str(ctx context.Context, k key) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(k).(string)
	return v
}
