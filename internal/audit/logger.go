package audit

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	pkgctx "github.com/catboard/auth-service/internal/pkg/context"
)

// Logger provides structured audit logging for auth business events
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record writes one audit line. Failed actions log at warn.
// Plugged into auth.Service via WithAudit.
func (l *Logger) Record(ctx context.Context, action string, fields map[string]string) {
	ev := l.log.Info()
	if fields["result"] == "error" {
		ev = l.log.Warn()
	}

	ev = ev.Str("action", action)
	if rid := pkgctx.GetRequestID(ctx); rid != "" {
		ev = ev.Str("request_id", rid)
	}
	if _, ok := fields["actor_id"]; !ok {
		if uid := pkgctx.GetUserID(ctx); uid != "" {
			ev = ev.Str("actor_id", uid)
		}
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if k == "email" {
			v = maskEmail(v)
		}
		ev = ev.Str(k, v)
	}

	ev.Msg("audit")
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	// Show first 2 chars and domain
	at := 0
	for i, c := range email {
		if c == '@' {
			at = i
			break
		}
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
