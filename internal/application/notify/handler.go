package notify

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/catboard/auth-service/internal/application/auth"
	"github.com/catboard/auth-service/internal/infrastructure/email"
)

type Sender interface {
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}

type IdempotencyStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	MarkSent(ctx context.Context, key string, ttl time.Duration) error
}

// Service turns verification-code events into emails. It backs both the
// mailer consumer and the in-process delivery used without a broker.
type Service struct {
	sender Sender
	idem   IdempotencyStore // nil disables dedup
	ttl    time.Duration
	lg     zerolog.Logger
	v      *validator.Validate
}

func NewService(sender Sender, idem IdempotencyStore, ttl time.Duration, lg zerolog.Logger) *Service {
	return &Service{
		sender: sender,
		idem:   idem,
		ttl:    ttl,
		lg:     lg.With().Str("component", "notify_service").Logger(),
		v:      validator.New(),
	}
}

func (s *Service) DeliverVerificationCode(ctx context.Context, evt auth.VerificationCodeEvent) error {
	if err := s.v.Var(evt.Email, "required,email"); err != nil {
		return email.Permanent("invalid recipient: " + evt.Email)
	}
	if err := s.v.Var(evt.Code, "required,numeric,len=6"); err != nil {
		return email.Permanent("malformed verification code")
	}

	key := fmt.Sprintf("verify:%s:%s", evt.UserID, evt.Code)
	if s.idem != nil {
		seen, err := s.idem.Seen(ctx, key)
		if err != nil {
			return email.Temporary("idempotency lookup: " + err.Error())
		}
		if seen {
			s.lg.Info().Str("user_id", evt.UserID).Msg("idempotent skip (already sent)")
			return nil
		}
	}

	subject, text, htmlBody := ComposeVerificationCode(evt)
	if err := s.sender.Send(ctx, evt.Email, subject, text, htmlBody); err != nil {
		return err
	}

	if s.idem != nil {
		if err := s.idem.MarkSent(ctx, key, s.ttl); err != nil {
			s.lg.Warn().Err(err).Str("user_id", evt.UserID).Msg("idempotency mark failed after send")
		}
	}
	s.lg.Info().Str("user_id", evt.UserID).Msg("verification code sent")
	return nil
}

// ComposeVerificationCode renders the subject plus text and HTML bodies.
func ComposeVerificationCode(evt auth.VerificationCodeEvent) (subject, text, htmlBody string) {
	name := evt.Name
	if name == "" {
		name = "there"
	}
	expires := evt.ExpiresAt.UTC().Format("15:04 MST")

	subject = "Your catboard verification code"
	text = fmt.Sprintf(
		"Hi %s,\n\nYour verification code is %s.\nIt expires at %s.\n\nIf you did not sign up for catboard, ignore this email.\n",
		name, evt.Code, expires,
	)
	htmlBody = `<!doctype html>
<html>
  <body style="font-family:Arial,Helvetica,sans-serif; line-height:1.4;">
    <p>Hi ` + html.EscapeString(name) + `,</p>
    <p>Your verification code is</p>
    <p style="font-size:28px; letter-spacing:6px; font-weight:bold;">` + html.EscapeString(evt.Code) + `</p>
    <p style="color:#555; font-size:12px;">It expires at ` + expires + `. If you did not sign up for catboard, ignore this email.</p>
  </body>
</html>`
	return subject, text, htmlBody
}
