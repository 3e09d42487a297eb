package email

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSender writes mail to the log. Used when SMTP is not configured.
type LogSender struct {
	lg zerolog.Logger
}

func NewLogSender(lg zerolog.Logger) *LogSender {
	return &LogSender{lg: lg.With().Str("component", "log_sender").Logger()}
}

func (s *LogSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	s.lg.Info().
		Str("to", to).
		Str("subject", subject).
		Str("body", textBody).
		Msg("email (not sent: smtp disabled)")
	return nil
}
