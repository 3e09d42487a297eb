package email

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	Insecure bool
}

type SMTPSender struct {
	cfg SMTPConfig
	lg  zerolog.Logger
}

func NewSMTPSender(cfg SMTPConfig, lg zerolog.Logger) *SMTPSender {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPSender{
		cfg: cfg,
		lg:  lg.With().Str("component", "smtp_sender").Logger(),
	}
}

func (s *SMTPSender) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	m, err := s.buildMsg(to, subject, textBody, htmlBody)
	if err != nil {
		return err
	}

	c, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return Permanent("smtp client init failed: " + err.Error())
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		s.lg.Error().Err(err).Str("host", s.cfg.Host).Msg("smtp send failed")
		return classify(err)
	}

	s.lg.Info().Str("subject", subject).Msg("smtp send ok")
	return nil
}

func (s *SMTPSender) buildMsg(to, subject, textBody, htmlBody string) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, Permanent("invalid from address: " + err.Error())
	}
	if err := m.To(to); err != nil {
		return nil, Permanent("invalid to address: " + err.Error())
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, textBody)
	if htmlBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	}
	return m, nil
}

func (s *SMTPSender) clientOptions() []mail.Option {
	tls := mail.TLSMandatory
	if s.cfg.Insecure {
		tls = mail.TLSOpportunistic
	}
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTLSPolicy(tls),
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return opts
}

// classify treats auth failures and 5xx rejections as permanent.
func classify(err error) error {
	msg := err.Error()
	for _, marker := range []string{"535", "5.7.8", "550", "553", "authentication"} {
		if strings.Contains(msg, marker) {
			return Permanent("smtp rejected: " + msg)
		}
	}
	return Temporary("smtp transient failure: " + msg)
}
