package memory

import (
	"context"
	"sync"

	zlog "github.com/rs/zerolog/log"

	"github.com/catboard/auth-service/internal/application/auth"
)

// LogDelivery stands in for the broker in dev: codes go to the log and are
// kept for inspection.
type LogDelivery struct {
	mu   sync.Mutex
	sent []auth.VerificationCodeEvent
}

func NewLogDelivery() *LogDelivery { return &LogDelivery{} }

func (d *LogDelivery) DeliverVerificationCode(ctx context.Context, evt auth.VerificationCodeEvent) error {
	zlog.Info().
		Str("component", "log_delivery").
		Str("user_id", evt.UserID).
		Str("code", evt.Code).
		Time("expires_at", evt.ExpiresAt).
		Msg("verification code issued")

	d.mu.Lock()
	d.sent = append(d.sent, evt)
	d.mu.Unlock()
	return nil
}

// Last returns the most recent event for userID.
func (d *LogDelivery) Last(userID string) (auth.VerificationCodeEvent, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := len(d.sent) - 1; i >= 0; i-- {
		if d.sent[i].UserID == userID {
			return d.sent[i], true
		}
	}
	return auth.VerificationCodeEvent{}, false
}
