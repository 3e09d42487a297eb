package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange    = "catboard.auth"
	deadLetterExchange = "catboard.auth.dlx"

	VerificationCodeQueue = "catboard.mailer.verification_code"
	deadLetterQueue       = "catboard.mailer.dlq"

	RoutingKeyVerificationCode = "auth.email.verification_code"
)

// declareTopology is idempotent; both the API publisher and the mailer run it
// so a fresh broker routes codes before the mailer has ever started.
func declareTopology(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare (%s): %w", exchange, err)
	}
	if err := ch.ExchangeDeclare(deadLetterExchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("dlx declare: %w", err)
	}

	if _, err := ch.QueueDeclare(deadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("dlq declare: %w", err)
	}
	if err := ch.QueueBind(deadLetterQueue, "#", deadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("dlq bind: %w", err)
	}

	args := amqp.Table{"x-dead-letter-exchange": deadLetterExchange}
	if _, err := ch.QueueDeclare(VerificationCodeQueue, true, false, false, false, args); err != nil {
		return fmt.Errorf("queue declare (%s): %w", VerificationCodeQueue, err)
	}
	if err := ch.QueueBind(VerificationCodeQueue, RoutingKeyVerificationCode, exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind (%s): %w", VerificationCodeQueue, err)
	}
	return nil
}
