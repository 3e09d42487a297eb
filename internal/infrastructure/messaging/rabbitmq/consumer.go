package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/catboard/auth-service/internal/application/auth"
	pkgctx "github.com/catboard/auth-service/internal/pkg/context"
)

const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

var messagesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "catboard_mailer",
		Name:      "messages_total",
		Help:      "Consumed broker messages by outcome",
	},
	[]string{"outcome"}, // ack, requeue, dead_letter, dropped
)

// Handler is what the consumer hands decoded events to.
type Handler interface {
	DeliverVerificationCode(ctx context.Context, evt auth.VerificationCodeEvent) error
}

type ConsumerConfig struct {
	URL      string
	Exchange string
	Prefetch int
	Tag      string
}

type Consumer struct {
	url      string
	exchange string
	prefetch int
	tag      string

	handler Handler
	lg      zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(cfg ConsumerConfig, h Handler, lg zerolog.Logger) *Consumer {
	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &Consumer{
		url:      cfg.URL,
		exchange: exchange,
		prefetch: cfg.Prefetch,
		tag:      cfg.Tag,
		handler:  h,
		lg:       lg.With().Str("component", "rabbitmq_consumer").Logger(),
	}
}

// Run supervises the connection until ctx is cancelled, reconnecting with
// exponential backoff. It only returns early on a topology mismatch that a
// reconnect cannot fix.
func (c *Consumer) Run(ctx context.Context) error {
	if c.handler == nil {
		return errors.New("rabbitmq consumer: nil handler")
	}
	defer c.closeConn()

	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		deliveries, err := c.connect()
		if err != nil {
			if isPreconditionFailed(err) {
				return fmt.Errorf("rabbitmq topology mismatch: %w", err)
			}
			c.lg.Error().Err(err).Dur("backoff", backoff).Msg("connect failed; retrying")
			if !sleepOrDone(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = initialBackoff
		c.consumeLoop(ctx, deliveries)
		c.closeConn()

		if ctx.Err() != nil {
			return nil
		}
		c.lg.Warn().Dur("backoff", backoff).Msg("deliveries closed; reconnecting")
		if !sleepOrDone(ctx, backoff) {
			return nil
		}
		backoff = nextBackoff(backoff)
	}
}

func (c *Consumer) connect() (<-chan amqp.Delivery, error) {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("consume channel: %w", err)
	}

	fail := func(err error) (<-chan amqp.Delivery, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if err := declareTopology(ch, c.exchange); err != nil {
		return fail(err)
	}
	if c.prefetch > 0 {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fail(fmt.Errorf("qos: %w", err))
		}
	}
	dlv, err := ch.Consume(VerificationCodeQueue, c.tag, false, false, false, false, nil)
	if err != nil {
		return fail(fmt.Errorf("consume: %w", err))
	}

	c.mu.Lock()
	c.conn, c.ch = conn, ch
	c.mu.Unlock()

	c.lg.Info().
		Str("exchange", c.exchange).
		Str("queue", VerificationCodeQueue).
		Int("prefetch", c.prefetch).
		Msg("rabbitmq consumer ready")
	return dlv, nil
}

func (c *Consumer) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			c.settle(d, c.handleDelivery(ctx, d))
		}
	}
}

type outcome string

const (
	outcomeAck        outcome = "ack"
	outcomeRequeue    outcome = "requeue"
	outcomeDeadLetter outcome = "dead_letter"
	outcomeDropped    outcome = "dropped"
)

// handleDelivery decodes and dispatches one message and decides how it is
// settled. A temporary failure is retried once through a requeue; the second
// failure dead-letters it.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) outcome {
	lg := c.lg.With().Str("routing_key", d.RoutingKey).Logger()
	if rid, ok := d.Headers["X-Request-ID"].(string); ok && rid != "" {
		ctx = pkgctx.WithRequestID(ctx, rid)
		lg = lg.With().Str("request_id", rid).Logger()
	}

	if strings.TrimSpace(d.RoutingKey) != RoutingKeyVerificationCode {
		lg.Warn().Msg("unknown routing key; dropping")
		return outcomeDropped
	}

	var evt auth.VerificationCodeEvent
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		lg.Error().Err(err).Msg("bad payload")
		return outcomeDeadLetter
	}
	if evt.Email == "" || evt.Code == "" {
		lg.Error().Str("user_id", evt.UserID).Msg("payload missing email or code")
		return outcomeDeadLetter
	}

	err := c.handler.DeliverVerificationCode(ctx, evt)
	switch {
	case err == nil:
		return outcomeAck
	case isPermanent(err):
		lg.Error().Err(err).Str("user_id", evt.UserID).Msg("permanent delivery failure")
		return outcomeDeadLetter
	case d.Redelivered:
		lg.Error().Err(err).Str("user_id", evt.UserID).Msg("delivery failed after redelivery")
		return outcomeDeadLetter
	default:
		lg.Warn().Err(err).Str("user_id", evt.UserID).Msg("temporary delivery failure; requeue")
		return outcomeRequeue
	}
}

func (c *Consumer) settle(d amqp.Delivery, o outcome) {
	var err error
	switch o {
	case outcomeAck, outcomeDropped:
		err = d.Ack(false)
	case outcomeRequeue:
		err = d.Nack(false, true)
	default:
		err = d.Nack(false, false)
	}
	if err != nil {
		c.lg.Error().Err(err).Str("outcome", string(o)).Msg("settle failed")
	}
	messagesTotal.WithLabelValues(string(o)).Inc()
}

func (c *Consumer) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func isPermanent(err error) bool {
	var p interface{ Permanent() bool }
	return errors.As(err, &p) && p.Permanent()
}

func isPreconditionFailed(err error) bool {
	var ae *amqp.Error
	if errors.As(err, &ae) {
		return ae.Code == amqp.PreconditionFailed
	}
	return false
}

func nextBackoff(d time.Duration) time.Duration {
	return min(d*2, maxBackoff)
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
