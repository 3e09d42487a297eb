package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/catboard/auth-service/internal/application/auth"
	"github.com/catboard/auth-service/internal/domain"
	pkgctx "github.com/catboard/auth-service/internal/pkg/context"
)

const confirmWait = 2 * time.Second

var errUnroutable = errors.New("rabbitmq: unroutable")

type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetConn()
	return nil
}

// DeliverVerificationCode publishes the event for the mailer. Any failure to
// get a broker ack comes back as broker_unavailable.
func (p *Publisher) DeliverVerificationCode(ctx context.Context, evt auth.VerificationCodeEvent) error {
	if err := p.publishJSON(ctx, RoutingKeyVerificationCode, evt); err != nil {
		return domain.ErrBrokerUnavailable(err)
	}
	return nil
}

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := declareTopology(ch, p.exchange); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))

	p.conn = conn
	p.ch = ch
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.resetConn()
	return p.connect()
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, confirmWait)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}

	// Stale results from an earlier timed-out publish would be mistaken for ours.
drain:
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			break drain
		}
	}

	headers := amqp.Table{}
	if rid := pkgctx.GetRequestID(ctx); rid != "" {
		headers["X-Request-ID"] = rid
	}

	if err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Headers:      headers,
			Body:         body,
		},
	); err != nil {
		p.resetConn()
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}

	// A basic.return is dispatched before the matching ack, so once the ack
	// is in hand a pending return is already buffered.
	select {
	case ret := <-p.returnCh:
		return fmt.Errorf("%w: key=%s code=%d text=%s", errUnroutable, routingKey, ret.ReplyCode, ret.ReplyText)

	case conf, ok := <-p.confirmCh:
		if !ok {
			p.resetConn()
			return fmt.Errorf("publish %s: channel closed awaiting confirm", routingKey)
		}
		select {
		case ret := <-p.returnCh:
			return fmt.Errorf("%w: key=%s code=%d text=%s", errUnroutable, routingKey, ret.ReplyCode, ret.ReplyText)
		default:
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s tag=%d", routingKey, conf.DeliveryTag)
		}
		return nil

	case <-ctx.Done():
		// The confirm may still land later; drop the channel so it cannot be
		// attributed to the next publish.
		p.resetConn()
		return fmt.Errorf("publish %s: awaiting confirm: %w", routingKey, ctx.Err())
	}
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
