package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/catboard/auth-service/internal/application/notify"
	"github.com/catboard/auth-service/internal/config"
	"github.com/catboard/auth-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/catboard/auth-service/internal/infrastructure/redis"
	"github.com/catboard/auth-service/internal/logger"
)

// Runner blocks until ctx is cancelled or it fails for good.
type Runner interface {
	Run(ctx context.Context) error
}

type MailerDeps struct {
	LoadConfig func() (*config.MailerConfig, error)

	NewRedis func(addr, password string, db int) *redis.Client

	NewConsumer func(cfg rabbitmq.ConsumerConfig, h rabbitmq.Handler) Runner
}

// Mailer consumes verification-code events and serves its metrics.
type Mailer struct {
	consumer Runner
	metrics  *http.Server
}

func NewMailer() (*Mailer, func(), error) {
	return newMailer(defaultMailerDeps())
}

func NewMailerWithDeps(deps MailerDeps) (*Mailer, func(), error) {
	return newMailer(deps)
}

func newMailer(deps MailerDeps) (*Mailer, func(), error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, func() {}, err
	}

	var (
		cleanups []func()
		idem     notify.IdempotencyStore
	)
	fail := func(err error) (*Mailer, func(), error) {
		runCleanup(cleanups)
		return nil, func() {}, err
	}

	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		rdb := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		cleanups = append(cleanups, func() { _ = rdb.Close() })

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(ctx)
		cancel()
		if err != nil {
			return fail(fmt.Errorf("mailer: redis: %w", err))
		}
		idem = redis.NewIdempotencyStore(rdb)
	} else {
		logger.Logger.Warn().Msg("REDIS_ADDR not set; duplicate deliveries are not suppressed")
	}

	svc := notify.NewService(newSender(cfg.SMTP), idem, cfg.IdempotencyTTL, logger.Logger)

	consumer := deps.NewConsumer(rabbitmq.ConsumerConfig{
		URL:      cfg.RabbitURL,
		Exchange: cfg.RabbitExchange,
		Prefetch: cfg.Prefetch,
		Tag:      cfg.ConsumerTag,
	}, svc)

	var metrics *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metrics = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	m := &Mailer{consumer: consumer, metrics: metrics}
	return m, func() { runCleanup(cleanups) }, nil
}

// Run starts the metrics listener and blocks on the consumer. Cancelling ctx
// stops both.
func (m *Mailer) Run(ctx context.Context) error {
	if m.metrics != nil {
		go func() {
			logger.Logger.Info().Str("addr", m.metrics.Addr).Msg("mailer metrics listening")
			if err := m.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Logger.Error().Err(err).Msg("mailer metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = m.metrics.Shutdown(shutdownCtx)
		}()
	}

	return m.consumer.Run(ctx)
}

func defaultMailerDeps() MailerDeps {
	return MailerDeps{
		LoadConfig: config.LoadMailer,
		NewRedis:   redis.New,
		NewConsumer: func(cfg rabbitmq.ConsumerConfig, h rabbitmq.Handler) Runner {
			return rabbitmq.NewConsumer(cfg, h, logger.Logger)
		},
	}
}
