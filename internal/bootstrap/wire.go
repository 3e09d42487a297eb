package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/catboard/auth-service/internal/application/auth"
	"github.com/catboard/auth-service/internal/application/notify"
	"github.com/catboard/auth-service/internal/audit"
	"github.com/catboard/auth-service/internal/config"
	"github.com/catboard/auth-service/internal/domain"
	"github.com/catboard/auth-service/internal/infrastructure/db/postgres"
	"github.com/catboard/auth-service/internal/infrastructure/email"
	"github.com/catboard/auth-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/catboard/auth-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/catboard/auth-service/internal/infrastructure/redis"
	"github.com/catboard/auth-service/internal/infrastructure/security"
	"github.com/catboard/auth-service/internal/logger"
	http_handlers "github.com/catboard/auth-service/internal/transport/http/handlers"
	"github.com/catboard/auth-service/internal/transport/http/middleware"
	"github.com/catboard/auth-service/internal/transport/http/response"
	"github.com/catboard/auth-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (*sql.DB, error)

	NewRedis func(addr, password string, db int) *redis.Client

	NewPublisher func(rabbitURL, exchange string) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)
}

// Publisher is the broker-backed code delivery.
type Publisher interface {
	auth.CodeDelivery
	Close() error
}

// storage bundles the three persistence ports for one backend.
type storage struct {
	users  auth.UserRepo
	tokens auth.RefreshTokenStore
	codes  auth.VerificationCodeStore
	db     *sql.DB // nil for memory
}

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	var cleanupFns []func()
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	// 1) storage
	store, closeStore, err := openStorage(deps, cfg)
	if err != nil {
		return nil, nil, err
	}
	if closeStore != nil {
		cleanupFns = append(cleanupFns, closeStore)
	}

	// 2) security
	logger.Logger.Info().Str("issuer", cfg.JWTIssuer).Msg("initializing jwt signer")
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	signer := security.NewJWTSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience)

	// seed (dev only)
	if cfg.IsDev() {
		postgres.SeedUsers(context.Background(), store.users, hasher)
	}

	// 3) redis (best-effort, only the rate limiter uses it)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := c.Ping(ctx)
		cancel()

		if err != nil {
			logger.Logger.Warn().Err(err).Msg("redis unavailable; rate limiting disabled")
			_ = c.Close()
		} else {
			logger.Logger.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	}

	// 4) code delivery
	delivery, closeDelivery, err := openDelivery(deps, cfg)
	if err != nil {
		return fail(err)
	}
	if closeDelivery != nil {
		cleanupFns = append(cleanupFns, closeDelivery)
	}

	var fwLimiter *redis.FixedWindowLimiter
	if redisCli != nil {
		fwLimiter = redis.NewFixedWindowLimiter(redisCli)
	}

	// per-account verify cap; shared through redis when there is one
	var attempts auth.AttemptLimiter
	switch {
	case cfg.VerifyMaxAttempts <= 0:
	case fwLimiter != nil:
		attempts = redis.NewAttemptLimiter(fwLimiter, cfg.VerifyMaxAttempts, cfg.VerifyAttemptWindow)
	default:
		attempts = memory.NewAttemptLimiter(cfg.VerifyMaxAttempts, cfg.VerifyAttemptWindow)
	}

	// 5) service
	authSvc := auth.NewService(
		store.users,
		hasher,
		signer,
		store.tokens,
		store.codes,
		delivery,
		auth.Config{
			AccessTTL:       cfg.AccessTokenTTL,
			RefreshTTL:      cfg.RefreshTokenTTL,
			CodeTTL:         cfg.CodeTTL,
			DeliveryTimeout: cfg.DeliveryTimeout,
		},
	).WithAudit(audit.New(logger.Logger).Record).WithVerifyAttempts(attempts)

	// 6) handlers + middleware
	authH := http_handlers.NewAuthHandler(authSvc, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, cfg.SecureCookies)
	usersH := http_handlers.NewUsersHandler(authSvc)

	// keep the interface nil for memory storage, not a typed nil *sql.DB
	var pinger http_handlers.Pinger
	if store.db != nil {
		pinger = store.db
	}
	healthH := http_handlers.NewHealthHandler(pinger)

	authMW := middleware.Auth(signer, response.WriteError)
	modMW := middleware.RequireAtLeast(domain.RoleModerator, response.WriteError)
	adminMW := middleware.RequireAtLeast(domain.RoleAdministrator, response.WriteError)

	// rate limit (fail-open)
	rl := func(key string, limit int, window time.Duration) router.Middleware {
		if fwLimiter == nil {
			return nil
		}
		return middleware.RateLimitFixedWindow(
			fwLimiter,
			middleware.FixedWindowConfig{
				RouteKey: key,
				Limit:    limit,
				Window:   window,
			},
			response.WriteError,
		)
	}

	// 7) router
	mux, err := deps.NewRouter(router.Deps{
		Health:  healthH,
		Auth:    authH,
		Users:   usersH,
		Metrics: promhttp.Handler(),

		TrustProxy: cfg.TrustProxy,

		RequestIDMW: middleware.RequestID,
		MetricsMW:   middleware.Metrics,
		AuthMW:      authMW,
		ModMW:       modMW,
		AdminMW:     adminMW,

		RLRegister: rl("auth.register", 5, time.Minute),
		RLLogin:    rl("auth.login", 10, time.Minute),
		RLVerify:   rl("auth.verify", 10, 10*time.Minute),
		RLRefresh:  rl("auth.refresh", 30, time.Minute),
		RLUsers:    rl("users.actions", 60, time.Minute),
	})
	if err != nil {
		return fail(err)
	}

	// 8) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

func openStorage(deps Deps, cfg *config.Config) (storage, func(), error) {
	if cfg.Storage == config.StorageMemory {
		logger.Logger.Warn().Msg("using in-memory storage; data is lost on restart")
		m := memory.NewStore()
		return storage{users: m.Users(), tokens: m.RefreshTokens(), codes: m.Codes()}, nil, nil
	}

	db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
	if err != nil {
		return storage{}, nil, fmt.Errorf("bootstrap: open db: %w", err)
	}
	closeDB := func() { _ = db.Close() }

	if cfg.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := postgres.Migrate(ctx, db)
		cancel()
		if err != nil {
			closeDB()
			return storage{}, nil, fmt.Errorf("bootstrap: migrate: %w", err)
		}
		logger.Logger.Info().Msg("schema migrated")
	}

	return storage{
		users:  postgres.NewUserRepo(db),
		tokens: postgres.NewRefreshTokenRepo(db),
		codes:  postgres.NewVerificationCodeRepo(db),
		db:     db,
	}, closeDB, nil
}

// openDelivery prefers the broker. Without one, codes are mailed in-process
// (SMTP when configured, the log otherwise).
func openDelivery(deps Deps, cfg *config.Config) (auth.CodeDelivery, func(), error) {
	if cfg.RabbitURL != "" && deps.NewPublisher != nil {
		pub, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err == nil {
			return pub, func() { _ = pub.Close() }, nil
		}
		if !cfg.IsDev() {
			return nil, nil, fmt.Errorf("bootstrap: rabbitmq: %w", err)
		}
		logger.Logger.Warn().Err(err).Msg("rabbitmq unavailable; delivering codes in-process")
	}
	if !cfg.IsDev() && !cfg.SMTP.Enabled() {
		return nil, nil, fmt.Errorf("bootstrap: no mail transport for ENV=%s; codes would only be logged", cfg.Env)
	}

	return notify.NewService(newSender(cfg.SMTP), nil, 0, logger.Logger), nil, nil
}

// newSender picks SMTP when a relay is configured.
func newSender(s config.SMTP) notify.Sender {
	if !s.Enabled() {
		return email.NewLogSender(logger.Logger)
	}
	return email.NewSMTPSender(email.SMTPConfig{
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		From:     s.From,
		Timeout:  s.Timeout,
		Insecure: s.Insecure,
	}, logger.Logger)
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		NewRedis:   redis.New,
		NewPublisher: func(url, exchange string) (Publisher, error) {
			return rabbitmq_pub.NewPublisher(url, exchange)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
