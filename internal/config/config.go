package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type SMTP struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	Insecure bool // plain SMTP, local catchers only
}

// Enabled reports whether a relay is configured; otherwise mail goes to the log.
func (s SMTP) Enabled() bool { return s.Host != "" }

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr string
	//Auth / Security
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CodeTTL         time.Duration
	DeliveryTimeout time.Duration
	BcryptCost      int
	SecureCookies   bool

	// Per-account cap on verification code attempts, shared by all clients.
	VerifyMaxAttempts   int
	VerifyAttemptWindow time.Duration

	// TrustProxy honours X-Forwarded-For / X-Real-IP. Enable only behind a
	// proxy that overwrites them.
	TrustProxy bool

	// Storage
	Storage       string // postgres / memory
	DBAddr        string
	DBDebug       bool
	DBAutoMigrate bool

	// Optional infrastructure; empty disables the feature.
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RabbitURL      string
	RabbitExchange string
	SMTP           SMTP

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// IsDev gates the seed users and insecure cookies.
func (c *Config) IsDev() bool { return c.Env == "dev" }

// Load reads the API configuration. A .env file is loaded first when present.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		JWTIssuer:      getEnv("JWT_ISSUER", "catboard-auth"),
		JWTAudience:    getEnv("JWT_AUDIENCE", "catboard"),
		Storage:        strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "catboard.events"),
	}

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}

	var err error
	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", 15 * time.Minute, &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", 7 * 24 * time.Hour, &cfg.RefreshTokenTTL},
		{"VERIFICATION_CODE_TTL", 10 * time.Minute, &cfg.CodeTTL},
		{"DELIVERY_TIMEOUT", 3 * time.Second, &cfg.DeliveryTimeout},
		{"VERIFY_ATTEMPT_WINDOW", 10 * time.Minute, &cfg.VerifyAttemptWindow},
		{"HTTP_READ_TIMEOUT", 10 * time.Second, &cfg.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.HTTPWriteTimeout},
		{"HTTP_IDLE_TIMEOUT", time.Minute, &cfg.HTTPIdleTimeout},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, d.def); err != nil {
			return nil, err
		}
		if *d.dst <= 0 {
			return nil, fmt.Errorf("%s must be positive", d.key)
		}
	}

	if cfg.BcryptCost, err = getInt("BCRYPT_COST", 12); err != nil {
		return nil, err
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.SecureCookies, err = getBool("COOKIE_SECURE", !cfg.IsDev()); err != nil {
		return nil, err
	}
	if cfg.TrustProxy, err = getBool("TRUST_PROXY", false); err != nil {
		return nil, err
	}
	if cfg.VerifyMaxAttempts, err = getInt("VERIFY_MAX_ATTEMPTS", 5); err != nil {
		return nil, err
	}
	if cfg.VerifyMaxAttempts <= 0 {
		return nil, fmt.Errorf("VERIFY_MAX_ATTEMPTS must be positive")
	}

	switch cfg.Storage {
	case StoragePostgres:
		cfg.DBAddr = os.Getenv("DB_ADDR")
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR")
		}
		if err := validatePostgresDSN(cfg.DBAddr); err != nil {
			return nil, err
		}
		if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
			return nil, err
		}
		if cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", cfg.IsDev()); err != nil {
			return nil, err
		}
	case StorageMemory:
		if !cfg.IsDev() {
			return nil, fmt.Errorf("STORAGE=memory is only allowed with ENV=dev")
		}
	default:
		return nil, fmt.Errorf("invalid STORAGE %q (want postgres or memory)", cfg.Storage)
	}

	if cfg.SMTP, err = loadSMTP(); err != nil {
		return nil, err
	}
	// The log sender prints codes; it is a dev convenience only.
	if !cfg.IsDev() && cfg.RabbitURL == "" && !cfg.SMTP.Enabled() {
		return nil, fmt.Errorf("ENV=%s needs RABBIT_URL or SMTP_HOST to deliver verification codes", cfg.Env)
	}

	return cfg, nil
}

// MailerConfig configures cmd/mailer.
type MailerConfig struct {
	Env            string
	RabbitURL      string
	RabbitExchange string
	Prefetch       int
	ConsumerTag    string

	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	IdempotencyTTL time.Duration

	MetricsAddr string
	SMTP        SMTP
}

func LoadMailer() (*MailerConfig, error) {
	loadDotEnv()

	cfg := &MailerConfig{
		Env:            getEnv("ENV", "dev"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "catboard.events"),
		ConsumerTag:    getEnv("MAILER_CONSUMER_TAG", "catboard-mailer"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		MetricsAddr:    getEnv("MAILER_METRICS_ADDR", ":9091"),
	}
	if cfg.RabbitURL == "" {
		return nil, fmt.Errorf("missing required env var: RABBIT_URL")
	}

	var err error
	if cfg.Prefetch, err = getInt("MAILER_PREFETCH", 10); err != nil {
		return nil, err
	}
	if cfg.Prefetch <= 0 {
		return nil, fmt.Errorf("MAILER_PREFETCH must be positive")
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getDuration("MAILER_IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SMTP, err = loadSMTP(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadSMTP() (SMTP, error) {
	s := SMTP{
		Host:     os.Getenv("SMTP_HOST"),
		Username: os.Getenv("SMTP_USERNAME"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getEnv("SMTP_FROM", "Catboard <no-reply@catboard.local>"),
	}

	var err error
	if s.Port, err = getInt("SMTP_PORT", 587); err != nil {
		return SMTP{}, err
	}
	if s.Timeout, err = getDuration("SMTP_TIMEOUT", 10*time.Second); err != nil {
		return SMTP{}, err
	}
	if s.Insecure, err = getBool("SMTP_INSECURE", false); err != nil {
		return SMTP{}, err
	}
	return s, nil
}

// validatePostgresDSN accepts postgres:// URLs naming a host and a database.
func validatePostgresDSN(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return fmt.Errorf("invalid DB_ADDR: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("DB_ADDR must use the postgres scheme, got %q", u.Scheme)
	}
	if u.Host == "" || strings.Trim(u.Path, "/") == "" {
		return fmt.Errorf("DB_ADDR must name a host and a database")
	}
	return nil
}

// loadDotEnv is best-effort; a missing .env is the normal case in containers.
func loadDotEnv() {
	_ = godotenv.Load()
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}
