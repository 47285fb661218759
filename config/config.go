package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Card     CardConfig
	Mpesa    MpesaConfig
	Poller   PollerConfig
	Mail     MailConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig backs the shared rate limiter. Leave Addr empty to use the
// in-memory limiter (single-process deployments only).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JWTConfig struct {
	AccessSecret string
	Issuer       string
}

// CardConfig is the push-confirm rail (Stripe). The payer confirms with the
// client secret; Stripe calls back on /webhooks/card.
type CardConfig struct {
	SecretKey     string
	WebhookSecret string
}

// MpesaConfig is the push-poll rail: STK push through the card-API aggregator.
// WebhookSecret signs the aggregator callback (HMAC-SHA256); empty disables
// verification, development only.
type MpesaConfig struct {
	BaseURL        string
	Email          string
	Password       string
	WebhookBaseURL string
	WebhookSecret  string
	CallTimeout    time.Duration
}

// PollerConfig drives the push-poll watch loop. StaleAfter bounds every
// intent's lifetime regardless of rail: the expiry sweep closes anything
// non-terminal older than this, covering card intents the payer abandoned.
type PollerConfig struct {
	Interval    time.Duration
	Budget      time.Duration
	CallTimeout time.Duration
	StaleAfter  time.Duration
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	AdminTo  string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         env("PORT", "8099"),
			Env:          env("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigins:  []string{env("CORS_ORIGIN", "https://busaratrust.or.ke")},
		},
		Database: DatabaseConfig{
			DSN:             env("DATABASE_DSN", "busara:busara@tcp(localhost:3306)/busara?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			Addr:     env("REDIS_ADDR", ""),
			Password: env("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret: env("JWT_ACCESS_SECRET", "change-me-in-production"),
			Issuer:       env("JWT_ISSUER", "busara"),
		},
		Card: CardConfig{
			SecretKey:     env("STRIPE_SECRET_KEY", ""),
			WebhookSecret: env("STRIPE_WEBHOOK_SECRET", ""),
		},
		Mpesa: MpesaConfig{
			BaseURL:        env("MPESA_BASE_URL", "https://card-api.theliberec.com"),
			Email:          env("MPESA_MERCHANT_EMAIL", ""),
			Password:       env("MPESA_MERCHANT_PASSWORD", ""),
			WebhookBaseURL: env("MPESA_WEBHOOK_BASE_URL", ""),
			WebhookSecret:  env("MPESA_WEBHOOK_SECRET", ""),
			CallTimeout:    envDuration("MPESA_CALL_TIMEOUT", 15*time.Second),
		},
		Poller: PollerConfig{
			Interval:    envDuration("POLL_INTERVAL", 3*time.Second),
			Budget:      envDuration("POLL_BUDGET", 120*time.Second),
			CallTimeout: envDuration("POLL_CALL_TIMEOUT", 10*time.Second),
			StaleAfter:  envDuration("INTENT_STALE_AFTER", 30*time.Minute),
		},
		Mail: MailConfig{
			Host:     env("SMTP_HOST", ""),
			Port:     envInt("SMTP_PORT", 587),
			Username: env("SMTP_USERNAME", ""),
			Password: env("SMTP_PASSWORD", ""),
			From:     env("SMTP_FROM", "payments@busaratrust.or.ke"),
			AdminTo:  env("ADMIN_EMAIL", ""),
		},
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
