package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const (
	defaultAppEnv        = "development"
	defaultPort          = "5000"
	defaultDatabaseURL   = "growly.db"
	defaultFrontendURL   = "http://localhost:5173"
	defaultLogLevel      = "info"
	defaultAdminJWTTTL   = "12h"
	defaultEmailFrom     = "no-reply@growly.io"
	defaultSMTPPort      = "587"
	defaultPhoneRegion   = "US"
	defaultSubmitLimit   = "10"
	defaultSubmitWindow  = "1m"
	defaultMetricsEnable = "true"
)

type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	AllowedOrigins []string
	LogLevel       string
	SentryDSN      string
	MetricsEnabled bool

	Admin     AdminConfig
	Notify    NotifyConfig
	RateLimit RateLimitConfig
}

type AdminConfig struct {
	// Token is the shared bearer secret compared as-is.
	Token string
	// TokenBcrypt, when set, is a bcrypt hash of the shared secret.
	TokenBcrypt    string
	JWTSecret      string
	JWTTTL         time.Duration
	AllowAnonymous bool
}

type NotifyConfig struct {
	To             string
	From           string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	SendGridAPIKey string
	PhoneRegion    string
}

// Enabled reports whether a recipient is configured.
func (n NotifyConfig) Enabled() bool {
	return n.To != ""
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = defaultAppEnv
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.Port = strings.TrimSpace(getEnv("PORT", defaultPort))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.AllowedOrigins = splitList(getEnv("FRONTEND_URL", defaultFrontendURL))
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))
	cfg.SentryDSN = strings.TrimSpace(os.Getenv("SENTRY_DSN"))
	cfg.MetricsEnabled = parseBoolEnv("METRICS_ENABLED", defaultMetricsEnable)

	cfg.Admin.Token = strings.TrimSpace(os.Getenv("ADMIN_TOKEN"))
	cfg.Admin.TokenBcrypt = strings.TrimSpace(os.Getenv("ADMIN_TOKEN_BCRYPT"))
	cfg.Admin.JWTSecret = strings.TrimSpace(os.Getenv("ADMIN_JWT_SECRET"))
	anonDefault := "false"
	if IsDevelopment(cfg.AppEnv) {
		anonDefault = "true"
	}
	cfg.Admin.AllowAnonymous = parseBoolEnv("ADMIN_ALLOW_ANONYMOUS", anonDefault)

	cfg.Notify.To = strings.TrimSpace(os.Getenv("EMAIL_TO"))
	cfg.Notify.From = strings.TrimSpace(getEnv("EMAIL_FROM", defaultEmailFrom))
	cfg.Notify.SMTPHost = strings.TrimSpace(os.Getenv("SMTP_HOST"))
	cfg.Notify.SMTPUser = strings.TrimSpace(os.Getenv("SMTP_USER"))
	cfg.Notify.SMTPPassword = os.Getenv("SMTP_PASSWORD")
	cfg.Notify.SendGridAPIKey = strings.TrimSpace(os.Getenv("SENDGRID_API_KEY"))
	cfg.Notify.PhoneRegion = strings.ToUpper(strings.TrimSpace(getEnv("PHONE_DEFAULT_REGION", defaultPhoneRegion)))

	var err error
	cfg.Admin.JWTTTL, err = parseDurationEnv("ADMIN_JWT_TTL", defaultAdminJWTTTL)
	if err != nil {
		return nil, err
	}

	cfg.Notify.SMTPPort, err = parseIntEnv("SMTP_PORT", defaultSMTPPort)
	if err != nil {
		return nil, err
	}

	cfg.RateLimit.Requests, err = parseIntEnv("SUBMIT_RATE_LIMIT", defaultSubmitLimit)
	if err != nil {
		return nil, err
	}

	cfg.RateLimit.Window, err = parseDurationEnv("SUBMIT_RATE_WINDOW", defaultSubmitWindow)
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.Admin.JWTTTL <= 0 {
		return fmt.Errorf("ADMIN_JWT_TTL must be > 0")
	}
	if cfg.RateLimit.Requests < 0 {
		return fmt.Errorf("SUBMIT_RATE_LIMIT must be >= 0")
	}
	if cfg.RateLimit.Requests > 0 && cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("SUBMIT_RATE_WINDOW must be > 0")
	}
	if cfg.Notify.SMTPPort <= 0 || cfg.Notify.SMTPPort > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}
	if cfg.Admin.TokenBcrypt != "" {
		if _, err := bcrypt.Cost([]byte(cfg.Admin.TokenBcrypt)); err != nil {
			return fmt.Errorf("ADMIN_TOKEN_BCRYPT is not a bcrypt hash: %w", err)
		}
	}

	if IsProdLike(cfg.AppEnv) {
		if !cfg.HasAdminCredentials() {
			return fmt.Errorf("in production ADMIN_TOKEN, ADMIN_TOKEN_BCRYPT or ADMIN_JWT_SECRET must be set")
		}
		if cfg.Admin.AllowAnonymous {
			return fmt.Errorf("in production ADMIN_ALLOW_ANONYMOUS must be false")
		}
		for _, o := range cfg.AllowedOrigins {
			if o == "*" {
				return fmt.Errorf("in production FRONTEND_URL must not be '*'")
			}
		}
	}

	return nil
}

// HasAdminCredentials reports whether any admin secret is configured.
func (c *Config) HasAdminCredentials() bool {
	return c.Admin.Token != "" || c.Admin.TokenBcrypt != "" || c.Admin.JWTSecret != ""
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func IsDevelopment(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "dev" || env == "development" || env == "local"
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
