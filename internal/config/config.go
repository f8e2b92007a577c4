// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
// It is built once at startup and passed by value or pointer; nothing mutates it afterwards.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :3000).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// JWTSecret is the HS256 signing secret. Ignored when a key pair is configured.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	JWTIssuer    string `mapstructure:"JWT_ISSUER"`
	JWTAudience  string `mapstructure:"JWT_AUDIENCE"`
	// AccessTokenExpiry is the access token lifetime, "<n>s|m|h".
	AccessTokenExpiry string `mapstructure:"ACCESS_TOKEN_EXPIRY"`
	// RefreshTokenExpiry is the refresh token and session lifetime, "<n>s|m|h".
	RefreshTokenExpiry string `mapstructure:"REFRESH_TOKEN_EXPIRY"`

	// OTPExpiry is how long a reset code stays valid, "<n>s|m|h".
	OTPExpiry string `mapstructure:"OTP_EXPIRY"`
	// OTPMaxAttempts is the number of wrong codes allowed before verification is refused.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// OTPReturnToClient enables the dev OTP store and GET /dev/reset-otp. Rejected when APP_ENV=production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	Argon2MemoryKiB   uint32 `mapstructure:"ARGON2_MEMORY_KIB"`
	Argon2Iterations  uint32 `mapstructure:"ARGON2_ITERATIONS"`
	Argon2Parallelism uint8  `mapstructure:"ARGON2_PARALLELISM"`

	RefreshCookieName string `mapstructure:"REFRESH_COOKIE_NAME"`
	CookieDomain      string `mapstructure:"COOKIE_DOMAIN"`
	CookieSecure      bool   `mapstructure:"COOKIE_SECURE"`
	// CookieSameSite is one of lax, strict, none.
	CookieSameSite string `mapstructure:"COOKIE_SAME_SITE"`

	// BrevoAPIKey enables direct email delivery through the Brevo transactional API.
	BrevoAPIKey  string `mapstructure:"BREVO_API_KEY"`
	BrevoBaseURL string `mapstructure:"BREVO_BASE_URL"`
	SenderEmail  string `mapstructure:"SENDER_EMAIL"`
	SenderName   string `mapstructure:"SENDER_NAME"`

	// NotifyKafkaBrokers is a comma-separated broker list. When set, the server queues
	// reset emails on Kafka and cmd/worker delivers them.
	NotifyKafkaBrokers string `mapstructure:"NOTIFY_KAFKA_BROKERS"`
	NotifyKafkaTopic   string `mapstructure:"NOTIFY_KAFKA_TOPIC"`
	KafkaGroupID       string `mapstructure:"KAFKA_GROUP_ID"`

	// WebhookSecret authenticates POST /api/users/webhook via X-Webhook-Secret.
	// Empty disables the webhook.
	WebhookSecret string `mapstructure:"NEXUS_WEBHOOK_SECRET"`

	// RedisURL backs the dev OTP store when set; otherwise it is in-memory.
	RedisURL string `mapstructure:"REDIS_URL"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	accessTTL  time.Duration
	refreshTTL time.Duration
	otpTTL     time.Duration
}

// CookieConfig describes the refresh-token cookie. Built once by Config.Cookie.
type CookieConfig struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. A malformed expiry string
// or missing signing material is returned as an error; callers treat it as fatal.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "nexus-auth")
	v.SetDefault("JWT_AUDIENCE", "nexus-api")
	v.SetDefault("ACCESS_TOKEN_EXPIRY", "15m")
	v.SetDefault("REFRESH_TOKEN_EXPIRY", "168h")
	v.SetDefault("OTP_EXPIRY", "5m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("ARGON2_MEMORY_KIB", 64*1024)
	v.SetDefault("ARGON2_ITERATIONS", 3)
	v.SetDefault("ARGON2_PARALLELISM", 2)
	v.SetDefault("REFRESH_COOKIE_NAME", "nexus_refresh")
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("COOKIE_SAME_SITE", "strict")
	v.SetDefault("BREVO_API_KEY", "")
	v.SetDefault("BREVO_BASE_URL", "https://api.brevo.com/v3/smtp/email")
	v.SetDefault("SENDER_EMAIL", "")
	v.SetDefault("SENDER_NAME", "")
	v.SetDefault("NOTIFY_KAFKA_BROKERS", "")
	v.SetDefault("NOTIFY_KAFKA_TOPIC", "nexus-notifications")
	v.SetDefault("KAFKA_GROUP_ID", "nexus-notification-worker")
	v.SetDefault("NEXUS_WEBHOOK_SECRET", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	var err error
	if c.accessTTL, err = ParseExpiry(c.AccessTokenExpiry); err != nil {
		return fmt.Errorf("config: ACCESS_TOKEN_EXPIRY: %w", err)
	}
	if c.refreshTTL, err = ParseExpiry(c.RefreshTokenExpiry); err != nil {
		return fmt.Errorf("config: REFRESH_TOKEN_EXPIRY: %w", err)
	}
	if c.otpTTL, err = ParseExpiry(c.OTPExpiry); err != nil {
		return fmt.Errorf("config: OTP_EXPIRY: %w", err)
	}
	if c.OTPMaxAttempts < 1 {
		return errors.New("config: OTP_MAX_ATTEMPTS must be at least 1")
	}
	if c.JWTSecret == "" && (c.JWTPrivateKey == "" || c.JWTPublicKey == "") {
		return errors.New("config: JWT_SECRET or JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set")
	}
	if c.OTPReturnToClient && c.Env == "production" {
		return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
	}
	if c.Argon2Parallelism == 0 {
		c.Argon2Parallelism = 1
	}
	switch strings.ToLower(c.CookieSameSite) {
	case "", "lax", "strict", "none":
	default:
		return fmt.Errorf("config: COOKIE_SAME_SITE must be lax, strict or none, got %q", c.CookieSameSite)
	}
	return nil
}

// AccessTTL is the parsed ACCESS_TOKEN_EXPIRY.
func (c *Config) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL is the parsed REFRESH_TOKEN_EXPIRY.
func (c *Config) RefreshTTL() time.Duration { return c.refreshTTL }

// OTPTTL is the parsed OTP_EXPIRY.
func (c *Config) OTPTTL() time.Duration { return c.otpTTL }

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// Cookie returns the refresh cookie settings. MaxAge follows the refresh token lifetime.
func (c *Config) Cookie() CookieConfig {
	sameSite := http.SameSiteStrictMode
	switch strings.ToLower(c.CookieSameSite) {
	case "lax":
		sameSite = http.SameSiteLaxMode
	case "none":
		sameSite = http.SameSiteNoneMode
	}
	return CookieConfig{
		Name:     c.RefreshCookieName,
		Domain:   c.CookieDomain,
		Path:     "/",
		Secure:   c.CookieSecure,
		SameSite: sameSite,
		MaxAge:   c.refreshTTL,
	}
}

// NotifyKafkaBrokersList returns broker addresses from the comma-separated config.
// An empty list means notifications are sent directly, not queued.
func (c *Config) NotifyKafkaBrokersList() []string {
	if c == nil || c.NotifyKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.NotifyKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
