package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/config"
	"github.com/vritti-ai-platforms/api-nexus/internal/db"
	"github.com/vritti-ai-platforms/api-nexus/internal/devotp"
	apphealth "github.com/vritti-ai-platforms/api-nexus/internal/health"
	"github.com/vritti-ai-platforms/api-nexus/internal/notification"
	orgrepo "github.com/vritti-ai-platforms/api-nexus/internal/organization/repository"
	"github.com/vritti-ai-platforms/api-nexus/internal/security"
	sessionrepo "github.com/vritti-ai-platforms/api-nexus/internal/session/repository"
	userrepo "github.com/vritti-ai-platforms/api-nexus/internal/user/repository"
	verificationrepo "github.com/vritti-ai-platforms/api-nexus/internal/verification/repository"
)

// stores bundles the repositories. pinger is nil for the in-memory fallback.
type stores struct {
	users    userrepo.Repository
	sessions sessionrepo.Repository
	codes    verificationrepo.Repository
	orgs     orgrepo.Repository
	pinger   apphealth.Pinger
	close    func() error
}

// openStores connects to Postgres, or falls back to memory when DATABASE_URL is unset outside production.
func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return nil, errors.New("DATABASE_URL is required in production")
		}
		logger.Warn("DATABASE_URL not set; using in-memory stores, data is lost on restart")
		return &stores{
			users:    userrepo.NewMemoryRepository(),
			sessions: sessionrepo.NewMemoryRepository(),
			codes:    verificationrepo.NewMemoryRepository(),
			orgs:     orgrepo.NewMemoryRepository(),
			close:    func() error { return nil },
		}, nil
	}
	conn, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultPoolOptions)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	return &stores{
		users:    userrepo.NewPostgresRepository(conn),
		sessions: sessionrepo.NewPostgresRepository(conn),
		codes:    verificationrepo.NewPostgresRepository(conn),
		orgs:     orgrepo.NewPostgresRepository(conn),
		pinger:   conn,
		close:    conn.Close,
	}, nil
}

// newTokenProvider signs with the key pair when one is configured, else with JWT_SECRET.
func newTokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey != "" && cfg.JWTPublicKey != "" {
		signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("jwt keys: %w", err)
		}
		return security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
	}
	return security.NewHMACTokenProvider([]byte(cfg.JWTSecret), cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL())
}

func newHasher(cfg *config.Config) *security.Hasher {
	return security.NewHasher(security.Argon2Params{
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})
}

// notifierSetup is the chosen delivery path. devStore is nil unless codes are exposed for local testing.
type notifierSetup struct {
	notifier notification.Notifier
	devStore devotp.Store
	closers  []func() error
}

func (n *notifierSetup) close() {
	for _, c := range n.closers {
		_ = c()
	}
}

// newNotifier queues on Kafka when brokers are set, else sends through Brevo, else only logs.
// With OTP_RETURN_TO_CLIENT the code is also kept in a dev store (Redis when REDIS_URL is set).
func newNotifier(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*notifierSetup, error) {
	setup := &notifierSetup{}
	switch brokers := cfg.NotifyKafkaBrokersList(); {
	case len(brokers) > 0:
		k := notification.NewKafkaNotifier(brokers, cfg.NotifyKafkaTopic)
		setup.notifier = k
		setup.closers = append(setup.closers, k.Close)
		logger.Info("reset codes queued on kafka", zap.Strings("brokers", brokers), zap.String("topic", cfg.NotifyKafkaTopic))
	case cfg.BrevoAPIKey != "":
		setup.notifier = notification.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoBaseURL, cfg.SenderEmail, cfg.SenderName)
		logger.Info("reset codes sent through brevo")
	default:
		logger.Warn("no email transport configured; reset codes are not delivered")
		setup.notifier = notification.NotifierFunc(func(ctx context.Context, msg notification.PasswordReset) error {
			logger.Warn("reset code not delivered", zap.String("user_id", msg.UserID))
			return nil
		})
	}

	if !cfg.OTPReturnToClient || cfg.IsProduction() {
		return setup, nil
	}
	var store devotp.Store = devotp.NewMemoryStore()
	if cfg.RedisURL != "" {
		client, err := devotp.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			setup.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		store = devotp.NewRedisStore(client)
		setup.closers = append(setup.closers, client.Close)
	}
	setup.devStore = store
	setup.notifier = &notification.DevNotifier{Store: store, Next: setup.notifier}
	logger.Warn("OTP_RETURN_TO_CLIENT enabled; reset codes readable at /dev/reset-otp")
	return setup, nil
}
