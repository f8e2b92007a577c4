// Worker consumes password reset jobs from Kafka and sends them through Brevo.
// Set NOTIFY_KAFKA_BROKERS, NOTIFY_KAFKA_TOPIC, KAFKA_GROUP_ID, BREVO_API_KEY and SENDER_EMAIL.
// JWT_SECRET is required by config but unused.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/config"
	"github.com/vritti-ai-platforms/api-nexus/internal/logging"
	"github.com/vritti-ai-platforms/api-nexus/internal/metrics"
	"github.com/vritti-ai-platforms/api-nexus/internal/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Component(logging.New(cfg.LogLevel, cfg.Env), "worker")
	defer func() { _ = logger.Sync() }()

	brokers := cfg.NotifyKafkaBrokersList()
	if len(brokers) == 0 {
		logger.Fatal("NOTIFY_KAFKA_BROKERS is required")
	}
	if cfg.BrevoAPIKey == "" || cfg.SenderEmail == "" {
		logger.Fatal("BREVO_API_KEY and SENDER_EMAIL are required")
	}

	reader := notification.NewKafkaReader(brokers, cfg.NotifyKafkaTopic, cfg.KafkaGroupID)
	defer reader.Close()

	m := metrics.New()
	brevo := notification.NewBrevoClient(cfg.BrevoAPIKey, cfg.BrevoBaseURL, cfg.SenderEmail, cfg.SenderName)
	sender := notification.NotifierFunc(func(ctx context.Context, msg notification.PasswordReset) error {
		err := brevo.SendPasswordReset(ctx, msg)
		m.NotificationSent(err)
		return err
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("consuming password reset jobs",
		zap.String("topic", cfg.NotifyKafkaTopic),
		zap.String("group", cfg.KafkaGroupID),
	)
	if err := notification.Consume(ctx, reader, sender, logger); err != nil {
		logger.Error("consume stopped", zap.Error(err))
		return
	}
	logger.Info("worker stopped")
}
