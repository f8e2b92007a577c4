package notification

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// JobTypePasswordReset tags queued reset emails.
const JobTypePasswordReset = "password_reset"

const writeTimeout = 5 * time.Second

// Job is the Kafka message body consumed by cmd/worker.
type Job struct {
	Type          string        `json:"type"`
	PasswordReset PasswordReset `json:"passwordReset"`
}

// MessageWriter is the subset of *kafka.Writer used by KafkaNotifier.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier queues reset emails on a Kafka topic. Delivery happens in cmd/worker.
type KafkaNotifier struct {
	writer MessageWriter
}

// NewKafkaNotifier returns a notifier writing to topic. Returns nil when brokers or topic are empty.
// Call Close when shutting down.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaNotifier{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}}
}

// SendPasswordReset serializes the job as JSON and writes it keyed by user id,
// so jobs for one user stay ordered.
func (n *KafkaNotifier) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	if n == nil || n.writer == nil {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(Job{Type: JobTypePasswordReset, PasswordReset: msg})
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return n.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(msg.UserID),
		Value: payload,
	})
}

// Close closes the Kafka writer. Safe to call on nil.
func (n *KafkaNotifier) Close() error {
	if n == nil || n.writer == nil {
		return nil
	}
	return n.writer.Close()
}

// MessageReader is the subset of *kafka.Reader used by Consume.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaReader returns a consumer-group reader for the notification topic.
func NewKafkaReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
}

// Consume fetches jobs until ctx is cancelled and hands each to sender. A job is
// committed after one delivery attempt whether it succeeded or not; failures are
// logged, matching the best-effort contract of direct sends. Malformed messages are
// logged and committed.
func Consume(ctx context.Context, reader MessageReader, sender Notifier, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		handleJob(ctx, m, sender, logger)
		if err := reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("commit notification job failed", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func handleJob(ctx context.Context, m kafka.Message, sender Notifier, logger *zap.Logger) {
	var job Job
	if err := json.Unmarshal(m.Value, &job); err != nil {
		logger.Error("malformed notification job", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	if job.Type != JobTypePasswordReset {
		logger.Warn("unknown notification job type", zap.String("type", job.Type), zap.Int64("offset", m.Offset))
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, defaultBrevoTimeout*defaultMaxTries)
	defer cancel()
	if err := sender.SendPasswordReset(sendCtx, job.PasswordReset); err != nil {
		logger.Error("password reset email failed", zap.String("user_id", job.PasswordReset.UserID), zap.Error(err))
		return
	}
	logger.Info("password reset email sent", zap.String("user_id", job.PasswordReset.UserID))
}
