package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/metrics"
)

// DefaultSendTimeout bounds a single background send.
const DefaultSendTimeout = 30 * time.Second

// Dispatcher sends notifications in the background so request handlers never wait
// on email delivery. Failures are logged and counted, never returned.
type Dispatcher struct {
	notifier Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
	timeout  time.Duration

	mu     sync.RWMutex
	wg     sync.WaitGroup
	closed bool
}

// NewDispatcher returns a Dispatcher. logger and m may be nil; timeout <= 0 uses DefaultSendTimeout.
func NewDispatcher(notifier Notifier, logger *zap.Logger, m *metrics.Metrics, timeout time.Duration) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Dispatcher{notifier: notifier, logger: logger, metrics: m, timeout: timeout}
}

// DispatchPasswordReset starts the send and returns immediately. The send uses its own
// context so request cancellation does not abort it. After Close, messages are dropped.
func (d *Dispatcher) DispatchPasswordReset(msg PasswordReset) {
	if d == nil || d.notifier == nil {
		return
	}
	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		d.logger.Warn("dispatcher closed, dropping password reset email", zap.String("user_id", msg.UserID))
		return
	}
	d.wg.Add(1)
	d.mu.RUnlock()
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		err := d.notifier.SendPasswordReset(ctx, msg)
		d.metrics.NotificationSent(err)
		if err != nil {
			d.logger.Error("password reset email failed", zap.String("user_id", msg.UserID), zap.Error(err))
			return
		}
		d.logger.Info("password reset email sent", zap.String("user_id", msg.UserID))
	}()
}

// Close stops accepting messages and waits for in-flight sends or ctx, whichever is first.
func (d *Dispatcher) Close(ctx context.Context) error {
	if d == nil {
		return nil
	}
	// Add only happens under the read lock, so no Add can race the Wait below.
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
