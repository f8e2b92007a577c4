// Package notification delivers password reset codes by email, either directly
// through Brevo or queued on Kafka for cmd/worker.
package notification

import (
	"context"
	"errors"
	"time"
)

// ErrNotConfigured is returned when a notifier lacks credentials or a sender.
var ErrNotConfigured = errors.New("notification: not configured")

// PasswordReset is one reset-code email. Code is plaintext and must not be logged.
type PasswordReset struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Code        string    `json:"code"`
	ExpiresAt   time.Time `json:"expiresAt"`
	DisplayName string    `json:"displayName,omitempty"`
}

// Notifier sends password reset notifications.
type Notifier interface {
	SendPasswordReset(ctx context.Context, msg PasswordReset) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg PasswordReset) error

func (f NotifierFunc) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	return f(ctx, msg)
}
