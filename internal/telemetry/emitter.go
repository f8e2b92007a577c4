// Package telemetry emits auth events (login, logout, password reset) as
// OpenTelemetry log records. Emission is best-effort and never fails a request.
package telemetry

import (
	"context"
	"time"
)

// Event types emitted by the auth services.
const (
	EventLogin                 = "auth.login"
	EventLoginFailed           = "auth.login_failed"
	EventLogout                = "auth.logout"
	EventPasswordSet           = "auth.password_set"
	EventPasswordResetRequest  = "auth.password_reset_requested"
	EventResetOTPVerified      = "auth.reset_otp_verified"
	EventResetOTPFailed        = "auth.reset_otp_failed"
	EventPasswordResetComplete = "auth.password_reset_completed"
)

// SourceAPI marks events raised by the HTTP API.
const SourceAPI = "nexus-api"

// Event is one auth event. Attributes must never carry secrets such as codes or tokens.
type Event struct {
	EventType  string
	UserID     string
	SessionID  string
	Source     string
	Attributes map[string]string
	CreatedAt  time.Time
}

// EventEmitter emits telemetry events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
