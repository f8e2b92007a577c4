// Package service implements the password-reset state machine:
// request a code, verify it within the attempt limit, then set a new
// password inside the reset window.
package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/apperror"
	"github.com/vritti-ai-platforms/api-nexus/internal/metrics"
	"github.com/vritti-ai-platforms/api-nexus/internal/notification"
	"github.com/vritti-ai-platforms/api-nexus/internal/otp"
	sessiondomain "github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
	sessionsvc "github.com/vritti-ai-platforms/api-nexus/internal/session/service"
	"github.com/vritti-ai-platforms/api-nexus/internal/telemetry"
	userdomain "github.com/vritti-ai-platforms/api-nexus/internal/user/domain"
	"github.com/vritti-ai-platforms/api-nexus/internal/verification/domain"
)

// ResetWindow is how long after verification the new password may be set.
const ResetWindow = 10 * time.Minute

// Fixed response messages.
const (
	MessageResetRequested = "If an account exists, a reset code has been sent."
	MessageCodeResent     = "Verification code sent successfully."
	MessageCodeVerified   = "Code verified successfully."
	MessagePasswordReset  = "Password has been reset successfully."
)

const minPasswordLength = 8

var (
	ErrNoResetCode = apperror.New(apperror.NotFound, "No Reset Code Found",
		"No active password reset was found. Please request a new reset code.")
	ErrCodeExpired = apperror.New(apperror.Expired, "Code Expired",
		"Your reset code has expired. Please request a new password reset.").WithField("otp")
	ErrTooManyAttempts = apperror.New(apperror.RateLimited, "Too Many Attempts",
		"You have exceeded the maximum number of attempts. Please request a new password reset.").WithField("otp")
	ErrInvalidCode = apperror.New(apperror.InvalidCode, "Invalid Code",
		"The code you entered is incorrect. Please check and try again.").WithField("otp")
	ErrMalformedCode = apperror.New(apperror.Validation, "Invalid Code",
		"The reset code must be exactly 6 digits.").WithField("otp")
	ErrNoVerifiedCode = apperror.New(apperror.NotFound, "OTP Not Verified",
		"Please verify the reset code before setting a new password.")
	ErrCodeNotVerified = apperror.New(apperror.Validation, "OTP Not Verified",
		"Please verify the reset code before setting a new password.")
	ErrResetWindowElapsed = apperror.New(apperror.Expired, "Session Expired",
		"Your password reset session has expired. Please request a new password reset.")
	ErrUserNotFound = apperror.New(apperror.NotFound, "User Not Found",
		"The account for this session no longer exists.")
	ErrWeakPassword = apperror.New(apperror.Validation, "Weak Password",
		"Password must be at least 8 characters and contain an uppercase letter, a lowercase letter, a number and a special character.").WithField("newPassword")
)

// UserDirectory is the user lookup and password store the workflow needs.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	SetPassword(ctx context.Context, id, passwordHash string, at time.Time) error
}

// CodeStore persists the single active reset code per user.
type CodeStore interface {
	Upsert(ctx context.Context, rec *domain.Record) error
	GetByUserID(ctx context.Context, userID string) (*domain.Record, error)
	IncrementAttempts(ctx context.Context, id string) (int, error)
	MarkVerified(ctx context.Context, id string, at time.Time) error
}

// Sessions is the subset of the session lifecycle the workflow drives.
type Sessions interface {
	CreateSession(ctx context.Context, userID string, sessionType sessiondomain.Type, ipAddress, userAgent string) (*sessionsvc.Created, error)
	DeleteAllUserSessions(ctx context.Context, userID string) (int64, error)
}

// SecretHasher hashes codes and passwords.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(encoded, secret string) (bool, error)
}

// ResetDispatcher hands the reset email to the background sender.
type ResetDispatcher interface {
	DispatchPasswordReset(msg notification.PasswordReset)
}

// Options are the tunables read from config.
type Options struct {
	OTPTTL         time.Duration
	OTPMaxAttempts int
}

// RequestResult is returned by RequestPasswordReset. Session is nil when no code was sent;
// callers must not reveal that difference in the response.
type RequestResult struct {
	Message string
	Session *sessionsvc.Created
}

// ResetResult is returned by ResetPassword with the fresh PRIMARY session.
type ResetResult struct {
	Message string
	Session *sessionsvc.Created
	// SessionsClosed is how many sessions the user held before the reset.
	SessionsClosed int64
}

// Workflow drives the password-reset flow.
type Workflow struct {
	users      UserDirectory
	codes      CodeStore
	sessions   Sessions
	hasher     SecretHasher
	dispatcher ResetDispatcher
	emitter    telemetry.EventEmitter
	logger     *zap.Logger
	metrics    *metrics.Metrics
	opts       Options
	now        func() time.Time
	generate   func() (string, error)
}

// NewWorkflow returns a Workflow. dispatcher, emitter, logger and m may be nil.
func NewWorkflow(users UserDirectory, codes CodeStore, sessions Sessions, hasher SecretHasher, dispatcher ResetDispatcher, emitter telemetry.EventEmitter, logger *zap.Logger, m *metrics.Metrics, opts Options) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 5 * time.Minute
	}
	if opts.OTPMaxAttempts <= 0 {
		opts.OTPMaxAttempts = 5
	}
	return &Workflow{
		users:      users,
		codes:      codes,
		sessions:   sessions,
		hasher:     hasher,
		dispatcher: dispatcher,
		emitter:    emitter,
		logger:     logger,
		metrics:    m,
		opts:       opts,
		now:        time.Now,
		generate:   otp.Generate,
	}
}

// WithClock replaces the time source used for code expiry and the reset window.
func (w *Workflow) WithClock(now func() time.Time) *Workflow {
	c := *w
	c.now = now
	return &c
}

// RequestPasswordReset sends a code to the account behind email and opens a RESET session.
// Unknown and passwordless accounts get the same message with no code and no session.
func (w *Workflow) RequestPasswordReset(ctx context.Context, email, ipAddress, userAgent string) (*RequestResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := w.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Wrap(err, "find user")
	}
	if u == nil {
		w.metrics.ResetRequested("unknown")
		w.logger.Info("password reset requested for unknown email")
		return &RequestResult{Message: MessageResetRequested}, nil
	}
	if !u.HasPassword() {
		w.metrics.ResetRequested("no_password")
		w.logger.Info("password reset requested for passwordless user", zap.String("user_id", u.ID))
		return &RequestResult{Message: MessageResetRequested}, nil
	}

	if err := w.issueCode(ctx, u); err != nil {
		return nil, err
	}
	created, err := w.sessions.CreateSession(ctx, u.ID, sessiondomain.TypeReset, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	w.metrics.ResetRequested("sent")
	w.logger.Info("reset session created", zap.String("user_id", u.ID), zap.String("session_id", created.Session.ID))
	telemetry.EmitAsync(w.emitter, w.logger, &telemetry.Event{
		EventType: telemetry.EventPasswordResetRequest,
		UserID:    u.ID,
		SessionID: created.Session.ID,
	})
	return &RequestResult{Message: MessageResetRequested, Session: created}, nil
}

// ResendResetOtp replaces the user's code with a fresh one and resets the attempt counter.
// The caller must already hold a RESET session for userID.
func (w *Workflow) ResendResetOtp(ctx context.Context, userID string) (string, error) {
	u, err := w.users.GetByID(ctx, userID)
	if err != nil {
		return "", apperror.Wrap(err, "find user")
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	if err := w.issueCode(ctx, u); err != nil {
		return "", err
	}
	w.metrics.ResetRequested("resent")
	w.logger.Info("reset code resent", zap.String("user_id", u.ID))
	return MessageCodeResent, nil
}

// VerifyResetOtp checks code against the user's active record. A wrong code consumes an
// attempt; once attempts reach the limit every call fails RateLimited, even with the right code.
func (w *Workflow) VerifyResetOtp(ctx context.Context, code, userID string) (string, error) {
	if !otp.Valid(code) {
		return "", ErrMalformedCode
	}
	rec, err := w.codes.GetByUserID(ctx, userID)
	if err != nil {
		return "", apperror.Wrap(err, "find reset code")
	}
	if rec == nil {
		w.metrics.OTPVerified("not_found")
		return "", ErrNoResetCode
	}
	now := w.now().UTC()
	if rec.Expired(now) {
		w.metrics.OTPVerified("expired")
		return "", ErrCodeExpired
	}
	if rec.Attempts >= w.opts.OTPMaxAttempts {
		w.metrics.OTPVerified("rate_limited")
		return "", ErrTooManyAttempts
	}

	ok, err := w.hasher.Verify(rec.OTPHash, code)
	if err != nil {
		return "", apperror.Wrap(err, "verify reset code")
	}
	if !ok {
		attempts, err := w.codes.IncrementAttempts(ctx, rec.ID)
		if err != nil {
			return "", apperror.Wrap(err, "record attempt")
		}
		telemetry.EmitAsync(w.emitter, w.logger, &telemetry.Event{
			EventType:  telemetry.EventResetOTPFailed,
			UserID:     userID,
			Attributes: map[string]string{"attempts": strconv.Itoa(attempts)},
		})
		if attempts >= w.opts.OTPMaxAttempts {
			w.metrics.OTPVerified("rate_limited")
			w.logger.Warn("reset code attempts exhausted", zap.String("user_id", userID))
			return "", ErrTooManyAttempts
		}
		w.metrics.OTPVerified("invalid")
		return "", ErrInvalidCode
	}

	if err := w.codes.MarkVerified(ctx, rec.ID, now); err != nil {
		return "", apperror.Wrap(err, "mark verified")
	}
	w.metrics.OTPVerified("verified")
	w.logger.Info("reset code verified", zap.String("user_id", userID))
	telemetry.EmitAsync(w.emitter, w.logger, &telemetry.Event{
		EventType: telemetry.EventResetOTPVerified,
		UserID:    userID,
	})
	return MessageCodeVerified, nil
}

// ResetPassword sets newPassword when the code was verified at most ResetWindow ago.
// Every session of the user is closed, including the caller's, and a PRIMARY session is returned.
// The verified record is left in place; the elapsed window makes it unusable.
func (w *Workflow) ResetPassword(ctx context.Context, newPassword, userID string) (*ResetResult, error) {
	if err := ValidatePassword(newPassword); err != nil {
		return nil, err
	}
	rec, err := w.codes.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, "find reset code")
	}
	if rec == nil {
		return nil, ErrNoVerifiedCode
	}
	if !rec.IsVerified || rec.VerifiedAt == nil {
		return nil, ErrCodeNotVerified
	}
	now := w.now().UTC()
	if !rec.WithinWindow(now, ResetWindow) {
		return nil, ErrResetWindowElapsed
	}

	hash, err := w.hasher.Hash(newPassword)
	if err != nil {
		return nil, apperror.Wrap(err, "hash password")
	}
	if err := w.users.SetPassword(ctx, userID, hash, now); err != nil {
		return nil, apperror.Wrap(err, "set password")
	}
	closed, err := w.sessions.DeleteAllUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}
	created, err := w.sessions.CreateSession(ctx, userID, sessiondomain.TypePrimary, "", "")
	if err != nil {
		return nil, err
	}
	w.logger.Info("password reset completed", zap.String("user_id", userID), zap.Int64("sessions_closed", closed))
	telemetry.EmitAsync(w.emitter, w.logger, &telemetry.Event{
		EventType: telemetry.EventPasswordResetComplete,
		UserID:    userID,
		SessionID: created.Session.ID,
	})
	return &ResetResult{Message: MessagePasswordReset, Session: created, SessionsClosed: closed}, nil
}

// ValidatePassword enforces the reset password policy: at least 8 characters with
// upper, lower, digit and special characters.
func ValidatePassword(p string) error {
	if len(p) < minPasswordLength {
		return ErrWeakPassword
	}
	var upper, lower, digit, special bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return ErrWeakPassword
	}
	return nil
}

// issueCode generates a code, stores its hash over any previous record, and queues the email.
func (w *Workflow) issueCode(ctx context.Context, u *userdomain.User) error {
	code, err := w.generate()
	if err != nil {
		return apperror.Wrap(err, "generate code")
	}
	hash, err := w.hasher.Hash(code)
	if err != nil {
		return apperror.Wrap(err, "hash code")
	}
	now := w.now().UTC()
	rec := &domain.Record{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		OTPHash:   hash,
		ExpiresAt: now.Add(w.opts.OTPTTL),
		CreatedAt: now,
	}
	if err := w.codes.Upsert(ctx, rec); err != nil {
		return apperror.Wrap(err, "store reset code")
	}
	if w.dispatcher != nil {
		w.dispatcher.DispatchPasswordReset(notification.PasswordReset{
			UserID:      u.ID,
			Email:       u.Email,
			Code:        code,
			ExpiresAt:   rec.ExpiresAt,
			DisplayName: u.FullName,
		})
	}
	return nil
}
