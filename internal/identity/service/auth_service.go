package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/apperror"
	"github.com/vritti-ai-platforms/api-nexus/internal/metrics"
	sessiondomain "github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
	sessionsvc "github.com/vritti-ai-platforms/api-nexus/internal/session/service"
	"github.com/vritti-ai-platforms/api-nexus/internal/telemetry"
	userdomain "github.com/vritti-ai-platforms/api-nexus/internal/user/domain"
)

const minPasswordLength = 8

// Fixed response messages.
const (
	MessageLoggedOut   = "Successfully logged out"
	MessagePasswordSet = "Password set successfully. You can now log in."
)

var (
	ErrInvalidCredentials = apperror.New(apperror.Unauthenticated, "Invalid Credentials",
		"The email or password you entered is incorrect. Please check your credentials and try again.")
	ErrPasswordNotSet = apperror.New(apperror.Unauthenticated, "Password Not Set",
		"Please set a password before logging in. Check your invitation email.")
	ErrPasswordMismatch = apperror.New(apperror.Validation, "Password Mismatch",
		"The passwords you entered do not match. Please try again.").WithField("confirmPassword")
	ErrPasswordAlreadySet = apperror.New(apperror.Validation, "Password Already Set",
		"A password has already been set for this account. Use the login page instead.").WithField("password")
	ErrPasswordTooShort = apperror.New(apperror.Validation, "Invalid Password",
		"Password must be at least 8 characters.").WithField("password")
	ErrUserNotFound = apperror.New(apperror.NotFound, "User Not Found",
		"The account for this session no longer exists.")
)

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	SetPassword(ctx context.Context, id, passwordHash string, at time.Time) error
}

// Sessions is the session lifecycle surface used by the auth service.
type Sessions interface {
	CreateSession(ctx context.Context, userID string, sessionType sessiondomain.Type, ipAddress, userAgent string) (*sessionsvc.Created, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*sessionsvc.Tokens, error)
	GenerateAccessToken(ctx context.Context, refreshToken string) (*sessionsvc.AccessGrant, error)
	InvalidateByAccessToken(ctx context.Context, accessToken string) error
	DeleteAllUserSessions(ctx context.Context, userID string) (int64, error)
	ListUserSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
}

// PasswordHasher hashes and verifies account passwords.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(encoded, secret string) (bool, error)
}

// Profile is the user view returned by Status.
type Profile struct {
	ID          string     `json:"id"`
	ExternalID  *string    `json:"externalId"`
	Email       string     `json:"email"`
	FullName    string     `json:"fullName"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	HasPassword bool       `json:"hasPassword"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt"`
}

// NewProfile builds the public view of u.
func NewProfile(u *userdomain.User) *Profile {
	p := &Profile{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        string(u.Role),
		Status:      string(u.Status),
		HasPassword: u.HasPassword(),
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
	if u.ExternalID != "" {
		ext := u.ExternalID
		p.ExternalID = &ext
	}
	return p
}

// StatusResult is the outcome of Status. Unauthenticated callers get only IsAuthenticated=false.
type StatusResult struct {
	IsAuthenticated bool
	AccessToken     string
	ExpiresIn       int64
	User            *Profile
}

// AuthService implements login, logout, first password setup and session status.
type AuthService struct {
	userRepo UserRepo
	sessions Sessions
	hasher   PasswordHasher
	emitter  telemetry.EventEmitter
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewAuthService returns an AuthService with the given dependencies. emitter, logger and m may be nil.
func NewAuthService(
	userRepo UserRepo,
	sessions Sessions,
	hasher PasswordHasher,
	emitter telemetry.EventEmitter,
	logger *zap.Logger,
	m *metrics.Metrics,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo: userRepo,
		sessions: sessions,
		hasher:   hasher,
		emitter:  emitter,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for last-login and password timestamps.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	c := *s
	c.now = now
	return &c
}

// Login checks credentials and opens a PRIMARY session.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (created *sessionsvc.Created, err error) {
	defer func() { s.metrics.Login(err) }()

	email = strings.TrimSpace(strings.ToLower(email))
	u, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.Wrap(err, "find user")
	}
	if u == nil {
		s.loginFailed("", "unknown_user")
		return nil, ErrInvalidCredentials
	}
	if !u.HasPassword() {
		s.loginFailed(u.ID, "password_not_set")
		return nil, ErrPasswordNotSet
	}
	if u.Status != userdomain.StatusActive {
		s.loginFailed(u.ID, "account_"+strings.ToLower(string(u.Status)))
		return nil, accountUnavailable(u.Status)
	}
	ok, err := s.hasher.Verify(u.PasswordHash, password)
	if err != nil {
		s.logger.Warn("stored password hash is unreadable", zap.String("user_id", u.ID), zap.Error(err))
		ok = false
	}
	if !ok {
		s.loginFailed(u.ID, "invalid_password")
		return nil, ErrInvalidCredentials
	}

	created, err = s.sessions.CreateSession(ctx, u.ID, sessiondomain.TypePrimary, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateLastLogin(ctx, u.ID, s.now().UTC()); err != nil {
		s.logger.Warn("update last login failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	s.logger.Info("user logged in", zap.String("user_id", u.ID), zap.String("session_id", created.Session.ID))
	telemetry.EmitAsync(s.emitter, s.logger, &telemetry.Event{
		EventType: telemetry.EventLogin,
		UserID:    u.ID,
		SessionID: created.Session.ID,
	})
	return created, nil
}

// Logout closes the session holding accessToken. Unknown tokens succeed.
func (s *AuthService) Logout(ctx context.Context, accessToken, userID string) (string, error) {
	if err := s.sessions.InvalidateByAccessToken(ctx, accessToken); err != nil {
		return "", err
	}
	s.logger.Info("user logged out", zap.String("user_id", userID))
	telemetry.EmitAsync(s.emitter, s.logger, &telemetry.Event{
		EventType: telemetry.EventLogout,
		UserID:    userID,
	})
	return MessageLoggedOut, nil
}

// SetPassword stores the first password of userID and activates the account.
// Every session of the user, including the SET_PASSWORD one, is closed; the user logs in next.
func (s *AuthService) SetPassword(ctx context.Context, userID, password, confirmPassword string) (string, error) {
	if password != confirmPassword {
		return "", ErrPasswordMismatch
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", apperror.Wrap(err, "find user")
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	if u.HasPassword() {
		return "", ErrPasswordAlreadySet
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", apperror.Wrap(err, "hash password")
	}
	if err := s.userRepo.SetPassword(ctx, u.ID, hash, s.now().UTC()); err != nil {
		return "", apperror.Wrap(err, "set password")
	}
	if _, err := s.sessions.DeleteAllUserSessions(ctx, u.ID); err != nil {
		return "", err
	}
	s.logger.Info("password set", zap.String("user_id", u.ID))
	telemetry.EmitAsync(s.emitter, s.logger, &telemetry.Event{
		EventType: telemetry.EventPasswordSet,
		UserID:    u.ID,
	})
	return MessagePasswordSet, nil
}

// Status reports whether refreshToken belongs to a live session. It never fails:
// any problem yields IsAuthenticated=false.
func (s *AuthService) Status(ctx context.Context, refreshToken string) *StatusResult {
	if refreshToken == "" {
		return &StatusResult{}
	}
	grant, err := s.sessions.GenerateAccessToken(ctx, refreshToken)
	if err != nil {
		return &StatusResult{}
	}
	res := &StatusResult{IsAuthenticated: true, AccessToken: grant.AccessToken, ExpiresIn: grant.ExpiresIn}
	u, err := s.userRepo.GetByID(ctx, grant.UserID)
	if err != nil {
		s.logger.Warn("status: user lookup failed", zap.String("user_id", grant.UserID), zap.Error(err))
		return &StatusResult{}
	}
	if u != nil {
		res.User = NewProfile(u)
	}
	return res
}

// RefreshTokens rotates both tokens of the session holding refreshToken.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*sessionsvc.Tokens, error) {
	return s.sessions.RefreshTokens(ctx, refreshToken)
}

// AccessToken issues a new access token without rotating refreshToken.
func (s *AuthService) AccessToken(ctx context.Context, refreshToken string) (*sessionsvc.AccessGrant, error) {
	return s.sessions.GenerateAccessToken(ctx, refreshToken)
}

// ListSessions returns the user's sessions, newest first.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	return s.sessions.ListUserSessions(ctx, userID)
}

func (s *AuthService) loginFailed(userID, reason string) {
	s.logger.Info("login failed", zap.String("user_id", userID), zap.String("reason", reason))
	telemetry.EmitAsync(s.emitter, s.logger, &telemetry.Event{
		EventType:  telemetry.EventLoginFailed,
		UserID:     userID,
		Attributes: map[string]string{"reason": reason},
	})
}

func accountUnavailable(status userdomain.Status) error {
	return apperror.New(apperror.Unauthenticated, "Account Unavailable",
		"Your account is "+strings.ToLower(string(status))+". Please contact support for assistance.")
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}
