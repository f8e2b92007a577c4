// Package service implements the session lifecycle: creation, rotation,
// validation and invalidation of access/refresh token pairs.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/apperror"
	"github.com/vritti-ai-platforms/api-nexus/internal/metrics"
	"github.com/vritti-ai-platforms/api-nexus/internal/security"
	"github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
	"github.com/vritti-ai-platforms/api-nexus/internal/session/repository"
)

var (
	ErrNoSession = apperror.New(apperror.Unauthenticated, "No Session Found",
		"No active session found. Please log in again.")
	ErrInvalidSession = apperror.New(apperror.Unauthenticated, "Invalid Session",
		"Your session is invalid or has expired. Please log in again.")
	ErrSessionExpired = apperror.New(apperror.Unauthenticated, "Session Expired",
		"Your session has expired. Please log in again.")
	ErrWrongSessionType = apperror.New(apperror.Unauthenticated, "Invalid Session",
		"This session cannot be used for this action.")
)

// SessionRepo is the persistence the lifecycle needs. Lookups return (nil, nil) when absent.
type SessionRepo interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByAccessTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	RotateTokens(ctx context.Context, id, accessTokenHash, refreshTokenHash string, expiresAt time.Time) error
	UpdateAccessTokenHash(ctx context.Context, id, accessTokenHash string) error
	Delete(ctx context.Context, id string) error
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}

// Tokens is a freshly issued pair. ExpiresIn is the access token lifetime in seconds.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// Created is the result of CreateSession.
type Created struct {
	Session *domain.Session
	Tokens
}

// AccessGrant is the result of GenerateAccessToken.
type AccessGrant struct {
	AccessToken string
	ExpiresIn   int64
	UserID      string
	SessionType domain.Type
}

// Lifecycle is the only component that uses the token provider and the session store together.
type Lifecycle struct {
	repo    SessionRepo
	tokens  *security.TokenProvider
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewLifecycle returns a Lifecycle. logger and m may be nil.
func NewLifecycle(repo SessionRepo, tokens *security.TokenProvider, logger *zap.Logger, m *metrics.Metrics) *Lifecycle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lifecycle{repo: repo, tokens: tokens, logger: logger, metrics: m, now: time.Now}
}

// WithClock replaces the time source used for expiry decisions.
func (l *Lifecycle) WithClock(now func() time.Time) *Lifecycle {
	c := *l
	c.now = now
	return &c
}

// CreateSession issues a bound token pair for a new session and stores their hashes.
// ipAddress and userAgent are optional provenance.
func (l *Lifecycle) CreateSession(ctx context.Context, userID string, sessionType domain.Type, ipAddress, userAgent string) (*Created, error) {
	sessionID := uuid.New().String()
	pair, err := l.issuePair(userID, sessionID, sessionType)
	if err != nil {
		return nil, err
	}
	now := l.now().UTC()
	sess := &domain.Session{
		ID:               sessionID,
		UserID:           userID,
		Type:             sessionType,
		AccessTokenHash:  security.HashToken(pair.AccessToken),
		RefreshTokenHash: security.HashToken(pair.RefreshToken),
		IPAddress:        ipAddress,
		UserAgent:        userAgent,
		ExpiresAt:        l.refreshDeadline(now),
		CreatedAt:        now,
	}
	if err := l.repo.Create(ctx, sess); err != nil {
		return nil, apperror.Wrap(err, "create session")
	}
	l.metrics.SessionCreated(string(sessionType))
	l.logger.Info("session created",
		zap.String("session_type", string(sessionType)),
		zap.String("user_id", userID),
		zap.String("session_id", sessionID),
	)
	return &Created{Session: sess, Tokens: *pair}, nil
}

// RefreshTokens validates refreshToken and rotates both tokens. The presented refresh
// token is unusable once this returns successfully. The session deadline slides forward.
func (l *Lifecycle) RefreshTokens(ctx context.Context, refreshToken string) (tokens *Tokens, err error) {
	defer func() { l.metrics.TokenRefresh("rotate", err) }()

	sess, err := l.validateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	pair, err := l.issuePair(sess.UserID, sess.ID, sess.Type)
	if err != nil {
		return nil, err
	}
	expiresAt := l.refreshDeadline(l.now().UTC())
	if err := l.repo.RotateTokens(ctx, sess.ID,
		security.HashToken(pair.AccessToken), security.HashToken(pair.RefreshToken), expiresAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, apperror.Wrap(err, "rotate tokens")
	}
	l.logger.Info("tokens rotated", zap.String("session_id", sess.ID))
	return pair, nil
}

// GenerateAccessToken validates refreshToken and issues a new access token bound to it.
// Only the stored access hash changes.
func (l *Lifecycle) GenerateAccessToken(ctx context.Context, refreshToken string) (grant *AccessGrant, err error) {
	defer func() { l.metrics.TokenRefresh("access", err) }()

	sess, err := l.validateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	access, err := l.tokens.IssueAccess(sess.UserID, sess.ID, string(sess.Type), refreshToken)
	if err != nil {
		return nil, apperror.Wrap(err, "sign access token")
	}
	if err := l.repo.UpdateAccessTokenHash(ctx, sess.ID, security.HashToken(access)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidSession
		}
		return nil, apperror.Wrap(err, "update access token hash")
	}
	l.logger.Info("access token generated", zap.String("user_id", sess.UserID), zap.String("session_id", sess.ID))
	return &AccessGrant{
		AccessToken: access,
		ExpiresIn:   l.tokens.ExpiryInSeconds(security.AccessToken),
		UserID:      sess.UserID,
		SessionType: sess.Type,
	}, nil
}

// InvalidateByAccessToken deletes the session holding accessToken. Unknown tokens are a no-op.
func (l *Lifecycle) InvalidateByAccessToken(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	sess, err := l.repo.GetByAccessTokenHash(ctx, security.HashToken(accessToken))
	if err != nil {
		return apperror.Wrap(err, "find session")
	}
	if sess == nil {
		return nil
	}
	if err := l.repo.Delete(ctx, sess.ID); err != nil {
		return apperror.Wrap(err, "delete session")
	}
	l.metrics.SessionsDeleted("logout", 1)
	l.logger.Info("session invalidated", zap.String("session_id", sess.ID))
	return nil
}

// DeleteAllUserSessions removes every session of the user across devices and returns the count.
func (l *Lifecycle) DeleteAllUserSessions(ctx context.Context, userID string) (int64, error) {
	n, err := l.repo.DeleteAllByUser(ctx, userID)
	if err != nil {
		return 0, apperror.Wrap(err, "delete user sessions")
	}
	l.metrics.SessionsDeleted("cascade", int(n))
	l.logger.Info("user sessions deleted", zap.String("user_id", userID), zap.Int64("count", n))
	return n, nil
}

// ValidateAccessTokenSession returns the live session holding accessToken.
// An expired session is deleted before Unauthenticated is returned.
func (l *Lifecycle) ValidateAccessTokenSession(ctx context.Context, accessToken string) (*domain.Session, error) {
	if accessToken == "" {
		return nil, ErrNoSession
	}
	sess, err := l.repo.GetByAccessTokenHash(ctx, security.HashToken(accessToken))
	if err != nil {
		return nil, apperror.Wrap(err, "find session")
	}
	return l.ensureValid(ctx, sess)
}

// ListUserSessions returns the user's sessions, newest first.
func (l *Lifecycle) ListUserSessions(ctx context.Context, userID string) ([]*domain.Session, error) {
	list, err := l.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperror.Wrap(err, "list sessions")
	}
	return list, nil
}

// RequireType fails with Unauthenticated unless sess has one of the allowed types.
func RequireType(sess *domain.Session, allowed ...domain.Type) error {
	if sess == nil {
		return ErrInvalidSession
	}
	for _, t := range allowed {
		if sess.Type == t {
			return nil
		}
	}
	return ErrWrongSessionType
}

func (l *Lifecycle) validateRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error) {
	if refreshToken == "" {
		return nil, ErrNoSession
	}
	sess, err := l.repo.GetByRefreshTokenHash(ctx, security.HashToken(refreshToken))
	if err != nil {
		return nil, apperror.Wrap(err, "find session")
	}
	return l.ensureValid(ctx, sess)
}

func (l *Lifecycle) ensureValid(ctx context.Context, sess *domain.Session) (*domain.Session, error) {
	if sess == nil {
		return nil, ErrInvalidSession
	}
	if sess.Expired(l.now()) {
		if err := l.repo.Delete(ctx, sess.ID); err != nil {
			l.logger.Warn("delete expired session failed", zap.String("session_id", sess.ID), zap.Error(err))
		} else {
			l.metrics.SessionsDeleted("expired", 1)
		}
		return nil, ErrSessionExpired
	}
	return sess, nil
}

func (l *Lifecycle) issuePair(userID, sessionID string, sessionType domain.Type) (*Tokens, error) {
	refresh, err := l.tokens.IssueRefresh(userID, sessionID, string(sessionType))
	if err != nil {
		return nil, apperror.Wrap(err, "sign refresh token")
	}
	access, err := l.tokens.IssueAccess(userID, sessionID, string(sessionType), refresh)
	if err != nil {
		return nil, apperror.Wrap(err, "sign access token")
	}
	return &Tokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    l.tokens.ExpiryInSeconds(security.AccessToken),
	}, nil
}

func (l *Lifecycle) refreshDeadline(now time.Time) time.Time {
	return now.Add(time.Duration(l.tokens.ExpiryInSeconds(security.RefreshToken)) * time.Second)
}
