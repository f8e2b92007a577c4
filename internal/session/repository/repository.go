package repository

import (
	"context"
	"errors"
	"time"

	"github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
)

// ErrNotFound is returned by updates that match no session row.
var ErrNotFound = errors.New("session not found")

// Repository defines persistence for sessions. Lookups return (nil, nil) when no row matches.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	GetByAccessTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	ListByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// RotateTokens overwrites both token hashes and the expiry in one statement.
	// It and UpdateAccessTokenHash return ErrNotFound when the session is gone.
	RotateTokens(ctx context.Context, id, accessTokenHash, refreshTokenHash string, expiresAt time.Time) error
	UpdateAccessTokenHash(ctx context.Context, id, accessTokenHash string) error
	Delete(ctx context.Context, id string) error
	// DeleteAllByUser removes every session of the user and returns how many were removed.
	DeleteAllByUser(ctx context.Context, userID string) (int64, error)
}
