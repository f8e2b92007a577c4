package repository

import (
	"context"
	"time"

	"github.com/vritti-ai-platforms/api-nexus/internal/user/domain"
)

// Repository defines persistence for users. Lookups return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// UpsertByExternalID inserts u or, when a user with the same external id exists,
	// updates its email, name and role. Returns the stored row.
	UpsertByExternalID(ctx context.Context, u *domain.User) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	// SetPassword stores the hash and marks the user ACTIVE.
	SetPassword(ctx context.Context, id, passwordHash string, at time.Time) error
}
