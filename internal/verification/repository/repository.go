package repository

import (
	"context"
	"time"

	"github.com/vritti-ai-platforms/api-nexus/internal/verification/domain"
)

// Repository defines persistence for reset codes. GetByUserID returns (nil, nil) when absent.
type Repository interface {
	// Upsert deletes any record of the user and inserts rec in one transaction.
	Upsert(ctx context.Context, rec *domain.Record) error
	GetByUserID(ctx context.Context, userID string) (*domain.Record, error)
	// IncrementAttempts atomically adds one to the attempt counter and returns the new value.
	IncrementAttempts(ctx context.Context, id string) (int, error)
	// MarkVerified sets is_verified and verified_at in the same write.
	MarkVerified(ctx context.Context, id string, at time.Time) error
	DeleteByUserID(ctx context.Context, userID string) error
}
