package repository

import (
	"context"
	"sync"
	"time"

	"github.com/vritti-ai-platforms/api-nexus/internal/verification/domain"
)

// MemoryRepository keeps reset codes in process memory, one per user.
// Returned records are copies.
type MemoryRepository struct {
	mu     sync.Mutex
	byUser map[string]*domain.Record
}

// NewMemoryRepository returns an empty in-memory verification store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byUser: make(map[string]*domain.Record)}
}

func (r *MemoryRepository) Upsert(ctx context.Context, rec *domain.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.byUser[rec.UserID] = copyRecord(rec)
	return nil
}

func (r *MemoryRepository) GetByUserID(ctx context.Context, userID string) (*domain.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byUser[userID]; ok {
		return copyRecord(rec), nil
	}
	return nil, nil
}

func (r *MemoryRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec := r.byID(id); rec != nil {
		rec.Attempts++
		return rec.Attempts, nil
	}
	return 0, nil
}

func (r *MemoryRepository) MarkVerified(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec := r.byID(id); rec != nil {
		t := at
		rec.IsVerified = true
		rec.VerifiedAt = &t
	}
	return nil
}

func (r *MemoryRepository) DeleteByUserID(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byUser, userID)
	return nil
}

// Len returns the number of stored records.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

func (r *MemoryRepository) byID(id string) *domain.Record {
	for _, rec := range r.byUser {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func copyRecord(rec *domain.Record) *domain.Record {
	c := *rec
	if rec.VerifiedAt != nil {
		t := *rec.VerifiedAt
		c.VerifiedAt = &t
	}
	return &c
}
