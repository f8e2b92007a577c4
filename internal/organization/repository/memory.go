package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vritti-ai-platforms/api-nexus/internal/organization/domain"
)

// MemoryRepository keeps organizations in process memory for local runs and tests.
// Returned organizations are copies.
type MemoryRepository struct {
	mu          sync.Mutex
	bySubdomain map[string]*domain.Organization
}

// NewMemoryRepository returns an empty in-memory organization store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{bySubdomain: make(map[string]*domain.Organization)}
}

func (r *MemoryRepository) Create(ctx context.Context, o *domain.Organization) error {
	if err := o.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.bySubdomain[o.Subdomain]; ok {
		return ErrSubdomainTaken
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = o.CreatedAt
	c := *o
	r.bySubdomain[o.Subdomain] = &c
	return nil
}

func (r *MemoryRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Organization, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.bySubdomain[subdomain]; ok {
		c := *o
		return &c, nil
	}
	return nil, nil
}
