package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
)

// MemoryRepository keeps sessions in process memory. It backs local runs without
// DATABASE_URL and the service tests. Returned sessions are copies.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.Session
}

// NewMemoryRepository returns an empty in-memory session store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.Session)}
}

func (r *MemoryRepository) Create(ctx context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *s
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	r.m[s.ID] = &c
	return nil
}

func (r *MemoryRepository) GetByAccessTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	return r.find(func(s *domain.Session) bool { return s.AccessTokenHash == hash }), nil
}

func (r *MemoryRepository) GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	return r.find(func(s *domain.Session) bool { return s.RefreshTokenHash == hash }), nil
}

func (r *MemoryRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Session
	for _, s := range r.m {
		if s.UserID == userID {
			c := *s
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) RotateTokens(ctx context.Context, id, accessTokenHash, refreshTokenHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return ErrNotFound
	}
	s.AccessTokenHash = accessTokenHash
	s.RefreshTokenHash = refreshTokenHash
	s.ExpiresAt = expiresAt
	return nil
}

func (r *MemoryRepository) UpdateAccessTokenHash(ctx context.Context, id, accessTokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.m[id]
	if !ok {
		return ErrNotFound
	}
	s.AccessTokenHash = accessTokenHash
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.m, id)
	return nil
}

func (r *MemoryRepository) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.m {
		if s.UserID == userID {
			delete(r.m, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.m)
}

func (r *MemoryRepository) find(match func(*domain.Session) bool) *domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.m {
		if match(s) {
			c := *s
			return &c
		}
	}
	return nil
}
