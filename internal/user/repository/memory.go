package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vritti-ai-platforms/api-nexus/internal/user/domain"
)

// ErrDuplicateEmail is returned by MemoryRepository when the email is taken.
var ErrDuplicateEmail = errors.New("email already exists")

// MemoryRepository keeps users in process memory for local runs and tests.
// Returned users are copies.
type MemoryRepository struct {
	mu sync.Mutex
	m  map[string]*domain.User
}

// NewMemoryRepository returns an empty in-memory user store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{m: make(map[string]*domain.User)}
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[id]; ok {
		return copyUser(u), nil
	}
	return nil, nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.m {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.m {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrDuplicateEmail
		}
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	u.IsActive = true
	r.m[u.ID] = copyUser(u)
	return nil
}

func (r *MemoryRepository) UpsertByExternalID(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u.ExternalID == "" {
		return nil, errors.New("external id is required")
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	for _, existing := range r.m {
		if existing.ExternalID == u.ExternalID {
			existing.Email = u.Email
			existing.FullName = u.FullName
			existing.Role = u.Role
			existing.UpdatedAt = time.Now().UTC()
			out := copyUser(existing)
			r.mu.Unlock()
			return out, nil
		}
	}
	r.mu.Unlock()
	c := copyUser(u)
	c.ID = ""
	if err := r.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *MemoryRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[id]; ok {
		t := at
		u.LastLoginAt = &t
	}
	return nil
}

func (r *MemoryRepository) SetPassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.m[id]; ok {
		u.PasswordHash = passwordHash
		u.Status = domain.StatusActive
		u.UpdatedAt = at
	}
	return nil
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}
