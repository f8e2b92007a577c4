// Package devotp keeps the plain reset code per user so local clients can read it
// from GET /dev/reset-otp. Only wired when OTP_RETURN_TO_CLIENT is enabled outside production.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds plain reset codes by user id for dev-only retrieval. Not used in production.
type Store interface {
	// Put stores otp for userID until expiresAt, replacing any previous code.
	Put(ctx context.Context, userID, otp string, expiresAt time.Time) error
	// Get returns the otp for userID if present and not expired. ok is false if missing or expired.
	Get(ctx context.Context, userID string) (otp string, ok bool, err error)
}

type entry struct {
	otp       string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: time.Now,
	}
}

// Put stores otp for userID until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, userID, otp string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[userID] = entry{otp: otp, expiresAt: expiresAt}
	return nil
}

// Get returns the otp for userID if present and not expired. Expired entries are dropped.
func (s *MemoryStore) Get(ctx context.Context, userID string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.m[userID]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, userID)
		s.mu.Unlock()
		return "", false, nil
	}
	return e.otp, true, nil
}
