package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vritti-ai-platforms/api-nexus/internal/apperror"
	"github.com/vritti-ai-platforms/api-nexus/internal/metrics"
	"github.com/vritti-ai-platforms/api-nexus/internal/security"
	"github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
	"github.com/vritti-ai-platforms/api-nexus/internal/session/repository"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLifecycle(t *testing.T) (*Lifecycle, *repository.MemoryRepository, *testClock) {
	t.Helper()
	clock := &testClock{t: time.Now().UTC()}
	repo := repository.NewMemoryRepository()
	tokens := security.NewTestTokenProvider().WithClock(clock.Now)
	return NewLifecycle(repo, tokens, nil, metrics.New()).WithClock(clock.Now), repo, clock
}

func TestCreateSession_StoresHashesOfReturnedTokens(t *testing.T) {
	l, repo, clock := newTestLifecycle(t)
	ctx := context.Background()

	other, err := l.CreateSession(ctx, "user-2", domain.TypePrimary, "", "")
	if err != nil {
		t.Fatalf("CreateSession other: %v", err)
	}

	res, err := l.CreateSession(ctx, "user-1", domain.TypeReset, "10.0.0.1", "curl/8")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("empty tokens")
	}
	if res.ExpiresIn != 900 {
		t.Errorf("ExpiresIn = %d, want 900", res.ExpiresIn)
	}

	stored, _ := repo.GetByRefreshTokenHash(ctx, security.HashToken(res.RefreshToken))
	if stored == nil {
		t.Fatal("session not stored under refresh token hash")
	}
	if stored.AccessTokenHash != security.HashToken(res.AccessToken) {
		t.Error("stored access hash does not match returned access token")
	}
	if stored.Type != domain.TypeReset || stored.UserID != "user-1" || stored.IPAddress != "10.0.0.1" || stored.UserAgent != "curl/8" {
		t.Errorf("stored = %+v", stored)
	}
	if want := clock.Now().Add(24 * time.Hour); !stored.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", stored.ExpiresAt, want)
	}

	untouched, _ := repo.GetByRefreshTokenHash(ctx, security.HashToken(other.RefreshToken))
	if untouched == nil || untouched.AccessTokenHash != other.Session.AccessTokenHash {
		t.Error("creating a session modified another session")
	}
}

func TestCreateSession_TokensAreBound(t *testing.T) {
	l, _, _ := newTestLifecycle(t)
	res, err := l.CreateSession(context.Background(), "user-1", domain.TypePrimary, "", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := l.tokens.VerifyPair(res.AccessToken, res.RefreshToken); err != nil {
		t.Errorf("VerifyPair: %v", err)
	}
}

func TestRefreshTokens_RotatesAndRevokesPrevious(t *testing.T) {
	l, repo, clock := newTestLifecycle(t)
	ctx := context.Background()
	created, _ := l.CreateSession(ctx, "user-1", domain.TypePrimary, "", "")

	clock.Advance(time.Hour)
	rotated, err := l.RefreshTokens(ctx, created.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokens: %v", err)
	}
	if rotated.RefreshToken == created.RefreshToken || rotated.AccessToken == created.AccessToken {
		t.Fatal("rotation must issue new tokens")
	}

	if _, err := l.RefreshTokens(ctx, created.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("previous refresh token: err = %v, want ErrInvalidSession", err)
	}
	if _, err := l.ValidateAccessTokenSession(ctx, created.AccessToken); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("previous access token: err = %v, want ErrInvalidSession", err)
	}

	sess, _ := repo.GetByRefreshTokenHash(ctx, security.HashToken(rotated.RefreshToken))
	if sess == nil || sess.ID != created.Session.ID {
		t.Fatal("rotated tokens should belong to the same session")
	}
	if want := clock.Now().Add(24 * time.Hour); !sess.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want slid to %v", sess.ExpiresAt, want)
	}

	again, err := l.RefreshTokens(ctx, rotated.RefreshToken)
	if err != nil {
		t.Fatalf("second rotation: %v", err)
	}
	if _, err := l.RefreshTokens(ctx, rotated.RefreshToken); err == nil {
		t.Error("rotated-out refresh token accepted twice")
	}
	if _, err := l.RefreshTokens(ctx, again.RefreshToken); err != nil {
		t.Errorf("latest refresh token rejected: %v", err)
	}
}

func TestRefreshTokens_MissingToken(t *testing.T) {
	l, _, _ := newTestLifecycle(t)
	_, err := l.RefreshTokens(context.Background(), "")
	if !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
	if apperror.KindOf(err) != apperror.Unauthenticated {
		t.Errorf("kind = %v, want Unauthenticated", apperror.KindOf(err))
	}
}

func TestRefreshTokens_ExpiredSessionIsPurged(t *testing.T) {
	l, repo, clock := newTestLifecycle(t)
	ctx := context.Background()
	created, _ := l.CreateSession(ctx, "user-1", domain.TypePrimary, "", "")

	clock.Advance(24*time.Hour + time.Second)
	if _, err := l.RefreshTokens(ctx, created.RefreshToken); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("err = %v, want ErrSessionExpired", err)
	}
	if repo.Len() != 0 {
		t.Errorf("expired session not deleted, %d rows remain", repo.Len())
	}
	if _, err := l.RefreshTokens(ctx, created.RefreshToken); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("second touch: err = %v, want ErrInvalidSession", err)
	}
}

func TestGenerateAccessToken_KeepsRefreshToken(t *testing.T) {
	l, repo, _ := newTestLifecycle(t)
	ctx := context.Background()
	created, _ := l.CreateSession(ctx, "user-1", domain.TypeSetPassword, "", "")

	grant, err := l.GenerateAccessToken(ctx, created.RefreshToken)
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if grant.UserID != "user-1" || grant.SessionType != domain.TypeSetPassword {
		t.Errorf("grant = %+v", grant)
	}
	if err := l.tokens.VerifyPair(grant.AccessToken, created.RefreshToken); err != nil {
		t.Errorf("new access token not bound to the same refresh token: %v", err)
	}

	sess, _ := repo.GetByRefreshTokenHash(ctx, security.HashToken(created.RefreshToken))
	if sess == nil {
		t.Fatal("refresh hash changed")
	}
	if sess.AccessTokenHash != security.HashToken(grant.AccessToken) {
		t.Error("access hash not overwritten")
	}
	if _, err := l.ValidateAccessTokenSession(ctx, created.AccessToken); err == nil {
		t.Error("replaced access token still validates")
	}
}

func TestInvalidateByAccessToken_Idempotent(t *testing.T) {
	l, repo, _ := newTestLifecycle(t)
	ctx := context.Background()
	created, _ := l.CreateSession(ctx, "user-1", domain.TypePrimary, "", "")

	for i := 0; i < 2; i++ {
		if err := l.InvalidateByAccessToken(ctx, created.AccessToken); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}
	if err := l.InvalidateByAccessToken(ctx, "unknown"); err != nil {
		t.Errorf("unknown token: %v", err)
	}
	if err := l.InvalidateByAccessToken(ctx, ""); err != nil {
		t.Errorf("empty token: %v", err)
	}
	if repo.Len() != 0 {
		t.Errorf("%d sessions remain", repo.Len())
	}
}

func TestDeleteAllUserSessions_Count(t *testing.T) {
	l, repo, _ := newTestLifecycle(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		l.CreateSession(ctx, "user-1", domain.TypePrimary, "", "")
	}
	l.CreateSession(ctx, "user-2", domain.TypePrimary, "", "")

	n, err := l.DeleteAllUserSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("DeleteAllUserSessions: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
	if repo.Len() != 1 {
		t.Errorf("other user's session should survive, have %d rows", repo.Len())
	}
	if n, _ := l.DeleteAllUserSessions(ctx, "user-1"); n != 0 {
		t.Errorf("second delete count = %d, want 0", n)
	}
}

func TestValidateAccessTokenSession(t *testing.T) {
	l, repo, clock := newTestLifecycle(t)
	ctx := context.Background()
	created, _ := l.CreateSession(ctx, "user-1", domain.TypeReset, "", "")

	sess, err := l.ValidateAccessTokenSession(ctx, created.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessTokenSession: %v", err)
	}
	if sess.ID != created.Session.ID || sess.Type != domain.TypeReset {
		t.Errorf("sess = %+v", sess)
	}

	if _, err := l.ValidateAccessTokenSession(ctx, ""); !errors.Is(err, ErrNoSession) {
		t.Errorf("empty: err = %v", err)
	}
	if _, err := l.ValidateAccessTokenSession(ctx, "not-a-token"); !errors.Is(err, ErrInvalidSession) {
		t.Errorf("unknown: err = %v", err)
	}

	clock.Advance(25 * time.Hour)
	if _, err := l.ValidateAccessTokenSession(ctx, created.AccessToken); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expired: err = %v", err)
	}
	if repo.Len() != 0 {
		t.Error("expired session not purged")
	}
}

func TestListUserSessions_NewestFirst(t *testing.T) {
	l, _, clock := newTestLifecycle(t)
	ctx := context.Background()
	first, _ := l.CreateSession(ctx, "user-1", domain.TypePrimary, "", "")
	clock.Advance(time.Minute)
	second, _ := l.CreateSession(ctx, "user-1", domain.TypePrimary, "", "")

	list, err := l.ListUserSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListUserSessions: %v", err)
	}
	if len(list) != 2 || list[0].ID != second.Session.ID || list[1].ID != first.Session.ID {
		t.Errorf("unexpected order: %+v", list)
	}
}

func TestRequireType(t *testing.T) {
	reset := &domain.Session{Type: domain.TypeReset}
	testCases := []struct {
		name    string
		sess    *domain.Session
		allowed []domain.Type
		wantErr error
	}{
		{"match", reset, []domain.Type{domain.TypeReset}, nil},
		{"one of several", reset, []domain.Type{domain.TypePrimary, domain.TypeReset}, nil},
		{"mismatch", reset, []domain.Type{domain.TypePrimary}, ErrWrongSessionType},
		{"nil session", nil, []domain.Type{domain.TypeReset}, ErrInvalidSession},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := RequireType(tc.sess, tc.allowed...)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

type failingRepo struct {
	*repository.MemoryRepository
	err error
}

func (r failingRepo) Create(ctx context.Context, s *domain.Session) error { return r.err }

func (r failingRepo) GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	return nil, r.err
}

func TestStorageFailuresAreInternal(t *testing.T) {
	repo := failingRepo{MemoryRepository: repository.NewMemoryRepository(), err: errors.New("connection reset")}
	l := NewLifecycle(repo, security.NewTestTokenProvider(), nil, nil)
	ctx := context.Background()

	if _, err := l.CreateSession(ctx, "user-1", domain.TypePrimary, "", ""); apperror.KindOf(err) != apperror.Internal {
		t.Errorf("CreateSession kind = %v, want Internal", apperror.KindOf(err))
	}
	_, err := l.RefreshTokens(ctx, "some-token")
	if apperror.KindOf(err) != apperror.Internal {
		t.Errorf("RefreshTokens kind = %v, want Internal", apperror.KindOf(err))
	}
	if !errors.Is(err, repo.err) {
		t.Error("storage error should be wrapped")
	}
}

// vanishingRepo deletes the session right after it is looked up by refresh hash,
// the way a concurrent logout or reset cascade would.
type vanishingRepo struct {
	*repository.MemoryRepository
}

func (r vanishingRepo) GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	sess, err := r.MemoryRepository.GetByRefreshTokenHash(ctx, hash)
	if sess != nil {
		_ = r.Delete(ctx, sess.ID)
	}
	return sess, err
}

func TestRefresh_SessionDeletedConcurrently(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryRepository()
	l := NewLifecycle(vanishingRepo{MemoryRepository: mem}, security.NewTestTokenProvider(), nil, nil)

	first, err := l.CreateSession(ctx, "user-1", domain.TypePrimary, "", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	tokens, err := l.RefreshTokens(ctx, first.RefreshToken)
	if !errors.Is(err, ErrInvalidSession) || tokens != nil {
		t.Errorf("RefreshTokens = %v, %v; want nil, ErrInvalidSession", tokens, err)
	}

	second, err := l.CreateSession(ctx, "user-1", domain.TypePrimary, "", "")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	grant, err := l.GenerateAccessToken(ctx, second.RefreshToken)
	if !errors.Is(err, ErrInvalidSession) || grant != nil {
		t.Errorf("GenerateAccessToken = %v, %v; want nil, ErrInvalidSession", grant, err)
	}
	if mem.Len() != 0 {
		t.Errorf("sessions left = %d, want 0", mem.Len())
	}
}
