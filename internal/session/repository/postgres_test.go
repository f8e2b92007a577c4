package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
)

// openTestDB connects to DATABASE_URL; the schema must already be migrated.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func insertUser(t *testing.T, db *sql.DB) string {
	t.Helper()
	id := uuid.New().String()
	_, err := db.Exec(`INSERT INTO users (id, email, full_name) VALUES ($1, $2, $3)`, id, id+"@test.local", "Session Test")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	t.Cleanup(func() { db.Exec(`DELETE FROM users WHERE id = $1`, id) })
	return id
}

func TestPostgresRepository_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	repo := NewPostgresRepository(db)
	ctx := context.Background()
	userID := insertUser(t, db)

	s := &domain.Session{
		ID:               uuid.New().String(),
		UserID:           userID,
		Type:             domain.TypeReset,
		AccessTokenHash:  "a-" + uuid.New().String(),
		RefreshTokenHash: "r-" + uuid.New().String(),
		UserAgent:        "go-test",
		ExpiresAt:        time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond),
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByRefreshTokenHash(ctx, s.RefreshTokenHash)
	if err != nil || got == nil {
		t.Fatalf("GetByRefreshTokenHash: %v, %v", got, err)
	}
	if got.Type != domain.TypeReset || got.IPAddress != "" || got.UserAgent != "go-test" {
		t.Errorf("got %+v", got)
	}

	newExp := s.ExpiresAt.Add(time.Hour)
	if err := repo.RotateTokens(ctx, s.ID, "a2", "r2", newExp); err != nil {
		t.Fatalf("RotateTokens: %v", err)
	}
	if old, _ := repo.GetByRefreshTokenHash(ctx, s.RefreshTokenHash); old != nil {
		t.Error("old refresh hash still resolves after rotation")
	}
	got, _ = repo.GetByAccessTokenHash(ctx, "a2")
	if got == nil || got.RefreshTokenHash != "r2" || !got.ExpiresAt.Equal(newExp) {
		t.Errorf("after rotation got %+v", got)
	}

	if err := repo.UpdateAccessTokenHash(ctx, s.ID, "a3"); err != nil {
		t.Fatalf("UpdateAccessTokenHash: %v", err)
	}
	if got, _ := repo.GetByAccessTokenHash(ctx, "a3"); got == nil || got.RefreshTokenHash != "r2" {
		t.Errorf("access-only update got %+v", got)
	}

	n, err := repo.DeleteAllByUser(ctx, userID)
	if err != nil || n != 1 {
		t.Fatalf("DeleteAllByUser = %d, %v; want 1", n, err)
	}
	if got, _ := repo.GetByAccessTokenHash(ctx, "a3"); got != nil {
		t.Error("session still present after DeleteAllByUser")
	}

	if err := repo.RotateTokens(ctx, s.ID, "a4", "r4", newExp); !errors.Is(err, ErrNotFound) {
		t.Errorf("RotateTokens on deleted session = %v, want ErrNotFound", err)
	}
	if err := repo.UpdateAccessTokenHash(ctx, s.ID, "a5"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateAccessTokenHash on deleted session = %v, want ErrNotFound", err)
	}
}
