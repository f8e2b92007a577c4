package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
)

const sessionColumns = `id, user_id, type, access_token_hash, refresh_token_hash, ip_address, user_agent, expires_at, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the session. The session must have ID set; CreatedAt defaults to now.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		s.ID, s.UserID, string(s.Type), s.AccessTokenHash, s.RefreshTokenHash,
		stringToNull(s.IPAddress), stringToNull(s.UserAgent), s.ExpiresAt, s.CreatedAt,
	)
	return err
}

// GetByAccessTokenHash returns the session whose current access token hashes to hash, or nil if none.
func (r *PostgresRepository) GetByAccessTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE access_token_hash = $1`, hash)
	return scanOne(row)
}

// GetByRefreshTokenHash returns the session whose current refresh token hashes to hash, or nil if none.
func (r *PostgresRepository) GetByRefreshTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = $1`, hash)
	return scanOne(row)
}

// ListByUser returns all sessions for the user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RotateTokens overwrites both hashes and the expiry of the session in a single UPDATE.
func (r *PostgresRepository) RotateTokens(ctx context.Context, id, accessTokenHash, refreshTokenHash string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET access_token_hash = $2, refresh_token_hash = $3, expires_at = $4
		WHERE id = $1`,
		id, accessTokenHash, refreshTokenHash, expiresAt,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// UpdateAccessTokenHash overwrites only the access hash.
func (r *PostgresRepository) UpdateAccessTokenHash(ctx context.Context, id, accessTokenHash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE sessions SET access_token_hash = $2 WHERE id = $1`, id, accessTokenHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Delete removes the session by id. Deleting a missing session is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

// DeleteAllByUser removes every session of the user and returns the affected row count.
func (r *PostgresRepository) DeleteAllByUser(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*domain.Session, error) {
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanSession(sc scanner) (*domain.Session, error) {
	var (
		s         domain.Session
		typ       string
		ip, agent sql.NullString
	)
	if err := sc.Scan(&s.ID, &s.UserID, &typ, &s.AccessTokenHash, &s.RefreshTokenHash, &ip, &agent, &s.ExpiresAt, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Type = domain.Type(typ)
	s.IPAddress = ip.String
	s.UserAgent = agent.String
	return &s, nil
}

func stringToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
