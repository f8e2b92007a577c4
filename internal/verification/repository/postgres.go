package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vritti-ai-platforms/api-nexus/internal/verification/domain"
)

const verificationColumns = `id, user_id, otp_hash, attempts, is_verified, verified_at, expires_at, created_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a verification repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert replaces the user's record: delete then insert, in one transaction.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *domain.Record) (err error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM verifications WHERE user_id = $1`, rec.UserID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO verifications (`+verificationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.UserID, rec.OTPHash, rec.Attempts, rec.IsVerified, timeToNull(rec.VerifiedAt), rec.ExpiresAt, rec.CreatedAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// GetByUserID returns the user's record, or nil if none.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*domain.Record, error) {
	var (
		rec        domain.Record
		verifiedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE user_id = $1`, userID).
		Scan(&rec.ID, &rec.UserID, &rec.OTPHash, &rec.Attempts, &rec.IsVerified, &verifiedAt, &rec.ExpiresAt, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		rec.VerifiedAt = &t
	}
	return &rec, nil
}

// IncrementAttempts adds one to attempts in a single UPDATE and returns the new count.
func (r *PostgresRepository) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `UPDATE verifications SET attempts = attempts + 1 WHERE id = $1 RETURNING attempts`, id).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// MarkVerified sets is_verified and verified_at together.
func (r *PostgresRepository) MarkVerified(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE verifications SET is_verified = true, verified_at = $2 WHERE id = $1`, id, at)
	return err
}

// DeleteByUserID removes the user's record if any.
func (r *PostgresRepository) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM verifications WHERE user_id = $1`, userID)
	return err
}

func timeToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
