package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vritti-ai-platforms/api-nexus/internal/user/domain"
)

const userColumns = `id, external_id, email, password_hash, full_name, role, status, is_active, created_at, updated_at, last_login_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanOne(row)
}

// GetByEmail returns the user with the given email, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanOne(row)
}

// Create persists the user as active. ID is generated when empty.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.UpdatedAt.IsZero() {
		u.UpdatedAt = u.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, external_id, email, password_hash, full_name, role, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::user_role, $7::user_status, $8, $9)`,
		u.ID, stringToNull(u.ExternalID), u.Email, stringToNull(u.PasswordHash), u.FullName,
		string(u.Role), string(u.Status), u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return err
	}
	u.IsActive = true
	return nil
}

// UpsertByExternalID inserts the user or updates email, name and role on external_id conflict.
func (r *PostgresRepository) UpsertByExternalID(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u.ExternalID == "" {
		return nil, errors.New("external id is required")
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, external_id, email, full_name, role, status)
		VALUES ($1, $2, $3, $4, $5::user_role, $6::user_status)
		ON CONFLICT (external_id) DO UPDATE
		SET email = EXCLUDED.email, full_name = EXCLUDED.full_name, role = EXCLUDED.role, updated_at = now()
		RETURNING `+userColumns,
		uuid.New().String(), u.ExternalID, u.Email, u.FullName, string(u.Role), string(u.Status),
	)
	return scanUser(row)
}

// UpdateLastLogin records a successful login.
func (r *PostgresRepository) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, id, at)
	return err
}

// SetPassword stores the password hash and activates the user in one UPDATE.
func (r *PostgresRepository) SetPassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, status = 'ACTIVE', updated_at = $3
		WHERE id = $1`,
		id, passwordHash, at,
	)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOne(row *sql.Row) (*domain.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func scanUser(sc scanner) (*domain.User, error) {
	var (
		u                domain.User
		externalID, hash sql.NullString
		role, status     string
		lastLogin        sql.NullTime
	)
	if err := sc.Scan(&u.ID, &externalID, &u.Email, &hash, &u.FullName, &role, &status,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt, &lastLogin); err != nil {
		return nil, err
	}
	u.ExternalID = externalID.String
	u.PasswordHash = hash.String
	u.Role = domain.Role(role)
	u.Status = domain.Status(status)
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func stringToNull(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
