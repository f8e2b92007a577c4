package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vritti-ai-platforms/api-nexus/internal/organization/domain"
)

const (
	orgColumns = `id, name, subdomain, size, plan, industry_id, media_id, created_at, updated_at`

	uniqueViolation = "23505"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an organization repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the organization. A subdomain conflict yields ErrSubdomainTaken.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Organization) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (`+orgColumns+`)
		VALUES ($1, $2, $3, $4::org_size, $5::org_plan, $6, $7, $8, $9)`,
		o.ID, o.Name, o.Subdomain, string(o.Size), string(o.Plan),
		intToNull(o.IndustryID), intToNull(o.MediaID), o.CreatedAt, o.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrSubdomainTaken
	}
	return err
}

// GetBySubdomain returns the organization owning subdomain, or nil if none.
func (r *PostgresRepository) GetBySubdomain(ctx context.Context, subdomain string) (*domain.Organization, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations WHERE subdomain = $1`, subdomain)
	var (
		o                 domain.Organization
		size, plan        string
		industry, mediaID sql.NullInt32
	)
	err := row.Scan(&o.ID, &o.Name, &o.Subdomain, &size, &plan, &industry, &mediaID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.Size = domain.Size(size)
	o.Plan = domain.Plan(plan)
	o.IndustryID = nullToInt(industry)
	o.MediaID = nullToInt(mediaID)
	return &o, nil
}

func intToNull(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}

func nullToInt(n sql.NullInt32) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}
