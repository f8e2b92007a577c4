package repository

import (
	"context"
	"errors"

	"github.com/vritti-ai-platforms/api-nexus/internal/organization/domain"
)

// ErrSubdomainTaken is returned by Create when another organization owns the subdomain.
var ErrSubdomainTaken = errors.New("subdomain already exists")

// Repository defines persistence for organizations. Lookups return (nil, nil) when no row matches.
type Repository interface {
	// Create validates and inserts o, filling ID and timestamps.
	Create(ctx context.Context, o *domain.Organization) error
	GetBySubdomain(ctx context.Context, subdomain string) (*domain.Organization, error)
}
