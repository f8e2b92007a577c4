// seed inserts development users for local testing: go run ./cmd/seed.
// Idempotent: a user whose email already exists is skipped.
package main

import (
	"context"
	"log"

	"github.com/vritti-ai-platforms/api-nexus/internal/config"
	"github.com/vritti-ai-platforms/api-nexus/internal/db"
	"github.com/vritti-ai-platforms/api-nexus/internal/security"
	"github.com/vritti-ai-platforms/api-nexus/internal/user/domain"
	"github.com/vritti-ai-platforms/api-nexus/internal/user/repository"
)

// devPassword satisfies the reset password policy so it can be reused in reset flows.
const devPassword = "Password123!"

type seedUser struct {
	externalID string
	email      string
	fullName   string
	role       domain.Role
	// withPassword users are ACTIVE and can log in; the others are PENDING invitations.
	withPassword bool
}

var seedUsers = []seedUser{
	{externalID: "dev-ext-001", email: "dev@example.com", fullName: "Dev Admin", role: domain.RoleSuperAdmin, withPassword: true},
	{externalID: "dev-ext-002", email: "support@example.com", fullName: "Support Agent", role: domain.RoleSupport, withPassword: true},
	{externalID: "dev-ext-003", email: "invited@example.com", fullName: "Invited User", role: domain.RoleAdmin},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultPoolOptions)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	hasher := security.NewHasher(security.Argon2Params{
		MemoryKiB:   cfg.Argon2MemoryKiB,
		Iterations:  cfg.Argon2Iterations,
		Parallelism: cfg.Argon2Parallelism,
	})
	created, err := seed(ctx, repository.NewPostgresRepository(conn), hasher, seedUsers)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seed: %d user(s) created, %d already present", created, len(seedUsers)-created)
}

// seed creates each missing user and returns how many were created.
func seed(ctx context.Context, repo repository.Repository, hasher *security.Hasher, users []seedUser) (int, error) {
	created := 0
	for _, su := range users {
		existing, err := repo.GetByEmail(ctx, su.email)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		u := &domain.User{
			ExternalID: su.externalID,
			Email:      su.email,
			FullName:   su.fullName,
			Role:       su.role,
			Status:     domain.StatusPending,
		}
		if su.withPassword {
			hash, err := hasher.Hash(devPassword)
			if err != nil {
				return created, err
			}
			u.PasswordHash = hash
			u.Status = domain.StatusActive
		}
		if err := repo.Create(ctx, u); err != nil {
			return created, err
		}
		log.Printf("seed: created %s (%s)", su.email, u.Status)
		created++
	}
	return created, nil
}
