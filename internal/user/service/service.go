// Package service provisions nexus users from the upstream cloud server.
package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/apperror"
	"github.com/vritti-ai-platforms/api-nexus/internal/user/domain"
)

// UserRepo is the persistence the provisioning service needs.
type UserRepo interface {
	UpsertByExternalID(ctx context.Context, u *domain.User) (*domain.User, error)
}

// WebhookUser is the payload pushed by the cloud server when a user is created or changed.
type WebhookUser struct {
	ExternalID string
	Email      string
	FullName   string
	Role       string // optional; SUPPORT when empty
}

// UserService upserts users received over the webhook.
type UserService struct {
	repo   UserRepo
	logger *zap.Logger
}

// NewUserService returns a UserService. logger may be nil.
func NewUserService(repo UserRepo, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, logger: logger}
}

// CreateFromWebhook creates the user as PENDING or updates email, name and role of an
// existing user with the same external id. Password and status are never touched on update.
func (s *UserService) CreateFromWebhook(ctx context.Context, in WebhookUser) (*domain.User, error) {
	in.ExternalID = strings.TrimSpace(in.ExternalID)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.ExternalID == "" {
		return nil, apperror.New(apperror.Validation, "Invalid Payload", "externalId is required.").WithField("externalId")
	}
	role := domain.Role(in.Role)
	if role == "" {
		role = domain.RoleSupport
	}
	if !role.Valid() {
		return nil, apperror.New(apperror.Validation, "Invalid Role", "Role must be SUPER_ADMIN, ADMIN or SUPPORT.").WithField("role")
	}
	u, err := s.repo.UpsertByExternalID(ctx, &domain.User{
		ExternalID: in.ExternalID,
		Email:      in.Email,
		FullName:   in.FullName,
		Role:       role,
		Status:     domain.StatusPending,
	})
	if err != nil {
		return nil, apperror.Wrap(err, "upsert user")
	}
	s.logger.Info("user upserted from webhook", zap.String("user_id", u.ID), zap.String("external_id", u.ExternalID))
	return u, nil
}
