// Package service provisions organizations pushed by the upstream cloud server.
package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/apperror"
	"github.com/vritti-ai-platforms/api-nexus/internal/organization/domain"
	"github.com/vritti-ai-platforms/api-nexus/internal/organization/repository"
)

var (
	ErrSubdomainTaken = apperror.New(apperror.Validation, "Subdomain Taken",
		"An organization with this subdomain already exists.").WithField("subdomain")
	ErrInvalidSize = apperror.New(apperror.Validation, "Invalid Size",
		"Size must be one of 0-10, 10-20, 20-50, 50-100, 100-500 or 500+.").WithField("size")
	ErrInvalidPlan = apperror.New(apperror.Validation, "Invalid Plan",
		"Plan must be free, pro or enterprise.").WithField("plan")
)

// OrganizationRepo is the persistence the provisioning service needs.
type OrganizationRepo interface {
	Create(ctx context.Context, o *domain.Organization) error
}

// WebhookOrganization is the payload pushed by the cloud server when an organization is created.
type WebhookOrganization struct {
	Name       string
	Subdomain  string
	Size       string
	Plan       string // optional; free when empty
	IndustryID *int
	MediaID    *int
}

// OrganizationService creates organizations received over the webhook.
type OrganizationService struct {
	repo   OrganizationRepo
	logger *zap.Logger
}

// NewOrganizationService returns an OrganizationService. logger may be nil.
func NewOrganizationService(repo OrganizationRepo, logger *zap.Logger) *OrganizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrganizationService{repo: repo, logger: logger}
}

// CreateFromWebhook stores a new organization. Subdomains are lowercased and must be unused.
func (s *OrganizationService) CreateFromWebhook(ctx context.Context, in WebhookOrganization) (*domain.Organization, error) {
	name := strings.TrimSpace(in.Name)
	subdomain := strings.ToLower(strings.TrimSpace(in.Subdomain))
	if name == "" {
		return nil, apperror.New(apperror.Validation, "Invalid Payload", "name is required.").WithField("name")
	}
	if subdomain == "" {
		return nil, apperror.New(apperror.Validation, "Invalid Payload", "subdomain is required.").WithField("subdomain")
	}
	size := domain.Size(in.Size)
	if !size.Valid() {
		return nil, ErrInvalidSize
	}
	plan := domain.Plan(in.Plan)
	if plan == "" {
		plan = domain.PlanFree
	}
	if !plan.Valid() {
		return nil, ErrInvalidPlan
	}

	o := &domain.Organization{
		Name:       name,
		Subdomain:  subdomain,
		Size:       size,
		Plan:       plan,
		IndustryID: in.IndustryID,
		MediaID:    in.MediaID,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		if errors.Is(err, repository.ErrSubdomainTaken) {
			return nil, ErrSubdomainTaken
		}
		return nil, apperror.Wrap(err, "create organization")
	}
	s.logger.Info("organization created from webhook", zap.String("organization_id", o.ID), zap.String("subdomain", o.Subdomain))
	return o, nil
}
