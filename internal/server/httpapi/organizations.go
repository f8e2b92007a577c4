package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	orgdomain "github.com/vritti-ai-platforms/api-nexus/internal/organization/domain"
	orgsvc "github.com/vritti-ai-platforms/api-nexus/internal/organization/service"
)

// OrganizationProvisioner creates organizations pushed by the cloud server.
type OrganizationProvisioner interface {
	CreateFromWebhook(ctx context.Context, in orgsvc.WebhookOrganization) (*orgdomain.Organization, error)
}

type organizationView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Subdomain  string `json:"subdomain"`
	IndustryID *int   `json:"industryId"`
	Size       string `json:"size"`
	MediaID    *int   `json:"mediaId"`
	Plan       string `json:"plan"`
	CreatedAt  string `json:"createdAt"`
}

func newOrganizationView(o *orgdomain.Organization) organizationView {
	return organizationView{
		ID:         o.ID,
		Name:       o.Name,
		Subdomain:  o.Subdomain,
		IndustryID: o.IndustryID,
		Size:       string(o.Size),
		MediaID:    o.MediaID,
		Plan:       string(o.Plan),
		CreatedAt:  o.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type organizationsHandler struct {
	orgs   OrganizationProvisioner
	logger *zap.Logger
}

func (h *organizationsHandler) webhook(w http.ResponseWriter, r *http.Request) {
	var req webhookOrganizationRequest
	if !decode(w, r, &req) {
		return
	}
	o, err := h.orgs.CreateFromWebhook(r.Context(), orgsvc.WebhookOrganization{
		Name:       req.Name,
		Subdomain:  req.Subdomain,
		Size:       req.Size,
		Plan:       req.Plan,
		IndustryID: req.IndustryID,
		MediaID:    req.MediaID,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, newOrganizationView(o))
}
