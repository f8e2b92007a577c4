package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	identitysvc "github.com/vritti-ai-platforms/api-nexus/internal/identity/service"
	userdomain "github.com/vritti-ai-platforms/api-nexus/internal/user/domain"
	usersvc "github.com/vritti-ai-platforms/api-nexus/internal/user/service"
)

// UserProvisioner upserts users pushed by the cloud server.
type UserProvisioner interface {
	CreateFromWebhook(ctx context.Context, in usersvc.WebhookUser) (*userdomain.User, error)
}

type usersHandler struct {
	users  UserProvisioner
	logger *zap.Logger
}

func (h *usersHandler) webhook(w http.ResponseWriter, r *http.Request) {
	var req webhookUserRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.users.CreateFromWebhook(r.Context(), usersvc.WebhookUser{
		ExternalID: req.ExternalID,
		Email:      req.Email,
		FullName:   req.FullName,
		Role:       req.Role,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, identitysvc.NewProfile(u))
}
