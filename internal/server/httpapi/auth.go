package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	identitysvc "github.com/vritti-ai-platforms/api-nexus/internal/identity/service"
	sessiondomain "github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
	sessionsvc "github.com/vritti-ai-platforms/api-nexus/internal/session/service"
)

// AuthAPI is the account surface behind /api/auth.
type AuthAPI interface {
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*sessionsvc.Created, error)
	Logout(ctx context.Context, accessToken, userID string) (string, error)
	SetPassword(ctx context.Context, userID, password, confirmPassword string) (string, error)
	Status(ctx context.Context, refreshToken string) *identitysvc.StatusResult
	RefreshTokens(ctx context.Context, refreshToken string) (*sessionsvc.Tokens, error)
	AccessToken(ctx context.Context, refreshToken string) (*sessionsvc.AccessGrant, error)
	ListSessions(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
}

type authHandler struct {
	auth    AuthAPI
	cookies refreshCookies
	logger  *zap.Logger
}

func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	created, err := h.auth.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.cookies.set(w, created.RefreshToken)
	render.JSON(w, r, authResponse{
		IsAuthenticated: true,
		AccessToken:     created.AccessToken,
		ExpiresIn:       created.ExpiresIn,
	})
}

func (h *authHandler) logout(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	msg, err := h.auth.Logout(r.Context(), id.AccessToken, id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.cookies.clear(w)
	render.JSON(w, r, messageResponse{Message: msg})
}

func (h *authHandler) setPassword(w http.ResponseWriter, r *http.Request) {
	var req setPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := IdentityFrom(r.Context())
	msg, err := h.auth.SetPassword(r.Context(), id.UserID, req.Password, req.ConfirmPassword)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.cookies.clear(w)
	render.JSON(w, r, messageResponse{Message: msg})
}

// status never fails; a missing or dead refresh cookie reports isAuthenticated=false.
func (h *authHandler) status(w http.ResponseWriter, r *http.Request) {
	res := h.auth.Status(r.Context(), h.cookies.read(r))
	render.JSON(w, r, authResponse{
		IsAuthenticated: res.IsAuthenticated,
		AccessToken:     res.AccessToken,
		ExpiresIn:       res.ExpiresIn,
		User:            res.User,
	})
}

func (h *authHandler) refreshTokens(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.auth.RefreshTokens(r.Context(), h.cookies.read(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.cookies.set(w, tokens.RefreshToken)
	render.JSON(w, r, tokenResponse{AccessToken: tokens.AccessToken, ExpiresIn: tokens.ExpiresIn})
}

func (h *authHandler) accessToken(w http.ResponseWriter, r *http.Request) {
	grant, err := h.auth.AccessToken(r.Context(), h.cookies.read(r))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, tokenResponse{AccessToken: grant.AccessToken, ExpiresIn: grant.ExpiresIn})
}

func (h *authHandler) sessions(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	list, err := h.auth.ListSessions(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	out := make([]sessionView, 0, len(list))
	for _, s := range list {
		out = append(out, sessionView{
			ID:        s.ID,
			Type:      string(s.Type),
			IPAddress: s.IPAddress,
			UserAgent: s.UserAgent,
			CreatedAt: s.CreatedAt.UTC().Format(time.RFC3339),
			ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
			Current:   s.ID == id.SessionID,
		})
	}
	render.JSON(w, r, out)
}
