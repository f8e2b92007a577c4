package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/apperror"
	"github.com/vritti-ai-platforms/api-nexus/internal/devotp"
	resetsvc "github.com/vritti-ai-platforms/api-nexus/internal/passwordreset/service"
)

// ResetAPI is the password-reset workflow.
type ResetAPI interface {
	RequestPasswordReset(ctx context.Context, email, ipAddress, userAgent string) (*resetsvc.RequestResult, error)
	ResendResetOtp(ctx context.Context, userID string) (string, error)
	VerifyResetOtp(ctx context.Context, code, userID string) (string, error)
	ResetPassword(ctx context.Context, newPassword, userID string) (*resetsvc.ResetResult, error)
}

var errNoDevCode = apperror.New(apperror.NotFound, "No Code Found",
	"No reset code is stored for this session.")

type resetHandler struct {
	reset   ResetAPI
	devOTP  devotp.Store
	cookies refreshCookies
	logger  *zap.Logger
}

func (h *resetHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.reset.RequestPasswordReset(r.Context(), req.Email, clientIP(r), r.UserAgent())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	body := resetResponse{Success: true, Message: res.Message}
	if res.Session != nil {
		h.cookies.set(w, res.Session.RefreshToken)
		body.AccessToken = res.Session.AccessToken
		body.ExpiresIn = res.Session.ExpiresIn
	}
	render.JSON(w, r, body)
}

func (h *resetHandler) resendResetOtp(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	msg, err := h.reset.ResendResetOtp(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, messageResponse{Message: msg})
}

func (h *resetHandler) verifyResetOtp(w http.ResponseWriter, r *http.Request) {
	var req verifyResetOtpRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := IdentityFrom(r.Context())
	msg, err := h.reset.VerifyResetOtp(r.Context(), req.OTP, id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	render.JSON(w, r, messageResponse{Message: msg})
}

func (h *resetHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := IdentityFrom(r.Context())
	res, err := h.reset.ResetPassword(r.Context(), req.NewPassword, id.UserID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.cookies.set(w, res.Session.RefreshToken)
	render.JSON(w, r, resetResponse{
		Success:     true,
		Message:     res.Message,
		AccessToken: res.Session.AccessToken,
		ExpiresIn:   res.Session.ExpiresIn,
	})
}

// devResetOTP returns the plain code last sent to the caller. Mounted only outside production.
func (h *resetHandler) devResetOTP(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	code, ok, err := h.devOTP.Get(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, h.logger, apperror.Wrap(err, "read dev code"))
		return
	}
	if !ok {
		writeError(w, r, h.logger, errNoDevCode)
		return
	}
	render.JSON(w, r, devOTPResponse{OTP: code})
}
