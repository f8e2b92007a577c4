package httpapi

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	identitysvc "github.com/vritti-ai-platforms/api-nexus/internal/identity/service"
)

var validate = newValidator()

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads and validates a JSON body into dst. On failure it writes a 400 and returns false.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		writeValidationError(w, r, err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeValidationError(w, r, err)
		return false
	}
	return true
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type setPasswordRequest struct {
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,min=8"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyResetOtpRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" validate:"required,min=8"`
}

type webhookUserRequest struct {
	ExternalID string `json:"externalId" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	FullName   string `json:"fullName" validate:"required"`
	Role       string `json:"role" validate:"omitempty,oneof=SUPER_ADMIN ADMIN SUPPORT"`
}

type webhookOrganizationRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	Subdomain  string `json:"subdomain" validate:"required,max=100"`
	Size       string `json:"size" validate:"required,oneof=0-10 10-20 20-50 50-100 100-500 500+"`
	Plan       string `json:"plan" validate:"omitempty,oneof=free pro enterprise"`
	IndustryID *int   `json:"industryId" validate:"omitempty,min=1"`
	MediaID    *int   `json:"mediaId" validate:"omitempty,min=1"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type tokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type authResponse struct {
	IsAuthenticated bool                 `json:"isAuthenticated"`
	AccessToken     string               `json:"accessToken,omitempty"`
	ExpiresIn       int64                `json:"expiresIn,omitempty"`
	User            *identitysvc.Profile `json:"user,omitempty"`
}

// resetResponse is shared by forgot-password and reset-password. Token fields are
// omitted when forgot-password sent nothing, so unknown accounts look identical.
type resetResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	AccessToken string `json:"accessToken,omitempty"`
	ExpiresIn   int64  `json:"expiresIn,omitempty"`
}

type sessionView struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	CreatedAt string `json:"createdAt"`
	ExpiresAt string `json:"expiresAt"`
	Current   bool   `json:"current"`
}

type devOTPResponse struct {
	OTP string `json:"otp"`
}
