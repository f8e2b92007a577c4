package httpapi

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/apperror"
)

// FieldError names one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Label  string       `json:"label"`
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.Unauthenticated:
		return http.StatusUnauthorized
	case apperror.Validation, apperror.InvalidCode:
		return http.StatusBadRequest
	case apperror.RateLimited:
		return http.StatusTooManyRequests
	case apperror.Expired:
		return http.StatusGone
	case apperror.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err. Internal errors are logged and never expose their cause.
func writeError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Wrap(err, "unexpected error").(*apperror.Error)
	}
	status := StatusFor(appErr.Kind)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		appErr = &apperror.Error{Kind: apperror.Internal, Label: "Internal Server Error", Detail: "An unexpected error occurred."}
	}
	body := ErrorResponse{Label: appErr.Label, Detail: appErr.Detail}
	if appErr.Field != "" {
		body.Errors = []FieldError{{Field: appErr.Field, Message: appErr.Label}}
	}
	render.Status(r, status)
	render.JSON(w, r, body)
}

func writeValidationError(w http.ResponseWriter, r *http.Request, err error) {
	body := ErrorResponse{Label: "Validation Failed", Detail: "The request contains invalid fields."}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			body.Errors = append(body.Errors, FieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
	} else {
		body.Detail = "The request body could not be decoded."
	}
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, body)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if fe.Kind() == reflect.Int {
			return "must be at least " + fe.Param()
		}
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "numeric":
		return "must contain only digits"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}
