package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vritti-ai-platforms/api-nexus/internal/apperror"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperror.Kind
		want int
	}{
		{apperror.Unauthenticated, http.StatusUnauthorized},
		{apperror.Validation, http.StatusBadRequest},
		{apperror.InvalidCode, http.StatusBadRequest},
		{apperror.RateLimited, http.StatusTooManyRequests},
		{apperror.Expired, http.StatusGone},
		{apperror.NotFound, http.StatusNotFound},
		{apperror.Internal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			if got := StatusFor(tt.kind); got != tt.want {
				t.Errorf("StatusFor(%v) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func TestWriteError_HidesInternalCause(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)

	tests := []struct {
		name string
		err  error
	}{
		{"plain error", errors.New("pq: connection reset by peer")},
		{"wrapped", apperror.Wrap(errors.New("pq: connection reset by peer"), "find user")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), logger, tt.err)
			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d", rec.Code)
			}
			if strings.Contains(rec.Body.String(), "pq:") {
				t.Errorf("body leaks cause: %s", rec.Body.String())
			}
		})
	}
	if logs.Len() != len(tests) {
		t.Errorf("logged %d errors, want %d", logs.Len(), len(tests))
	}
}

func TestWriteError_FieldAndKind(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apperror.New(apperror.InvalidCode, "Invalid Code", "Wrong code.").WithField("otp")
	writeError(rec, httptest.NewRequest(http.MethodPost, "/x", nil), zap.NewNop(), err)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Label != "Invalid Code" || body.Detail != "Wrong code." || len(body.Errors) != 1 || body.Errors[0].Field != "otp" {
		t.Errorf("body = %+v", body)
	}
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer", ""},
		{"Bearer ", ""},
		{"Bearer abc.def", "abc.def"},
		{"bearer abc.def", "abc.def"},
		{"BEARER   abc.def  ", "abc.def"},
		{"Basic abc.def", ""},
		{"Bearerabc", ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			if got := extractBearer(r); got != tt.want {
				t.Errorf("extractBearer(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"203.0.113.7:5555", "203.0.113.7"},
		{"[2001:db8::1]:443", "2001:db8::1"},
		{"203.0.113.7", "203.0.113.7"},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = tt.remote
		if got := clientIP(r); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}
