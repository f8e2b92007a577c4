// Package httpapi is the JSON HTTP surface of the auth API. It maps requests onto the
// account, session and password-reset services and error kinds onto status codes.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/config"
	"github.com/vritti-ai-platforms/api-nexus/internal/devotp"
	"github.com/vritti-ai-platforms/api-nexus/internal/metrics"
	sessiondomain "github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators of the router. Pinger, DevOTP, Metrics and Logger may be nil;
// a nil DevOTP leaves /dev/reset-otp unmounted.
type Deps struct {
	Auth          AuthAPI
	Reset         ResetAPI
	Users         UserProvisioner
	Organizations OrganizationProvisioner
	Tokens        AccessTokenParser
	Sessions      SessionValidator
	DevOTP        devotp.Store
	Pinger        Pinger
	Cookie        config.CookieConfig
	WebhookSecret string
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// NewRouter builds the HTTP handler for the API.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cookies := refreshCookies{cfg: d.Cookie}
	auth := &authHandler{auth: d.Auth, cookies: cookies, logger: logger}
	reset := &resetHandler{reset: d.Reset, devOTP: d.DevOTP, cookies: cookies, logger: logger}
	users := &usersHandler{users: d.Users, logger: logger}
	orgs := &organizationsHandler{orgs: d.Organizations, logger: logger}

	require := func(types ...sessiondomain.Type) func(http.Handler) http.Handler {
		return RequireSessionType(d.Tokens, d.Sessions, logger, types...)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger, d.Metrics))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", healthz(d.Pinger))
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", auth.login)
			r.Get("/status", auth.status)
			r.Post("/refresh-tokens", auth.refreshTokens)
			r.Get("/access-token", auth.accessToken)
			r.Post("/forgot-password", reset.forgotPassword)

			r.Group(func(r chi.Router) {
				r.Use(require(sessiondomain.TypePrimary))
				r.Post("/logout", auth.logout)
				r.Get("/sessions", auth.sessions)
			})
			r.With(require(sessiondomain.TypeSetPassword)).Post("/set-password", auth.setPassword)
			r.Group(func(r chi.Router) {
				r.Use(require(sessiondomain.TypeReset))
				r.Post("/resend-reset-otp", reset.resendResetOtp)
				r.Post("/verify-reset-otp", reset.verifyResetOtp)
				r.Post("/reset-password", reset.resetPassword)
			})
		})
		r.Group(func(r chi.Router) {
			r.Use(RequireWebhookSecret(d.WebhookSecret, logger))
			r.Post("/users/webhook", users.webhook)
			r.Post("/organizations/webhook", orgs.webhook)
		})
	})

	if d.DevOTP != nil {
		r.With(require(sessiondomain.TypeReset)).Get("/dev/reset-otp", reset.devResetOTP)
	}
	return r
}

func healthz(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := p.PingContext(ctx); err != nil {
				render.Status(r, http.StatusServiceUnavailable)
				render.JSON(w, r, map[string]string{"status": "unavailable"})
				return
			}
		}
		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}
