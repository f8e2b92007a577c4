package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/apperror"
	"github.com/vritti-ai-platforms/api-nexus/internal/metrics"
	"github.com/vritti-ai-platforms/api-nexus/internal/security"
	sessiondomain "github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
	sessionsvc "github.com/vritti-ai-platforms/api-nexus/internal/session/service"
)

const bearerPrefix = "bearer "

// AccessTokenParser verifies the signature and claims of an access token.
type AccessTokenParser interface {
	ParseAccess(token string) (*security.AccessClaims, error)
}

// SessionValidator resolves an access token to its live session.
type SessionValidator interface {
	ValidateAccessTokenSession(ctx context.Context, accessToken string) (*sessiondomain.Session, error)
}

var errMissingToken = apperror.New(apperror.Unauthenticated, "Unauthorized",
	"Missing or invalid authorization header.")

// RequireSessionType authenticates the Bearer access token and admits only sessions of the
// allowed types. The stored session type is authoritative, not the token claim.
func RequireSessionType(tokens AccessTokenParser, sessions SessionValidator, logger *zap.Logger, allowed ...sessiondomain.Type) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r)
			if token == "" {
				writeError(w, r, logger, errMissingToken)
				return
			}
			if _, err := tokens.ParseAccess(token); err != nil {
				writeError(w, r, logger, sessionsvc.ErrInvalidSession)
				return
			}
			sess, err := sessions.ValidateAccessTokenSession(r.Context(), token)
			if err != nil {
				writeError(w, r, logger, err)
				return
			}
			if err := sessionsvc.RequireType(sess, allowed...); err != nil {
				writeError(w, r, logger, err)
				return
			}
			ctx := WithIdentity(r.Context(), Identity{
				UserID:      sess.UserID,
				SessionID:   sess.ID,
				SessionType: sess.Type,
				AccessToken: token,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearer returns the Bearer token from the Authorization header, or "" if missing or malformed.
func extractBearer(r *http.Request) string {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}

// requestLogger logs one line per request and records HTTP metrics by route pattern.
func requestLogger(logger *zap.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			m.ObserveHTTP(route, r.Method, status, elapsed)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", status),
				zap.Duration("duration", elapsed),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// clientIP returns the caller address. RealIP has already applied proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
