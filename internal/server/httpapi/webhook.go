package httpapi

import (
	"crypto/subtle"
	"net/http"

	"go.uber.org/zap"

	"github.com/vritti-ai-platforms/api-nexus/internal/apperror"
)

const webhookSecretHeader = "X-Webhook-Secret"

var errBadWebhookSecret = apperror.New(apperror.Unauthenticated, "Unauthorized",
	"Missing or invalid webhook secret.")

// RequireWebhookSecret guards the cloud-server webhooks. The header is compared in
// constant time; an empty secret rejects every request.
func RequireWebhookSecret(secret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(webhookSecretHeader)
			if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				writeError(w, r, logger, errBadWebhookSecret)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
