package httpapi

import (
	"context"

	sessiondomain "github.com/vritti-ai-platforms/api-nexus/internal/session/domain"
)

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// Identity is the authenticated caller, set by RequireSessionType.
type Identity struct {
	UserID      string
	SessionID   string
	SessionType sessiondomain.Type
	AccessToken string
}

// WithIdentity returns a context carrying id. Handlers read it back via IdentityFrom.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity from ctx and true if set; otherwise the zero value, false.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey).(Identity)
	return v, ok
}
