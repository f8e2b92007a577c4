package notification

import (
	"context"

	"github.com/vritti-ai-platforms/api-nexus/internal/devotp"
)

// DevNotifier records the plain code in a devotp.Store, then forwards to Next when set.
// Wired only when OTP_RETURN_TO_CLIENT is enabled outside production.
type DevNotifier struct {
	Store devotp.Store
	Next  Notifier
}

func (n *DevNotifier) SendPasswordReset(ctx context.Context, msg PasswordReset) error {
	if err := n.Store.Put(ctx, msg.UserID, msg.Code, msg.ExpiresAt); err != nil {
		return err
	}
	if n.Next == nil {
		return nil
	}
	return n.Next.SendPasswordReset(ctx, msg)
}
