package domain

import "time"

// Record is the single active reset code of a user. Only the code's hash is stored.
type Record struct {
	ID         string
	UserID     string
	OTPHash    string
	Attempts   int
	IsVerified bool
	VerifiedAt *time.Time // set together with IsVerified
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired reports whether the code can no longer be presented at now.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// WithinWindow reports whether now is at most window past verification.
func (r *Record) WithinWindow(now time.Time, window time.Duration) bool {
	if !r.IsVerified || r.VerifiedAt == nil {
		return false
	}
	return !now.After(r.VerifiedAt.Add(window))
}
