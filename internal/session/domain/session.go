package domain

import "time"

// Type is the purpose a session was issued for. It never changes after creation.
type Type string

const (
	// TypePrimary is normal authenticated use.
	TypePrimary Type = "PRIMARY"
	// TypeSetPassword authorizes only first-login password creation.
	TypeSetPassword Type = "SET_PASSWORD"
	// TypeReset authorizes only the password-reset flow.
	TypeReset Type = "RESET"
)

// Valid reports whether t is one of the known session types.
func (t Type) Valid() bool {
	switch t {
	case TypePrimary, TypeSetPassword, TypeReset:
		return true
	}
	return false
}

// Session is an issued credential pair for one user on one device.
// Only digests of the current tokens are stored.
type Session struct {
	ID               string
	UserID           string
	Type             Type
	AccessTokenHash  string
	RefreshTokenHash string
	IPAddress        string // empty when unknown
	UserAgent        string // empty when unknown
	ExpiresAt        time.Time
	CreatedAt        time.Time
}

// Expired reports whether the session is past its deadline at now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
