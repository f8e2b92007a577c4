// Package apperror defines the closed set of error kinds returned by the auth core.
// Transport layers map a Kind to their own status codes; the core never does.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the boundary layer.
type Kind int

const (
	// Internal is a signing, hashing, or storage failure. Not client-correctable.
	Internal Kind = iota
	// Unauthenticated is a missing, invalid, or expired session or token.
	Unauthenticated
	// Validation is a client-correctable input problem.
	Validation
	// InvalidCode is a wrong OTP; the attempt has been consumed.
	InvalidCode
	// RateLimited means OTP attempts are exhausted.
	RateLimited
	// Expired is an elapsed OTP or reset window.
	Expired
	// NotFound is a missing OTP record or user.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case Validation:
		return "validation"
	case InvalidCode:
		return "invalid_code"
	case RateLimited:
		return "rate_limited"
	case Expired:
		return "expired"
	case NotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error is a classified error with a short label and a human-readable detail.
// Field optionally names the request field the error refers to.
type Error struct {
	Kind   Kind
	Label  string
	Detail string
	Field  string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Label, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Label)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind.
func New(kind Kind, label, detail string) *Error {
	return &Error{Kind: kind, Label: label, Detail: detail}
}

// WithField returns a copy of e with Field set.
func (e *Error) WithField(field string) *Error {
	c := *e
	c.Field = field
	return &c
}

// Wrap classifies err as Internal with the given label. Returns nil if err is nil.
func Wrap(err error, label string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: Internal, Label: label, Detail: "An unexpected error occurred.", Err: err}
}

// KindOf returns the Kind of err, or Internal if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
