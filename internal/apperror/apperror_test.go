package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Kind
	}{
		{"plain error", errors.New("boom"), Internal},
		{"nil", nil, Internal},
		{"unauthenticated", New(Unauthenticated, "Invalid Session", ""), Unauthenticated},
		{"wrapped rate limited", fmt.Errorf("verify: %w", New(RateLimited, "Too Many Attempts", "")), RateLimited},
		{"wrap helper", Wrap(errors.New("db down"), "store session"), Internal},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Errorf("KindOf = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	if err := Wrap(nil, "anything"); err != nil {
		t.Errorf("Wrap(nil) = %v, want nil", err)
	}
}

func TestWrap_Unwraps(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, "find session")
	if !errors.Is(err, cause) {
		t.Error("wrapped error should unwrap to cause")
	}
}

func TestWithField_Copies(t *testing.T) {
	base := New(Validation, "Password Mismatch", "")
	withField := base.WithField("confirmPassword")
	if base.Field != "" {
		t.Errorf("base Field mutated to %q", base.Field)
	}
	if withField.Field != "confirmPassword" {
		t.Errorf("Field = %q, want confirmPassword", withField.Field)
	}
	if !Is(withField, Validation) {
		t.Error("copy should keep its kind")
	}
}

func TestKind_String(t *testing.T) {
	if Expired.String() != "expired" {
		t.Errorf("Expired.String() = %q", Expired.String())
	}
	if Kind(99).String() != "internal" {
		t.Errorf("unknown kind should stringify as internal, got %q", Kind(99).String())
	}
}
