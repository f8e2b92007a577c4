// Package otp generates the numeric one-time codes used for password reset.
package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"regexp"
)

const (
	// Digits is the length of every code.
	Digits  = 6
	minCode = 100000
	maxCode = 999999
)

var (
	codeSpan    = big.NewInt(maxCode - minCode + 1)
	codePattern = regexp.MustCompile(`^\d{6}$`)
)

// Generate returns a code drawn uniformly from 100000-999999 using crypto/rand.
func Generate() (string, error) {
	return generateFrom(rand.Reader)
}

func generateFrom(r io.Reader) (string, error) {
	n, err := rand.Int(r, codeSpan)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+minCode), nil
}

// Valid reports whether s has the shape of a code: exactly six ASCII digits.
func Valid(s string) bool {
	return codePattern.MatchString(s)
}
