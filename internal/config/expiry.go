package config

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidExpiry is returned for expiry strings not of the form <integer><s|m|h>.
var ErrInvalidExpiry = errors.New("invalid expiry format")

var expiryPattern = regexp.MustCompile(`^(\d+)([smh])$`)

// ParseExpiry parses an expiry like "30s", "15m" or "168h". Zero is rejected.
func ParseExpiry(s string) (time.Duration, error) {
	m := expiryPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, ErrInvalidExpiry
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidExpiry
	}
	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	}
	if n > int64((1<<63-1)/unit) {
		return 0, ErrInvalidExpiry
	}
	return time.Duration(n) * unit, nil
}
