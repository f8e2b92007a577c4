package config

import (
	"errors"
	"testing"
	"time"
)

func TestParseExpiry(t *testing.T) {
	testCases := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"168h", 168 * time.Hour, false},
		{"1s", time.Second, false},
		{"", 0, true},
		{"5", 0, true},
		{"m", 0, true},
		{"7d", 0, true},
		{"1.5h", 0, true},
		{"-5m", 0, true},
		{" 5m", 0, true},
		{"0s", 0, true},
		{"99999999999999999999h", 0, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseExpiry(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidExpiry) {
					t.Errorf("ParseExpiry(%q) err = %v, want ErrInvalidExpiry", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseExpiry(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseExpiry(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}
