package notification

import (
	"strings"
	"testing"
	"time"
)

func TestRenderPasswordReset(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	testCases := []struct {
		name     string
		msg      PasswordReset
		wantName string
		wantExp  string
	}{
		{"five minutes", PasswordReset{Code: "482913", DisplayName: "Jane", ExpiresAt: now.Add(5 * time.Minute)}, "Jane", "5 minutes"},
		{"rounds up", PasswordReset{Code: "482913", DisplayName: "Jane", ExpiresAt: now.Add(4*time.Minute + time.Second)}, "Jane", "5 minutes"},
		{"singular", PasswordReset{Code: "482913", ExpiresAt: now.Add(30 * time.Second)}, "there", "1 minute."},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			email, err := RenderPasswordReset(tc.msg, now)
			if err != nil {
				t.Fatalf("RenderPasswordReset: %v", err)
			}
			if email.Subject != PasswordResetSubject {
				t.Errorf("Subject = %q", email.Subject)
			}
			if !strings.HasPrefix(email.Text, "Hello "+tc.wantName+",") {
				t.Errorf("text greeting: %q", email.Text[:20])
			}
			if !strings.Contains(email.Text, "Reset Code: 482913") {
				t.Error("text missing code")
			}
			if !strings.Contains(email.Text, "expire in "+tc.wantExp) {
				t.Errorf("text expiry, want %q in %q", tc.wantExp, email.Text)
			}
			if !strings.Contains(email.HTML, "482913") || !strings.Contains(email.HTML, "<strong>"+tc.wantName+"</strong>") {
				t.Error("html missing code or name")
			}
		})
	}
}

func TestRenderPasswordReset_EscapesName(t *testing.T) {
	email, err := RenderPasswordReset(PasswordReset{Code: "123456", DisplayName: "<script>", ExpiresAt: time.Now().Add(time.Minute)}, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(email.HTML, "<script>") {
		t.Error("display name must be escaped in html")
	}
}
