package config

import (
	"net/http"
	"os"
	"testing"
	"time"
)

func setMinimalEnv() {
	os.Clearenv()
	os.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setMinimalEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":3000")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("AccessTTL = %v, want 15m", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 168*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", cfg.RefreshTTL())
	}
	if cfg.OTPTTL() != 5*time.Minute {
		t.Errorf("OTPTTL = %v, want 5m", cfg.OTPTTL())
	}
	if cfg.OTPMaxAttempts != 5 {
		t.Errorf("OTPMaxAttempts = %d, want 5", cfg.OTPMaxAttempts)
	}
	if cfg.OTPReturnToClient {
		t.Error("OTPReturnToClient should default to false")
	}
	if cfg.RefreshCookieName != "nexus_refresh" {
		t.Errorf("RefreshCookieName = %q, want nexus_refresh", cfg.RefreshCookieName)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setMinimalEnv()
	os.Setenv("ACCESS_TOKEN_EXPIRY", "30s")
	os.Setenv("OTP_EXPIRY", "10m")
	os.Setenv("OTP_MAX_ATTEMPTS", "3")
	os.Setenv("JWT_ISSUER", "custom-issuer")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccessTTL() != 30*time.Second {
		t.Errorf("AccessTTL = %v, want 30s", cfg.AccessTTL())
	}
	if cfg.OTPTTL() != 10*time.Minute {
		t.Errorf("OTPTTL = %v, want 10m", cfg.OTPTTL())
	}
	if cfg.OTPMaxAttempts != 3 {
		t.Errorf("OTPMaxAttempts = %d, want 3", cfg.OTPMaxAttempts)
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want custom-issuer", cfg.JWTIssuer)
	}
}

func TestLoad_MalformedExpiryIsFatal(t *testing.T) {
	testCases := []struct {
		key   string
		value string
	}{
		{"ACCESS_TOKEN_EXPIRY", "15 minutes"},
		{"REFRESH_TOKEN_EXPIRY", "7d"},
		{"OTP_EXPIRY", "m5"},
		{"OTP_EXPIRY", "0m"},
	}
	for _, tc := range testCases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			setMinimalEnv()
			os.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load with %s=%q should fail", tc.key, tc.value)
			}
		})
	}
}

func TestLoad_SigningMaterialRequired(t *testing.T) {
	os.Clearenv()
	if _, err := Load(); err == nil {
		t.Fatal("Load without JWT_SECRET or key pair should fail")
	}

	os.Clearenv()
	os.Setenv("JWT_PRIVATE_KEY", "/tmp/priv.pem")
	if _, err := Load(); err == nil {
		t.Fatal("Load with only a private key should fail")
	}

	os.Clearenv()
	os.Setenv("JWT_PRIVATE_KEY", "/tmp/priv.pem")
	os.Setenv("JWT_PUBLIC_KEY", "/tmp/pub.pem")
	if _, err := Load(); err != nil {
		t.Fatalf("Load with key pair: %v", err)
	}
}

func TestLoad_OTPMaxAttemptsMustBePositive(t *testing.T) {
	setMinimalEnv()
	os.Setenv("OTP_MAX_ATTEMPTS", "0")
	if _, err := Load(); err == nil {
		t.Fatal("Load with OTP_MAX_ATTEMPTS=0 should fail")
	}
}

func TestLoad_DevOTPRejectedInProduction(t *testing.T) {
	setMinimalEnv()
	os.Setenv("APP_ENV", "production")
	os.Setenv("OTP_RETURN_TO_CLIENT", "true")
	if _, err := Load(); err == nil {
		t.Fatal("Load should reject OTP_RETURN_TO_CLIENT in production")
	}

	os.Setenv("APP_ENV", "development")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load in development: %v", err)
	}
	if !cfg.OTPReturnToClient {
		t.Error("OTPReturnToClient should be true")
	}
}

func TestLoad_InvalidSameSite(t *testing.T) {
	setMinimalEnv()
	os.Setenv("COOKIE_SAME_SITE", "sometimes")
	if _, err := Load(); err == nil {
		t.Fatal("Load with invalid COOKIE_SAME_SITE should fail")
	}
}

func TestCookie(t *testing.T) {
	setMinimalEnv()
	os.Setenv("COOKIE_SAME_SITE", "lax")
	os.Setenv("COOKIE_DOMAIN", "nexus.example.com")
	os.Setenv("REFRESH_TOKEN_EXPIRY", "24h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c := cfg.Cookie()
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite = %v, want Lax", c.SameSite)
	}
	if c.Domain != "nexus.example.com" {
		t.Errorf("Domain = %q", c.Domain)
	}
	if c.MaxAge != 24*time.Hour {
		t.Errorf("MaxAge = %v, want 24h", c.MaxAge)
	}
	if !c.Secure {
		t.Error("Secure should default to true")
	}
	if c.Path != "/" {
		t.Errorf("Path = %q, want /", c.Path)
	}
}

func TestNotifyKafkaBrokersList(t *testing.T) {
	testCases := []struct {
		name    string
		brokers string
		want    []string
	}{
		{"empty", "", nil},
		{"single", "localhost:9092", []string{"localhost:9092"}},
		{"multiple with spaces", " a:9092 , b:9092,,", []string{"a:9092", "b:9092"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &Config{NotifyKafkaBrokers: tc.brokers}
			got := cfg.NotifyKafkaBrokersList()
			if len(got) != len(tc.want) {
				t.Fatalf("len = %d, want %d (%v)", len(got), len(tc.want), got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
	var nilCfg *Config
	if nilCfg.NotifyKafkaBrokersList() != nil {
		t.Error("nil config should return nil list")
	}
}
