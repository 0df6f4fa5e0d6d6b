package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("IAM_JWT_SECRET", strings.Repeat("s", 40))
	t.Setenv("IAM_RESET_TOKEN_TTL", "20m")
	t.Setenv("IAM_APP_PORT", "9000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Port != 9000 {
		t.Fatalf("expected port override, got %d", cfg.App.Port)
	}
	if cfg.Reset.TokenTTL != 20*time.Minute {
		t.Fatalf("expected reset ttl override, got %v", cfg.Reset.TokenTTL)
	}
	if cfg.JWT.TTL != 90*24*time.Hour {
		t.Fatalf("unexpected default jwt ttl %v", cfg.JWT.TTL)
	}
	if cfg.Mail.Transport != "log" {
		t.Fatalf("unexpected default mail transport %q", cfg.Mail.Transport)
	}
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	t.Setenv("IAM_JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "jwt.secret") {
		t.Fatalf("expected jwt.secret validation error, got %v", err)
	}
}

func TestValidateMailTransport(t *testing.T) {
	cfg := AppConfig{
		JWT:   JWTSettings{Secret: strings.Repeat("k", 32), TTL: time.Hour},
		Reset: ResetSettings{TokenTTL: time.Minute, RollbackTimeout: time.Second},
		Mail:  MailSettings{Transport: "kafka"},
	}

	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "kafka.brokers") {
		t.Fatalf("expected kafka broker validation error, got %v", err)
	}
}
