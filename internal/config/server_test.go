package config

import (
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/handout")
	t.Setenv("SESSION_SECRET", "test-secret-that-is-at-least-32-bytes-long")
}

func TestLoadServerConfig_RequiredVars(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SESSION_SECRET", "")
	if _, err := LoadServerConfig(); err == nil {
		t.Error("expected error when DATABASE_URL is missing")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/handout")
	if _, err := LoadServerConfig(); err == nil {
		t.Error("expected error when SESSION_SECRET is missing")
	}
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("ENV", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("PORT", "")
	t.Setenv("BASE_URL", "")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != EnvDevelopment {
		t.Errorf("expected %q, got %q", EnvDevelopment, cfg.Environment)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.ListenAddr)
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("expected default base URL, got %s", cfg.BaseURL)
	}
	if cfg.RateLimitRequests != 100 || cfg.RateLimitPeriod != "1m" {
		t.Errorf("expected default rate limit 100/1m, got %d/%s", cfg.RateLimitRequests, cfg.RateLimitPeriod)
	}
}

func TestLoadServerConfig_ValidEnvironments(t *testing.T) {
	tests := []struct {
		env  string
		want Environment
	}{
		{"development", EnvDevelopment},
		{"staging", EnvStaging},
		{"production", EnvProduction},
		{"invalid", EnvDevelopment},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			setRequired(t)
			t.Setenv("ENV", tt.env)
			cfg, err := LoadServerConfig()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Environment != tt.want {
				t.Errorf("expected %q, got %q", tt.want, cfg.Environment)
			}
		})
	}
}

func TestLoadServerConfig_BaseURLTrailingSlash(t *testing.T) {
	setRequired(t)
	t.Setenv("BASE_URL", "https://handout.example.com/")

	cfg, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "https://handout.example.com" {
		t.Errorf("expected trailing slash stripped, got %s", cfg.BaseURL)
	}
}

func TestServerConfig_OIDCEnabled(t *testing.T) {
	cfg := ServerConfig{}
	if cfg.OIDCEnabled() {
		t.Error("expected OIDC disabled with no settings")
	}
	cfg.OIDCIssuer = "https://issuer.example.com"
	cfg.OIDCClientID = "client"
	if !cfg.OIDCEnabled() {
		t.Error("expected OIDC enabled")
	}
}
