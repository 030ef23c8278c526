// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, durations, and role validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes content to a temp config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

const validChildConfig = `
server:
  http_addr: "0.0.0.0:4001"

auth:
  issuer: "https://tenant.auth.example.com/"
  audience: "https://bff-shell"
  roles_claim: "https://bff-shell/roles"
  jwks_cache_ttl: "30m"

b2b:
  token_url: "https://tenant.auth.example.com/oauth/token"
  client_id: "client-abc"
  client_secret: "secret-xyz"
  expiry_buffer: "5m"

apis:
  timeout: "10s"
  user:
    base_url: "http://api-user:3001"
    audience: "https://api-user"
  customer:
    base_url: "http://api-customer:3002"
    audience: "https://api-customer"

logging:
  level: "debug"
  format: "json"

metrics:
  enabled: true
`

func TestLoad_ValidChildConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, validChildConfig))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.ValidateChild(); err != nil {
		t.Fatalf("ValidateChild() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:4001" {
		t.Errorf("expected http_addr '0.0.0.0:4001', got %q", cfg.Server.HTTPAddr)
	}
	if cfg.Auth.JWKSCacheTTL != 30*time.Minute {
		t.Errorf("expected jwks_cache_ttl 30m, got %v", cfg.Auth.JWKSCacheTTL)
	}
	if cfg.B2B.ExpiryBuffer != 5*time.Minute {
		t.Errorf("expected expiry_buffer 5m, got %v", cfg.B2B.ExpiryBuffer)
	}
	if cfg.APIs.Timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", cfg.APIs.Timeout)
	}
	if cfg.APIs.User.Audience != "https://api-user" {
		t.Errorf("expected user audience 'https://api-user', got %q", cfg.APIs.User.Audience)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("expected default metrics path '/metrics', got %q", cfg.Metrics.Path)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_PORTAL_SECRET", "expanded-secret")

	content := strings.Replace(validChildConfig,
		`client_secret: "secret-xyz"`,
		`client_secret: "${TEST_PORTAL_SECRET}"`, 1)

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.B2B.ClientSecret != "expanded-secret" {
		t.Errorf("expected expanded secret, got %q", cfg.B2B.ClientSecret)
	}
}

func TestLoad_UnsetEnvVarFailsValidation(t *testing.T) {
	content := strings.Replace(validChildConfig,
		`client_secret: "secret-xyz"`,
		`client_secret: "${TEST_PORTAL_UNSET_VAR}"`, 1)

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	err = cfg.ValidateChild()
	if err == nil {
		t.Fatal("expected validation error for empty client_secret")
	}
	if !strings.Contains(err.Error(), "b2b.client_secret") {
		t.Errorf("expected error to name b2b.client_secret, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  http_addr: ":4000"
auth:
  issuer: "https://iss/"
  audience: "aud"
  roles_claim: "https://bff-shell/roles"
`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.JWKSCacheTTL != DefaultJWKSCacheTTL {
		t.Errorf("expected default jwks_cache_ttl %v, got %v", DefaultJWKSCacheTTL, cfg.Auth.JWKSCacheTTL)
	}
	if cfg.B2B.ExpiryBuffer != DefaultExpiryBuffer {
		t.Errorf("expected default expiry_buffer %v, got %v", DefaultExpiryBuffer, cfg.B2B.ExpiryBuffer)
	}
	if cfg.APIs.Timeout != DefaultAPITimeout {
		t.Errorf("expected default timeout %v, got %v", DefaultAPITimeout, cfg.APIs.Timeout)
	}
	if cfg.Session.TTL != DefaultSessionTTL {
		t.Errorf("expected default session ttl %v, got %v", DefaultSessionTTL, cfg.Session.TTL)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	content := strings.Replace(validChildConfig, `timeout: "10s"`, `timeout: "ten seconds"`, 1)

	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "apis.timeout") {
		t.Errorf("expected error to name apis.timeout, got %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateShell_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing issuer", func(c *Config) { c.Auth.Issuer = "" }, "auth.issuer"},
		{"missing audience", func(c *Config) { c.Auth.Audience = "" }, "auth.audience"},
		{"missing roles claim", func(c *Config) { c.Auth.RolesClaim = "" }, "auth.roles_claim"},
		{"missing store path", func(c *Config) { c.Session.StorePath = "" }, "session.store_path"},
		{"missing child origin", func(c *Config) { c.Relay.ChildOrigin = "" }, "relay.child_origin"},
		{"missing http addr", func(c *Config) { c.Server.HTTPAddr = "" }, "server.http_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Server:  ServerConfig{HTTPAddr: ":4000"},
				Auth:    AuthConfig{Issuer: "https://iss/", Audience: "aud", RolesClaim: "https://bff-shell/roles"},
				Session: SessionConfig{StorePath: "/tmp/sessions.db"},
				Relay:   RelayConfig{ChildOrigin: "https://child.example.com"},
			}
			tt.mutate(cfg)

			err := cfg.ValidateShell()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error to mention %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateCommon_TailscaleReplacesListenAddr(t *testing.T) {
	cfg := &Config{
		Tailscale: TailscaleConfig{Enabled: true, Hostname: "bff-child"},
		Auth:      AuthConfig{Issuer: "https://iss/", Audience: "aud", RolesClaim: "https://bff-shell/roles"},
		B2B:       B2BConfig{TokenURL: "https://iss/oauth/token", ClientID: "id", ClientSecret: "s"},
		APIs: APIsConfig{
			User:     APIConfig{BaseURL: "http://u", Audience: "https://api-user"},
			Customer: APIConfig{BaseURL: "http://c", Audience: "https://api-customer"},
		},
	}
	if err := cfg.ValidateChild(); err != nil {
		t.Fatalf("ValidateChild() error = %v", err)
	}

	cfg.Tailscale.Hostname = ""
	if err := cfg.ValidateChild(); err == nil {
		t.Fatal("expected error for missing tailscale hostname")
	}
}
