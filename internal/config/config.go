// ABOUTME: Configuration loading and parsing for the portal BFF services
// ABOUTME: Supports YAML files with environment variable expansion and fail-fast validation

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration for a BFF process.
// The shell and child BFFs share this shape; role-specific sections are
// validated by ValidateShell and ValidateChild respectively.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Auth      AuthConfig      `yaml:"auth"`
	B2B       B2BConfig       `yaml:"b2b"`
	APIs      APIsConfig      `yaml:"apis"`
	Session   SessionConfig   `yaml:"session"`
	Relay     RelayConfig     `yaml:"relay"`
	Debug     DebugConfig     `yaml:"debug"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds the HTTP listen address.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// TailscaleConfig holds optional tsnet listener configuration.
// When enabled, the BFF serves on a tailnet instead of a public interface.
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// AuthConfig holds inbound bearer-token validation configuration.
type AuthConfig struct {
	// Issuer is the token issuer base URL, e.g. "https://tenant.auth.example.com/".
	// The JWKS document is fetched from <issuer>.well-known/jwks.json.
	Issuer string `yaml:"issuer"`
	// Audience is the audience claim required on inbound user tokens.
	Audience string `yaml:"audience"`
	// RolesClaim is the single namespaced claim key holding the user's roles,
	// e.g. "https://bff-shell/roles". Resolved once at startup; request
	// handling never probes alternative keys.
	RolesClaim string `yaml:"roles_claim"`
	// JWKSCacheTTL bounds how long a fetched key set is reused.
	JWKSCacheTTL time.Duration `yaml:"-"`

	JWKSCacheTTLRaw string `yaml:"jwks_cache_ttl"`
}

// B2BConfig holds the client-credentials configuration for acquiring
// audience-scoped service tokens.
type B2BConfig struct {
	TokenURL     string `yaml:"token_url"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	// ExpiryBuffer is subtracted from the provider-reported TTL before a
	// token is cached, so tokens are refreshed ahead of their real expiry.
	ExpiryBuffer time.Duration `yaml:"-"`

	ExpiryBufferRaw string `yaml:"expiry_buffer"`
}

// APIConfig identifies one downstream resource API.
type APIConfig struct {
	BaseURL  string `yaml:"base_url"`
	Audience string `yaml:"audience"`
}

// APIsConfig holds the downstream resource APIs the child BFF proxies to.
type APIsConfig struct {
	User     APIConfig `yaml:"user"`
	Customer APIConfig `yaml:"customer"`
	// Timeout bounds every downstream request.
	Timeout time.Duration `yaml:"-"`

	TimeoutRaw string `yaml:"timeout"`
}

// SessionConfig holds shell browser-session configuration.
type SessionConfig struct {
	// StorePath is the SQLite database file backing the session store.
	StorePath string `yaml:"store_path"`
	// TTL is the session lifetime.
	TTL time.Duration `yaml:"-"`
	// SecureCookie sets the Secure attribute on the session cookie.
	SecureCookie bool `yaml:"secure_cookie"`

	TTLRaw string `yaml:"ttl"`
}

// RelayConfig holds cross-frame relay origins.
type RelayConfig struct {
	// ChildOrigin is the exact origin the shell posts relay messages to.
	ChildOrigin string `yaml:"child_origin"`
	// ParentOrigin is the exact origin the embedded app accepts messages from.
	ParentOrigin string `yaml:"parent_origin"`
}

// DebugConfig gates diagnostic surfaces that expose token internals.
type DebugConfig struct {
	// TokenInspection enables the /api/debug/token endpoint, which returns
	// the decoded claims of the session's access token. Off by default;
	// never enable outside development.
	TokenInspection bool `yaml:"token_inspection"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults applied after unmarshaling.
const (
	DefaultJWKSCacheTTL = time.Hour
	DefaultExpiryBuffer = 5 * time.Minute
	DefaultAPITimeout   = 10 * time.Second
	DefaultSessionTTL   = 8 * time.Hour
)

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Validation is role-specific and performed by the caller via ValidateShell
// or ValidateChild.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings, which
// validation then reports as missing required fields.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Auth.JWKSCacheTTL == 0 {
		c.Auth.JWKSCacheTTL = DefaultJWKSCacheTTL
	}
	if c.B2B.ExpiryBuffer == 0 {
		c.B2B.ExpiryBuffer = DefaultExpiryBuffer
	}
	if c.APIs.Timeout == 0 {
		c.APIs.Timeout = DefaultAPITimeout
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = DefaultSessionTTL
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// validateCommon checks fields required by every BFF process.
func (c *Config) validateCommon() error {
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	if c.Auth.Issuer == "" {
		return fmt.Errorf("auth.issuer is required")
	}
	if c.Auth.Audience == "" {
		return fmt.Errorf("auth.audience is required")
	}
	if c.Auth.RolesClaim == "" {
		return fmt.Errorf("auth.roles_claim is required")
	}
	return nil
}

// ValidateShell checks the configuration required by the shell BFF.
// Returns an error describing the first validation failure encountered.
func (c *Config) ValidateShell() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if c.Session.StorePath == "" {
		return fmt.Errorf("session.store_path is required")
	}
	if c.Relay.ChildOrigin == "" {
		return fmt.Errorf("relay.child_origin is required")
	}
	return nil
}

// ValidateChild checks the configuration required by the child BFF.
// Returns an error describing the first validation failure encountered.
func (c *Config) ValidateChild() error {
	if err := c.validateCommon(); err != nil {
		return err
	}
	if c.B2B.TokenURL == "" {
		return fmt.Errorf("b2b.token_url is required")
	}
	if c.B2B.ClientID == "" {
		return fmt.Errorf("b2b.client_id is required")
	}
	if c.B2B.ClientSecret == "" {
		return fmt.Errorf("b2b.client_secret is required")
	}
	if c.APIs.User.BaseURL == "" || c.APIs.User.Audience == "" {
		return fmt.Errorf("apis.user.base_url and apis.user.audience are required")
	}
	if c.APIs.Customer.BaseURL == "" || c.APIs.Customer.Audience == "" {
		return fmt.Errorf("apis.customer.base_url and apis.customer.audience are required")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func (c *Config) parseDurations() error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"auth.jwks_cache_ttl", c.Auth.JWKSCacheTTLRaw, &c.Auth.JWKSCacheTTL},
		{"b2b.expiry_buffer", c.B2B.ExpiryBufferRaw, &c.B2B.ExpiryBuffer},
		{"apis.timeout", c.APIs.TimeoutRaw, &c.APIs.Timeout},
		{"session.ttl", c.Session.TTLRaw, &c.Session.TTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	return nil
}
