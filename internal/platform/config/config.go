// Copyright (c) 2026 Edura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, mailer) via constructors.
  - Fail Fast: Cross-field rules are checked by [Config.Validate] before anything starts.
*/
package config

import (
	"errors"
	"fmt"
	"net/mail"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Storage Drivers

const (
	// DriverPostgres persists identities and sessions in PostgreSQL.
	DriverPostgres = "postgres"

	// DriverMemory keeps everything in process memory. Development only.
	DriverMemory = "memory"
)

// # Configuration Schema

// Config holds all runtime configuration for the Edura API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// StorageDriver selects the identity and session backend.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis). Password reset tokens live in memory when empty.
	RedisURL string `env:"REDIS_URL"`

	// RSA key pair for session token signing
	JWTPrivKeyPath string `env:"JWT_PRIVATE_KEY_PATH"`
	JWTPubKeyPath  string `env:"JWT_PUBLIC_KEY_PATH"`

	// SessionTTL bounds the lifetime of every session and its bearer token.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Per-IP limits for the public authentication routes
	AuthRateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS"   envDefault:"5"`
	AuthRateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"20"`

	// AccessPolicyPath optionally replaces the compiled-in role policy.
	AccessPolicyPath string `env:"ACCESS_POLICY_PATH"`

	// Outbound mail. Messages are logged instead of sent when the key is empty.
	MailFrom       string `env:"MAIL_FROM"        envDefault:"no-reply@edura.app"`
	SendGridAPIKey string `env:"SENDGRID_API_KEY"`

	// AppBaseURL prefixes links placed in outgoing mail.
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`

	// TrustedProxies lists proxy IPs or CIDR ranges allowed to set X-Forwarded-For.
	// Empty means the socket address is always the client address.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// BootstrapAdminEmail is promoted to admin once that identity is verified.
	BootstrapAdminEmail string `env:"BOOTSTRAP_ADMIN_EMAIL"`
}

// # Configuration Loading

// Load parses process environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {
	return load(env.Options{})
}

// LoadFrom is [Load] over an explicit variable set instead of the process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Environment: environ})
}

func load(options env.Options) (*Config, error) {
	cfg := &Config{}

	if err := env.ParseWithOptions(cfg, options); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the rules that involve more than one field.
func (c *Config) Validate() error {
	var problems []error

	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres"))
		}
	case DriverMemory:
		if c.IsProduction() {
			problems = append(problems, errors.New("STORAGE_DRIVER=memory is not allowed in production"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	if (c.JWTPrivKeyPath == "") != (c.JWTPubKeyPath == "") {
		problems = append(problems, errors.New("JWT_PRIVATE_KEY_PATH and JWT_PUBLIC_KEY_PATH must be set together"))
	}
	if !c.IsDevelopment() && !c.HasSigningKeys() {
		problems = append(problems, errors.New("JWT key paths are required outside development"))
	}

	if c.SessionTTL <= 0 {
		problems = append(problems, errors.New("SESSION_TTL must be positive"))
	}
	if c.AuthRateLimitRPS <= 0 || c.AuthRateLimitBurst <= 0 {
		problems = append(problems, errors.New("AUTH_RATE_LIMIT_RPS and AUTH_RATE_LIMIT_BURST must be positive"))
	}

	if _, err := ParsePrefixes(c.TrustedProxies); err != nil {
		problems = append(problems, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	if c.BootstrapAdminEmail != "" {
		if address, err := mail.ParseAddress(c.BootstrapAdminEmail); err != nil || address.Address != c.BootstrapAdminEmail {
			problems = append(problems, fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL %q is not a bare email address", c.BootstrapAdminEmail))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: invalid configuration: %w", errors.Join(problems...))
	}
	return nil
}

// HasSigningKeys reports whether an RSA key pair is configured on disk.
func (c *Config) HasSigningKeys() bool {
	return c.JWTPrivKeyPath != "" && c.JWTPubKeyPath != ""
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AllowedOrigins returns origins accepted by CORS beyond the edura.app domain.
func (c *Config) AllowedOrigins() []string {
	return c.ExtraOrigins
}

// TrustedProxyPrefixes returns the parsed TRUSTED_PROXIES. Validate has already
// rejected malformed entries.
func (c *Config) TrustedProxyPrefixes() []netip.Prefix {
	prefixes, _ := ParsePrefixes(c.TrustedProxies)
	return prefixes
}

// ParsePrefixes reads CIDR ranges and bare addresses. A bare address becomes a
// single-host prefix.
func ParsePrefixes(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}

		if strings.Contains(value, "/") {
			prefix, err := netip.ParsePrefix(value)
			if err != nil {
				return nil, fmt.Errorf("invalid range %q: %w", value, err)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(value)
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", value, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}
