package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("RESTODIR_AUTH_SESSION_SECRET", secret)

	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.HTTP.Addr != ":8080" {
		t.Fatalf("HTTP.Addr = %q, want :8080", c.HTTP.Addr)
	}
	if c.Tenant.RedirectScheme != "https" {
		t.Fatalf("RedirectScheme = %q, want https", c.Tenant.RedirectScheme)
	}
	if len(c.Locale.Locales) != 1 || c.Locale.Locales[0] != "es" || c.Locale.Default != "es" {
		t.Fatalf("Locale = %+v, want [es]/es", c.Locale)
	}
	if c.Auth.SessionTTL != 7*24*time.Hour {
		t.Fatalf("SessionTTL = %v", c.Auth.SessionTTL)
	}
	if c.Authz.Backend != "local" {
		t.Fatalf("Backend = %q, want local", c.Authz.Backend)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	p := filepath.Join(t.TempDir(), "restodir.yaml")
	yaml := strings.Join([]string{
		"tenant:",
		"  root_domain: Example.COM",
		"locale:",
		"  locales: [es, en]",
		"  default: es",
		"auth:",
		"  session_secret: " + secret,
		"  session_ttl: 2h",
		"",
	}, "\n")
	if err := os.WriteFile(p, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RESTODIR_LOG_LEVEL", "DEBUG")

	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if c.Tenant.RootDomain != "example.com" {
		t.Fatalf("RootDomain = %q, want example.com", c.Tenant.RootDomain)
	}
	if c.Log.Level != "debug" {
		t.Fatalf("Log.Level = %q, want debug", c.Log.Level)
	}
	if c.Auth.SessionTTL != 2*time.Hour {
		t.Fatalf("SessionTTL = %v, want 2h", c.Auth.SessionTTL)
	}
	if len(c.Locale.Locales) != 2 {
		t.Fatalf("Locales = %v", c.Locale.Locales)
	}
}

func TestLoadEnvLocaleList(t *testing.T) {
	t.Setenv("RESTODIR_AUTH_SESSION_SECRET", secret)
	t.Setenv("RESTODIR_LOCALE_LOCALES", "es, en")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(c.Locale.Locales) != 2 || c.Locale.Locales[1] != "en" {
		t.Fatalf("Locales = %q, want [es en]", c.Locale.Locales)
	}
}

func valid() *Config {
	return &Config{
		HTTP:     HTTPConfig{Addr: "127.0.0.1:8080"},
		Tenant:   TenantConfig{RootDomain: "example.com", RedirectScheme: "https"},
		Locale:   LocaleConfig{Locales: []string{"es"}, Default: "es"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "file::memory:"},
		Auth:     AuthConfig{SessionSecret: secret},
		Authz:    AuthzConfig{Backend: "local"},
		Log:      LogConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"short secret", func(c *Config) { c.Auth.SessionSecret = "short" }, "session_secret"},
		{"default outside locales", func(c *Config) { c.Locale.Default = "en" }, "locale.default"},
		{"no locales", func(c *Config) { c.Locale.Locales = nil }, "Locales"},
		{"bad driver", func(c *Config) { c.Database.Driver = "mysql" }, "Driver"},
		{"bad backend", func(c *Config) { c.Authz.Backend = "casbin" }, "Backend"},
		{"openfga without store", func(c *Config) { c.Authz.Backend = "openfga"; c.Authz.FGA.APIURL = "http://fga:8080" }, "store_id"},
		{"bad scheme", func(c *Config) { c.Tenant.RedirectScheme = "ftp" }, "RedirectScheme"},
		{"addr without port", func(c *Config) { c.HTTP.Addr = "localhost" }, "host:port"},
		{"port out of range", func(c *Config) { c.Metrics.Addr = ":99999" }, "host:port"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(c)
			err := c.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateAcceptsEphemeralPorts(t *testing.T) {
	c := valid()
	c.HTTP.Addr = "127.0.0.1:0"
	c.Metrics.Addr = ":0"
	if err := c.Validate(); err != nil {
		t.Fatalf("ephemeral listen addresses rejected: %v", err)
	}
}

// A root domain the tenant resolver cannot parse disables subdomain routing
// at startup instead of failing validation.
func TestValidateLeavesRootDomainToTenantRouting(t *testing.T) {
	c := valid()
	c.Tenant.RootDomain = "example.com/path"
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}
