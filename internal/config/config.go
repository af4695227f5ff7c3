// Package config loads restodir settings from an optional YAML file, RESTODIR_*
// environment variables and defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "RESTODIR"

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"      mapstructure:"http"`
	Metrics  MetricsConfig  `yaml:"metrics"   mapstructure:"metrics"`
	Tenant   TenantConfig   `yaml:"tenant"    mapstructure:"tenant"`
	Locale   LocaleConfig   `yaml:"locale"    mapstructure:"locale"`
	Database DatabaseConfig `yaml:"database"  mapstructure:"database"`
	Auth     AuthConfig     `yaml:"auth"      mapstructure:"auth"`
	Authz    AuthzConfig    `yaml:"authz"     mapstructure:"authz"`
	Log      LogConfig      `yaml:"log"       mapstructure:"log"`
}

type HTTPConfig struct {
	Addr        string   `yaml:"addr"         mapstructure:"addr"         validate:"required,listen_addr"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
	TrustProxy  bool     `yaml:"trust_proxy"  mapstructure:"trust_proxy"`
}

type MetricsConfig struct {
	// empty disables the metrics listener
	Addr string `yaml:"addr" mapstructure:"addr" validate:"omitempty,listen_addr"`
}

type TenantConfig struct {
	RootDomain     string `yaml:"root_domain"     mapstructure:"root_domain"     validate:"required"`
	RedirectScheme string `yaml:"redirect_scheme" mapstructure:"redirect_scheme" validate:"oneof=http https"`
}

type LocaleConfig struct {
	Locales []string `yaml:"locales" mapstructure:"locales" validate:"min=1,dive,required"`
	Default string   `yaml:"default" mapstructure:"default" validate:"required"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN    string `yaml:"dsn"    mapstructure:"dsn"    validate:"required"`
}

type AuthConfig struct {
	SessionSecret string        `yaml:"session_secret" mapstructure:"session_secret" validate:"required"`
	Issuer        string        `yaml:"issuer"         mapstructure:"issuer"`
	SessionTTL    time.Duration `yaml:"session_ttl"    mapstructure:"session_ttl"    validate:"gte=0"`
	SecureCookie  bool          `yaml:"secure_cookie"  mapstructure:"secure_cookie"`
}

type AuthzConfig struct {
	Backend string    `yaml:"backend" mapstructure:"backend" validate:"oneof=local openfga mock"`
	FGA     FGAConfig `yaml:"fga"     mapstructure:"fga"`
}

type FGAConfig struct {
	APIURL   string `yaml:"api_url"  mapstructure:"api_url"  validate:"omitempty,url"`
	StoreID  string `yaml:"store_id" mapstructure:"store_id"`
	ModelID  string `yaml:"model_id" mapstructure:"model_id"`
	APIToken string `yaml:"api_token" mapstructure:"api_token"`
}

type LogConfig struct {
	JSON  bool   `yaml:"json"  mapstructure:"json"`
	Level string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("http.trust_proxy", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("tenant.root_domain", "localhost")
	v.SetDefault("tenant.redirect_scheme", "https")
	v.SetDefault("locale.locales", []string{"es"})
	v.SetDefault("locale.default", "es")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:restodir.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	v.SetDefault("auth.session_secret", "")
	v.SetDefault("auth.issuer", "restodir")
	v.SetDefault("auth.session_ttl", 7*24*time.Hour)
	v.SetDefault("auth.secure_cookie", true)
	v.SetDefault("authz.backend", "local")
	v.SetDefault("authz.fga.api_url", "")
	v.SetDefault("authz.fga.store_id", "")
	v.SetDefault("authz.fga.model_id", "")
	v.SetDefault("authz.fga.api_token", "")
	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// Load reads path (skipped when empty or missing), applies RESTODIR_* overrides
// such as RESTODIR_TENANT_ROOT_DOMAIN, and validates the result.
func Load(path string) (*Config, error) {
	c, err := LoadRaw(path)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// LoadRaw is Load without validation.
func LoadRaw(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				var nf viper.ConfigFileNotFoundError
				if !errors.As(err, &nf) {
					return nil, fmt.Errorf("failed to read config file: %w", err)
				}
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.normalize()
	return &c, nil
}

func (c *Config) normalize() {
	c.Tenant.RootDomain = strings.ToLower(strings.TrimSpace(c.Tenant.RootDomain))
	c.Tenant.RedirectScheme = strings.ToLower(c.Tenant.RedirectScheme)
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Authz.Backend = strings.ToLower(c.Authz.Backend)
	// a single env var yields one comma separated element
	if len(c.Locale.Locales) == 1 && strings.Contains(c.Locale.Locales[0], ",") {
		c.Locale.Locales = strings.Split(c.Locale.Locales[0], ",")
	}
	for i, l := range c.Locale.Locales {
		c.Locale.Locales[i] = strings.TrimSpace(l)
	}
	if len(c.HTTP.CORSOrigins) == 1 && strings.Contains(c.HTTP.CORSOrigins[0], ",") {
		c.HTTP.CORSOrigins = strings.Split(c.HTTP.CORSOrigins[0], ",")
	}
}
