// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file when
// present), loads them on top of built-in defaults into structured Go types,
// and validates that required values are present so they can be reused
// across the application runtime.
//
// The resulting *Config is built once at startup and is never mutated
// afterwards, so it is safe to read from any number of request goroutines.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists it is loaded into the
	// process env before any of the providers below read it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is stripped from env var names before they become koanf keys.
	// A double underscore marks nesting:
	//   NOWCASTING_SERVER__PORT -> server.port
	//   NOWCASTING_OBSERVABILITY__LOGGING__LEVEL -> observability.logging.level
	EnvPrefix = "NOWCASTING_"

	// OriginsEnv is the comma-separated list of CORS origins.
	OriginsEnv = "ORIGINS"

	// DatabaseURLEnv carries a full postgres connection string. When set it
	// wins over the discrete database.* fields.
	DatabaseURLEnv = "DB_URL"

	// DefaultOrigin is allowed when ORIGINS is unset.
	DefaultOrigin = "https://app.nowcasting.io"

	// ServiceName identifies this service in logs and traces.
	ServiceName = "nowcasting-api"
)

// Config is the root configuration object for the application.
//
// The `koanf:"..."` tags specify where koanf should map values from.
// The `validate:"..."` tags are enforced by go-playground/validator.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	API           APIConfig            `koanf:"api" validate:"required"`
	Database      DatabaseConfig       `koanf:"database" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are whole seconds.
type ServerConfig struct {
	Port               string          `koanf:"port" validate:"required"`
	ReadTimeout        int             `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int             `koanf:"write_timeout" validate:"required"`
	IdleTimeout        int             `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string        `koanf:"cors_allowed_origins" validate:"required,min=1,dive,required"`
	FaviconPath        string          `koanf:"favicon_path" validate:"required"`
	StaticDir          string          `koanf:"static_dir" validate:"required"`
	GSPBoundariesPath  string          `koanf:"gsp_boundaries_path" validate:"required"`
	RateLimit          RateLimitConfig `koanf:"rate_limit"`
}

// RateLimitConfig configures the per-client limiter in front of the API.
type RateLimitConfig struct {
	Enabled   bool          `koanf:"enabled"`
	RPS       float64       `koanf:"rps" validate:"required_if=Enabled true,gte=0"`
	Burst     int           `koanf:"burst" validate:"gte=0"`
	ExpiresIn time.Duration `koanf:"expires_in"`
}

// APIConfig is the metadata returned by GET /.
type APIConfig struct {
	Title         string `koanf:"title" validate:"required"`
	Version       string `koanf:"version" validate:"required"`
	Description   string `koanf:"description" validate:"required"`
	Documentation string `koanf:"documentation" validate:"required,url"`
}

// DatabaseConfig contains PostgreSQL connection parameters and pool tuning.
//
// Either URL or the discrete connection fields must be present.
type DatabaseConfig struct {
	URL             string `koanf:"url"`
	Host            string `koanf:"host" validate:"required_without=URL"`
	Port            int    `koanf:"port" validate:"required_without=URL"`
	User            string `koanf:"user" validate:"required_without=URL"`
	Password        string `koanf:"password"`
	Name            string `koanf:"name" validate:"required_without=URL"`
	SSLMode         string `koanf:"ssl_mode" validate:"required_without=URL"`
	MaxOpenConns    int    `koanf:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int    `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime int    `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime int    `koanf:"conn_max_idle_time" validate:"required"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
}

// defaults is the base layer every other source is merged on top of.
func defaults() map[string]any {
	return map[string]any{
		"primary.env": "development",

		"server.port":                  "8080",
		"server.read_timeout":          30,
		"server.write_timeout":         30,
		"server.idle_timeout":          60,
		"server.cors_allowed_origins":  []string{DefaultOrigin},
		"server.favicon_path":          "static/favicon.ico",
		"server.static_dir":            "static",
		"server.gsp_boundaries_path":   "static/gsp_regions.geojson",
		"server.rate_limit.enabled":    false,
		"server.rate_limit.rps":        20.0,
		"server.rate_limit.burst":      40,
		"server.rate_limit.expires_in": "3m",

		"api.title":         "Nowcasting API",
		"api.version":       "0.1.20",
		"api.description":   "The Nowcasting API is still under development. It only returns zeros for now.",
		"api.documentation": "https://api.nowcasting.io/docs",

		"database.port":               5432,
		"database.ssl_mode":           "disable",
		"database.max_open_conns":     10,
		"database.max_idle_conns":     2,
		"database.conn_max_lifetime":  300,
		"database.conn_max_idle_time": 60,
		"database.auto_migrate":       false,

		"observability.logging.level":                         "info",
		"observability.logging.format":                        "json",
		"observability.logging.slow_query_threshold":          "100ms",
		"observability.new_relic.app_log_forwarding_enabled":  true,
		"observability.new_relic.distributed_tracing_enabled": true,
		"observability.new_relic.debug_logging":               false,
		"observability.health_checks.enabled":                 true,
		"observability.health_checks.timeout":                 "5s",
	}
}

// LoadConfig loads configuration from defaults and environment variables,
// unmarshals it into Config, validates it, applies observability defaults,
// and returns the resulting config.
//
// Sources (later wins):
//   - built-in defaults
//   - NOWCASTING_* env vars
//   - ORIGINS and DB_URL
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("could not load config defaults: %w", err)
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	// ORIGINS and DB_URL are read verbatim, without the prefix. Returning an
	// empty key makes koanf skip the variable.
	err = k.Load(env.ProviderWithValue(OriginsEnv, ".", func(key, value string) (string, any) {
		if key != OriginsEnv {
			return "", nil
		}
		origins := ParseOrigins(value)
		if len(origins) == 0 {
			return "", nil
		}
		return "server.cors_allowed_origins", origins
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", OriginsEnv, err)
	}

	err = k.Load(env.ProviderWithValue(DatabaseURLEnv, ".", func(key, value string) (string, any) {
		if key != DatabaseURLEnv || value == "" {
			return "", nil
		}
		return "database.url", value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load %s: %w", DatabaseURLEnv, err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	validate := validator.New()
	if err := validate.Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name is fixed and the telemetry environment always follows
	// primary.env, whatever was set under observability.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}

// ParseOrigins splits a comma-separated origin list, trimming whitespace and
// dropping empty entries.
func ParseOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

// IsLocal reports whether the service runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Primary.Env == "local"
}
