// Package config loads and validates application configuration from YAML files
// and environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Identity      IdentityConfig      `yaml:"identity"`
	Definitions   DefinitionsConfig   `yaml:"definitions"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	Metadata      MetadataConfig      `yaml:"metadata"`
	Listing       ListingConfig       `yaml:"listing"`
	Lookup        LookupCacheConfig   `yaml:"lookup"`
	Wizard        WizardConfig        `yaml:"wizard"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`
	CORS            CORSConfig    `yaml:"cors"`
}

// CORSConfig describes Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
	MaxAge         int      `yaml:"max_age"`
}

// IdentityConfig describes JWT validation settings for incoming admin tokens.
type IdentityConfig struct {
	Issuer     string            `yaml:"issuer"`
	Audience   string            `yaml:"audience"`
	SigningKey string            `yaml:"signing_key"`
	KeyEnv     string            `yaml:"key_env"`
	Algorithms []string          `yaml:"algorithms"`
	ClaimPaths map[string]string `yaml:"claim_paths"`
}

// DefinitionsConfig describes where to find console definition YAML files.
type DefinitionsConfig struct {
	Directories     []string `yaml:"directories"`
	StrictChecksums bool     `yaml:"strict_checksums"`
}

// UpstreamConfig describes the resource data service this console fronts.
type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url"`
	FileBaseURL    string        `yaml:"file_base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	ForwardAuth    bool          `yaml:"forward_auth"`
	Retry          RetryConfig   `yaml:"retry"`
	MaxIdleConns   int           `yaml:"max_idle_conns"`
	TLSInsecure    bool          `yaml:"tls_insecure"`
	UploadFieldKey string        `yaml:"upload_field_key"`
}

// RetryConfig describes retry settings for upstream calls.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
	IdempotentOnly bool          `yaml:"idempotent_only"`
}

// MetadataConfig describes schema resolution settings.
type MetadataConfig struct {
	Cache CacheConfig `yaml:"cache"`
}

// ListingConfig describes list engine settings.
type ListingConfig struct {
	DefaultPageSize int           `yaml:"default_page_size"`
	MaxPageSize     int           `yaml:"max_page_size"`
	ExportPageSize  int           `yaml:"export_page_size"`
	SearchDebounce  time.Duration `yaml:"search_debounce"`
}

// CacheConfig describes cache settings.
type CacheConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// LookupCacheConfig describes foreign-key label cache settings.
type LookupCacheConfig struct {
	Driver  string      `yaml:"driver"`
	AddrEnv string      `yaml:"addr_env"`
	DB      int         `yaml:"db"`
	Cache   CacheConfig `yaml:"cache"`
}

// WizardConfig describes setup wizard settings.
type WizardConfig struct {
	Enabled  bool              `yaml:"enabled"`
	DraftTTL time.Duration     `yaml:"draft_ttl"`
	Store    WizardStoreConfig `yaml:"store"`
}

// WizardStoreConfig describes wizard draft persistence settings.
type WizardStoreConfig struct {
	Driver          string        `yaml:"driver"`
	DSNEnv          string        `yaml:"dsn_env"`
	MaxConns        int           `yaml:"max_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxUploadBytes:  32 << 20,
			CORS: CORSConfig{
				AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Correlation-Id"},
				MaxAge:         86400,
			},
		},
		Identity: IdentityConfig{
			KeyEnv:     "CURATOR_JWT_KEY",
			Algorithms: []string{"HS256"},
			ClaimPaths: map[string]string{
				"subject_id": "sub",
				"name":       "name",
				"email":      "email",
				"role":       "access",
			},
		},
		Definitions: DefinitionsConfig{
			Directories:     []string{"/definitions"},
			StrictChecksums: true,
		},
		Upstream: UpstreamConfig{
			Timeout:     15 * time.Second,
			ForwardAuth: true,
			Retry: RetryConfig{
				MaxAttempts:    3,
				BackoffInitial: 100 * time.Millisecond,
				BackoffMax:     2 * time.Second,
				IdempotentOnly: true,
			},
			MaxIdleConns:   32,
			UploadFieldKey: "file",
		},
		Metadata: MetadataConfig{
			Cache: CacheConfig{
				TTL:        5 * time.Minute,
				MaxEntries: 500,
			},
		},
		Listing: ListingConfig{
			DefaultPageSize: 20,
			MaxPageSize:     200,
			ExportPageSize:  100,
			SearchDebounce:  300 * time.Millisecond,
		},
		Lookup: LookupCacheConfig{
			Driver:  "memory",
			AddrEnv: "CURATOR_REDIS_ADDR",
			Cache: CacheConfig{
				TTL:        5 * time.Minute,
				MaxEntries: 1000,
			},
		},
		Wizard: WizardConfig{
			Enabled:  true,
			DraftTTL: 24 * time.Hour,
			Store: WizardStoreConfig{
				Driver:          "memory",
				DSNEnv:          "CURATOR_WIZARD_DSN",
				MaxConns:        10,
				ConnMaxLifetime: 5 * time.Minute,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, "upstream.base_url is required")
	}
	if c.Identity.SigningKey == "" && c.Identity.KeyEnv == "" {
		errs = append(errs, "identity.signing_key or identity.key_env is required")
	}
	if c.Listing.DefaultPageSize < 1 {
		errs = append(errs, "listing.default_page_size must be positive")
	}
	if c.Listing.MaxPageSize < c.Listing.DefaultPageSize {
		errs = append(errs, "listing.max_page_size must be at least listing.default_page_size")
	}
	switch c.Lookup.Driver {
	case "memory", "redis":
	default:
		errs = append(errs, "lookup.driver must be memory or redis")
	}
	switch c.Wizard.Store.Driver {
	case "memory", "postgres":
	default:
		errs = append(errs, "wizard.store.driver must be memory or postgres")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// SigningSecret resolves the JWT signing secret, preferring the inline value
// over the environment variable.
func (c *Config) SigningSecret() []byte {
	if c.Identity.SigningKey != "" {
		return []byte(c.Identity.SigningKey)
	}
	if c.Identity.KeyEnv != "" {
		return []byte(os.Getenv(c.Identity.KeyEnv))
	}
	return nil
}

// applyEnvOverrides reads CURATOR_* environment variables and overrides config
// values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CURATOR_SERVER_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("CURATOR_UPSTREAM_BASE_URL"); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := os.Getenv("CURATOR_UPSTREAM_FILE_BASE_URL"); v != "" {
		cfg.Upstream.FileBaseURL = v
	}
	if v := os.Getenv("CURATOR_IDENTITY_ISSUER"); v != "" {
		cfg.Identity.Issuer = v
	}
	if v := os.Getenv("CURATOR_OBSERVABILITY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
	if v := os.Getenv("CURATOR_LOOKUP_DRIVER"); v != "" {
		cfg.Lookup.Driver = v
	}
	if v := os.Getenv("CURATOR_WIZARD_STORE_DRIVER"); v != "" {
		cfg.Wizard.Store.Driver = v
	}
}
