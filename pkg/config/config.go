// Package config loads hostbroker's configuration from a YAML file plus
// environment-variable overrides into an explicit Config struct that is
// threaded through constructors at startup — never read from a
// package-level singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig configures the AWS client shared by every provider
// handler variant.
type ProviderConfig struct {
	Region         string        `yaml:"region"`
	Profile        string        `yaml:"profile,omitempty"`
	RoleARN        string        `yaml:"role_arn,omitempty"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`

	// MaxConcurrentInstances caps the account's running-instance count
	// accepted by the quota pre-check (spec.md §4.3 step 2). Zero disables
	// the pre-check entirely and falls back to the provider's own
	// acquire-time rejection.
	MaxConcurrentInstances int           `yaml:"max_concurrent_instances"`
	QuotaCacheTTL          time.Duration `yaml:"quota_cache_ttl"`
}

// StorageConfig selects and configures one storage strategy by name; Kind
// is looked up in the storage registry (spec.md §4.1).
type StorageConfig struct {
	Kind         string `yaml:"kind"` // "file", "sql", or "kv"
	FileBasePath string `yaml:"file_base_path,omitempty"`
	SQLDriver    string `yaml:"sql_driver,omitempty"`
	SQLDSN       string `yaml:"sql_dsn,omitempty"`
	KVPath       string `yaml:"kv_path,omitempty"`
}

// TemplateConfig points at the template store and configures optional
// AMI-alias resolution.
type TemplateConfig struct {
	Path                   string `yaml:"path"`
	AMIResolutionEnabled   bool   `yaml:"ami_resolution_enabled"`
	AMIAliasFile           string `yaml:"ami_alias_file,omitempty"`
	FallbackOnAliasFailure bool   `yaml:"fallback_on_alias_failure"`
}

// EventsConfig selects the event publisher mode.
type EventsConfig struct {
	PublisherMode string `yaml:"publisher_mode"` // "logging", "sync", or "async"
	BufferSize    int    `yaml:"buffer_size"`
}

// RequestConfig holds lifecycle-engine defaults.
type RequestConfig struct {
	DefaultTimeoutSeconds int `yaml:"default_timeout_seconds"`
	MaxMachinesPerRequest int `yaml:"max_machines_per_request"`
	CleanupAgeSeconds     int `yaml:"cleanup_age_seconds"`
}

// NamingConfig holds the id prefixes used by the naming scheme
// (spec.md §3, §8 regex invariants).
type NamingConfig struct {
	AcquirePrefix string `yaml:"acquire_prefix"`
	ReturnPrefix  string `yaml:"return_prefix"`
}

// RateLimitConfig configures the per-operation boundary rate limiter
// (spec.md §5, §7 RateLimitExceeded). Disabled by default: Enabled must be
// set explicitly, matching cuemby/warren's opt-in ingress rate-limit config.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// Config is the fully resolved, explicit configuration tree. It is built
// once at startup by Load and passed by value or pointer into every
// constructor that needs it.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Storage   StorageConfig   `yaml:"storage"`
	Template  TemplateConfig  `yaml:"template"`
	Events    EventsConfig    `yaml:"events"`
	Request   RequestConfig   `yaml:"request"`
	Naming    NamingConfig    `yaml:"naming"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the lowest-precedence configuration: a file-backed
// storage strategy rooted at ./data, a synchronous logging event
// publisher, and a 3600s request timeout.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Region:                 "us-east-1",
			MaxRetries:             3,
			RetryBaseDelay:         time.Second,
			MaxConcurrentInstances: 0,
			QuotaCacheTTL:          5 * time.Minute,
		},
		Storage: StorageConfig{
			Kind:         "file",
			FileBasePath: "./data",
		},
		Template: TemplateConfig{
			Path: "./config/templates.yaml",
		},
		Events: EventsConfig{
			PublisherMode: "logging",
			BufferSize:    256,
		},
		Request: RequestConfig{
			DefaultTimeoutSeconds: 3600,
			MaxMachinesPerRequest: 100,
			CleanupAgeSeconds:     86400,
		},
		Naming: NamingConfig{
			AcquirePrefix: "req-",
			ReturnPrefix:  "ret-",
		},
		RateLimit: RateLimitConfig{
			Enabled:           false,
			RequestsPerSecond: 10,
			Burst:             20,
		},
	}
}

// Load resolves configuration with the following precedence, lowest to
// highest:
//
//  1. Default()
//  2. $HOSTBROKER_CONFDIR/config.yaml, or ./config/config.yaml if the
//     env var is unset
//  3. explicitPath, if non-empty (an operator-supplied --config file)
//  4. environment-variable overrides (HOSTBROKER_* — always win)
//
// A missing file at any tier is not an error; an unreadable or malformed
// file that does exist is.
func Load(explicitPath string) (*Config, error) {
	cfg := Default()

	if path := directoryConfigPath(); path != "" {
		if err := mergeFile(cfg, path); err != nil {
			return nil, fmt.Errorf("load directory config %s: %w", path, err)
		}
	}

	if explicitPath != "" {
		if err := mergeFile(cfg, explicitPath); err != nil {
			return nil, fmt.Errorf("load config %s: %w", explicitPath, err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func directoryConfigPath() string {
	if dir := os.Getenv("HOSTBROKER_CONFDIR"); dir != "" {
		return filepath.Join(dir, "config.yaml")
	}
	path := filepath.Join("config", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides applies the small, explicit set of environment
// variables hostbroker recognizes. Unlike the reflective HF_* sweep this
// is grounded on, each override here names a specific Config field —
// there is no generic "any env var becomes a config key" fallback.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOSTBROKER_AWS_REGION"); v != "" {
		cfg.Provider.Region = v
	}
	if v := os.Getenv("HOSTBROKER_AWS_PROFILE"); v != "" {
		cfg.Provider.Profile = v
	}
	if v := os.Getenv("HOSTBROKER_AWS_ROLE_ARN"); v != "" {
		cfg.Provider.RoleARN = v
	}
	if v := os.Getenv("HOSTBROKER_STORAGE_KIND"); v != "" {
		cfg.Storage.Kind = v
	}
	if v := os.Getenv("HOSTBROKER_STORAGE_FILE_BASE_PATH"); v != "" {
		cfg.Storage.FileBasePath = v
	}
	if v := os.Getenv("HOSTBROKER_STORAGE_SQL_DSN"); v != "" {
		cfg.Storage.SQLDSN = v
	}
	if v := os.Getenv("HOSTBROKER_TEMPLATE_PATH"); v != "" {
		cfg.Template.Path = v
	}
	if v := os.Getenv("HOSTBROKER_EVENTS_PUBLISHER_MODE"); v != "" {
		cfg.Events.PublisherMode = v
	}
	if v := os.Getenv("HOSTBROKER_REQUEST_DEFAULT_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Request.DefaultTimeoutSeconds = n
		}
	}
	if v := os.Getenv("HOSTBROKER_REQUEST_MAX_MACHINES_PER_REQUEST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Request.MaxMachinesPerRequest = n
		}
	}
	if v := os.Getenv("HOSTBROKER_PROVIDER_MAX_CONCURRENT_INSTANCES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Provider.MaxConcurrentInstances = n
		}
	}
}
