package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the configuration.
const (
	DefaultStorageKey = "taskvault"
	DefaultCacheTTL   = 5 * time.Minute
	DefaultHTTPPort   = 8080
)

// Config is the full parsed configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
}

// StorageConfig controls the medium and the entity store.
type StorageConfig struct {
	// Key is the namespace root; every persisted key starts with "<key>_".
	Key string `yaml:"key"`

	// CacheTTL is how long a loaded collection serves reads from memory
	// before the store falls back to the medium. Default: 5m.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// Path is the medium's backing file. Empty means in-memory only —
	// useful for tests and demos, nothing survives a restart.
	Path string `yaml:"path"`

	// QuotaBytes caps the medium's total key+value bytes. 0 = unlimited.
	// This is the only field a config reload applies live.
	QuotaBytes int `yaml:"quota_bytes"`

	// Watch flushes the entity cache when another process writes the
	// backing file. Best-effort only; cross-process consistency is not
	// guaranteed either way.
	Watch bool `yaml:"watch"`
}

// HTTPConfig holds the REST API settings.
type HTTPConfig struct {
	// Port is the port the REST API listens on (default 8080).
	Port int `yaml:"port"`
}

// Load reads and parses the config file at path. Missing fields are
// filled with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Storage: StorageConfig{
			Key:      DefaultStorageKey,
			CacheTTL: DefaultCacheTTL,
		},
		HTTP: HTTPConfig{
			Port: DefaultHTTPPort,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Storage.Key == "" {
		return fmt.Errorf("storage.key must not be empty")
	}
	if strings.ContainsAny(cfg.Storage.Key, " \t\n") {
		return fmt.Errorf("storage.key %q must not contain whitespace", cfg.Storage.Key)
	}
	if cfg.Storage.CacheTTL < 0 {
		return fmt.Errorf("storage.cache_ttl must not be negative")
	}
	if cfg.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes must not be negative")
	}
	if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d is out of range [1, 65535]", cfg.HTTP.Port)
	}
	return nil
}
