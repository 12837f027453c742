package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type CaptureConfig struct {
	Name        string          `toml:"name"`
	Addr        string          `toml:"addr"`
	CorsOrigins []string        `toml:"cors_origins"`
	MaxBody     int64           `toml:"max_body_bytes"`
	MaxStored   int             `toml:"max_stored_requests"`
	Limits      LimitsConfig    `toml:"limits"`
	Projects    []ProjectConfig `toml:"projects"`
}

// LimitsConfig bounds decoding of captured bodies.
type LimitsConfig struct {
	MaxHeaderBytes   int   `toml:"max_header_bytes"`
	MaxItemBytes     int   `toml:"max_item_bytes"`
	MaxInflatedBytes int64 `toml:"max_inflated_bytes"`
}

// ProjectConfig allows one ingest project. A non-empty Key must match the
// sentry_key sent by the client.
type ProjectConfig struct {
	ID  string `toml:"id"`
	Key string `toml:"key"`
}

const (
	defaultName      = "envelopectl"
	defaultAddr      = "127.0.0.1:8765"
	defaultMaxBody   = 64 << 20
	defaultMaxStored = 1024
)

func DefaultCaptureConfig() CaptureConfig {
	cfg := CaptureConfig{}
	applyCaptureDefaults(&cfg)
	return cfg
}

func LoadCaptureConfig(path string) (CaptureConfig, error) {
	var cfg CaptureConfig
	if err := loadToml(path, &cfg); err != nil {
		return CaptureConfig{}, err
	}
	applyCaptureDefaults(&cfg)
	if err := ValidateCaptureConfig(cfg); err != nil {
		return CaptureConfig{}, err
	}
	return cfg, nil
}

func applyCaptureDefaults(cfg *CaptureConfig) {
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.MaxBody == 0 {
		cfg.MaxBody = defaultMaxBody
	}
	if cfg.MaxStored == 0 {
		cfg.MaxStored = defaultMaxStored
	}
	if cfg.Limits.MaxHeaderBytes == 0 {
		cfg.Limits.MaxHeaderBytes = 64 << 10
	}
	if cfg.Limits.MaxItemBytes == 0 {
		cfg.Limits.MaxItemBytes = 64 << 20
	}
	if cfg.Limits.MaxInflatedBytes == 0 {
		cfg.Limits.MaxInflatedBytes = 256 << 20
	}
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateCaptureConfig(cfg CaptureConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("capture config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("capture config missing addr")
	}
	if cfg.MaxBody < 0 {
		return fmt.Errorf("max_body_bytes must not be negative")
	}
	if cfg.MaxStored < 0 {
		return fmt.Errorf("max_stored_requests must not be negative")
	}
	if err := ValidateLimits(cfg.Limits); err != nil {
		return fmt.Errorf("limits invalid: %w", err)
	}
	seen := make(map[string]bool, len(cfg.Projects))
	for i, p := range cfg.Projects {
		if err := ValidateProjectEntry(p); err != nil {
			return fmt.Errorf("projects[%d] invalid: %w", i, err)
		}
		if seen[p.ID] {
			return fmt.Errorf("projects[%d] invalid: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

func ValidateLimits(l LimitsConfig) error {
	if l.MaxHeaderBytes < 0 || l.MaxItemBytes < 0 || l.MaxInflatedBytes < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	return nil
}

func ValidateProjectEntry(p ProjectConfig) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if strings.ContainsAny(p.ID, "/ ") {
		return fmt.Errorf("id %q must be a single path segment", p.ID)
	}
	return nil
}
