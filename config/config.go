// Package config provides the configuration surface for supervised
// services. Per-service configuration is a plain record with an enabled
// flag, an optional health-check interval, and an optional retry policy;
// the registry itself takes no configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/usorama/tutorkit/pkg/retry"
)

// Duration wraps time.Duration with YAML support for values like "30s"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// RetryConfig is the YAML shape of a retry policy. Durations use the
// Duration wrapper so values like "200ms" parse.
type RetryConfig struct {
	MaxAttempts  int      `yaml:"max_attempts"`
	InitialDelay Duration `yaml:"initial_delay"`
	MaxDelay     Duration `yaml:"max_delay"`
	Multiplier   float64  `yaml:"multiplier"`
	AddJitter    bool     `yaml:"add_jitter"`
}

// Std converts the YAML shape into the retry package's configuration
func (r *RetryConfig) Std() retry.Config {
	return retry.Config{
		MaxAttempts:  r.MaxAttempts,
		InitialDelay: r.InitialDelay.Std(),
		MaxDelay:     r.MaxDelay.Std(),
		Multiplier:   r.Multiplier,
		AddJitter:    r.AddJitter,
	}
}

// ServiceConfig is the per-service configuration record
type ServiceConfig struct {
	Enabled        bool         `yaml:"enabled"`
	HealthInterval Duration     `yaml:"health_interval"` // 0 = on-demand health only
	Retry          *RetryConfig `yaml:"retry"`           // nil = no retry on initialize/start
}

// DefaultServiceConfig returns the configuration used when a service has
// no explicit entry: enabled, on-demand health, no retry.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{Enabled: true}
}

// Validate ensures the service configuration is usable
func (c ServiceConfig) Validate() error {
	if c.HealthInterval < 0 {
		return fmt.Errorf("health_interval cannot be negative")
	}
	if c.Retry != nil && c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry.max_attempts cannot be negative")
	}
	return nil
}

// File is the on-disk configuration for an embedding application
type File struct {
	HTTPPort        int                      `yaml:"http_port"`
	ShutdownTimeout Duration                 `yaml:"shutdown_timeout"`
	Services        map[string]ServiceConfig `yaml:"services"`
}

// Load reads and parses a YAML configuration file, then applies
// environment overrides.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &File{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is provided
func Default() *File {
	cfg := &File{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

func (f *File) applyDefaults() {
	if f.HTTPPort == 0 {
		f.HTTPPort = 8080
	}
	if f.ShutdownTimeout == 0 {
		f.ShutdownTimeout = Duration(10 * time.Second)
	}
	if f.Services == nil {
		f.Services = make(map[string]ServiceConfig)
	}
}

func (f *File) applyEnv() {
	f.HTTPPort = getIntEnv("TUTORKIT_HTTP_PORT", f.HTTPPort)
}

// Validate ensures the whole configuration file is usable
func (f *File) Validate() error {
	if f.HTTPPort < 0 || f.HTTPPort > 65535 {
		return fmt.Errorf("http_port %d out of range", f.HTTPPort)
	}
	for name, svc := range f.Services {
		if err := svc.Validate(); err != nil {
			return fmt.Errorf("service %s: %w", name, err)
		}
	}
	return nil
}

// Service returns the configuration for a named service, falling back to
// the default record when no entry exists.
func (f *File) Service(name string) ServiceConfig {
	if cfg, ok := f.Services[name]; ok {
		return cfg
	}
	return DefaultServiceConfig()
}

func getIntEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}
