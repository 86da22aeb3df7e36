package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration
type Config struct {
	Version         string                   `yaml:"version"`
	Provider        string                   `yaml:"provider"`
	Region          string                   `yaml:"region,omitempty"`
	CredentialsFile string                   `yaml:"credentials_file,omitempty"`
	AccessRole      string                   `yaml:"access_role,omitempty"`
	RootScope       string                   `yaml:"root_scope"`
	Services        map[string]ServiceConfig `yaml:"services"`
	Workers         int                      `yaml:"workers,omitempty"`
	GracePeriod     time.Duration            `yaml:"grace_period,omitempty"`
	Retry           RetryConfig              `yaml:"retry,omitempty"`
	Throttle        ThrottleConfig           `yaml:"throttle,omitempty"`
	Output          OutputConfig             `yaml:"output"`
	Checkpoint      CheckpointConfig         `yaml:"checkpoint,omitempty"`
	Journal         JournalConfig            `yaml:"journal,omitempty"`
	Filters         FilterConfig             `yaml:"filters,omitempty"`
	Telemetry       TelemetryConfig          `yaml:"telemetry,omitempty"`
}

// ServiceConfig tunes one service's admission rate
type ServiceConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second,omitempty"`
	Burst         int     `yaml:"burst,omitempty"`
}

// RetryConfig tunes the retry policy for remote calls
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts,omitempty"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`
	MaxDelay     time.Duration `yaml:"max_delay,omitempty"`
	Multiplier   float64       `yaml:"multiplier,omitempty"`
	Jitter       float64       `yaml:"jitter,omitempty"`
}

// ThrottleConfig tunes token buckets and backoff coupling
type ThrottleConfig struct {
	DefaultRatePerSecond float64       `yaml:"default_rate_per_second,omitempty"`
	DefaultBurst         int           `yaml:"default_burst,omitempty"`
	MinRatePerSecond     float64       `yaml:"min_rate_per_second,omitempty"`
	DecreaseStep         float64       `yaml:"decrease_step,omitempty"`
	RecoveryStep         float64       `yaml:"recovery_step,omitempty"`
	CoolDown             time.Duration `yaml:"cool_down,omitempty"`
}

// OutputConfig controls the on-disk resource tree
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format,omitempty"`
}

// CheckpointConfig locates the durable checkpoint store. Resume makes
// runs continue from it by default; the --resume flag does the same for
// a single run.
type CheckpointConfig struct {
	Path   string `yaml:"path,omitempty"`
	Resume bool   `yaml:"resume,omitempty"`
}

// JournalConfig locates the run journal
type JournalConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// FilterConfig narrows which projects get extracted
type FilterConfig struct {
	IncludeProjects []string          `yaml:"include_projects,omitempty"`
	ExcludeProjects []string          `yaml:"exclude_projects,omitempty"`
	IncludeLabels   map[string]string `yaml:"include_labels,omitempty"`
	ExcludeLabels   map[string]string `yaml:"exclude_labels,omitempty"`
}

// TelemetryConfig controls OTEL export and the optional metrics listener
type TelemetryConfig struct {
	OTELEndpoint string `yaml:"otel_endpoint,omitempty"`
	Insecure     bool   `yaml:"insecure,omitempty"`
	MetricsAddr  string `yaml:"metrics_addr,omitempty"`
}

// LoadFile reads and parses a config file without defaulting or
// validating it. Callers that override fields run ApplyDefaults and
// Validate themselves.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// LoadConfig loads configuration from file
func LoadConfig(path string) (*Config, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills unset tuning knobs with working values
func (c *Config) ApplyDefaults() {
	if c.Output.Format == "" {
		c.Output.Format = "yaml"
	}
	if c.GracePeriod == 0 {
		c.GracePeriod = 10 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 5
	}
	if c.Retry.InitialDelay == 0 {
		c.Retry.InitialDelay = 200 * time.Millisecond
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 30 * time.Second
	}
	if c.Retry.Multiplier == 0 {
		c.Retry.Multiplier = 2.0
	}
	if c.Retry.Jitter == 0 {
		c.Retry.Jitter = 0.2
	}
	if c.Throttle.DefaultRatePerSecond == 0 {
		c.Throttle.DefaultRatePerSecond = 10
	}
	if c.Throttle.DefaultBurst == 0 {
		c.Throttle.DefaultBurst = 5
	}
	if c.Throttle.MinRatePerSecond == 0 {
		c.Throttle.MinRatePerSecond = 1
	}
	if c.Throttle.DecreaseStep == 0 {
		c.Throttle.DecreaseStep = 2
	}
	if c.Throttle.RecoveryStep == 0 {
		c.Throttle.RecoveryStep = 0.5
	}
	if c.Throttle.CoolDown == 0 {
		c.Throttle.CoolDown = 5 * time.Second
	}
	if c.Checkpoint.Path == "" && c.Output.Dir != "" {
		c.Checkpoint.Path = c.Output.Dir + "/.kartta/checkpoint.db"
	}
	if c.Journal.Dir == "" && c.Output.Dir != "" {
		c.Journal.Dir = c.Output.Dir + "/.kartta/journal"
	}
}

// Validate ensures config has required fields
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("version is required")
	}
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.RootScope == "" {
		return fmt.Errorf("root_scope is required")
	}
	if len(c.Services) == 0 {
		return fmt.Errorf("at least one service is required")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if c.Output.Format != "yaml" && c.Output.Format != "json" {
		return fmt.Errorf("output.format must be yaml or json, got %q", c.Output.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	for tag, svc := range c.Services {
		if svc.RatePerSecond < 0 {
			return fmt.Errorf("service %s: rate_per_second must not be negative", tag)
		}
		if svc.Burst < 0 {
			return fmt.Errorf("service %s: burst must not be negative", tag)
		}
	}
	return nil
}

// ServiceTags returns the configured service tags in stable order
func (c *Config) ServiceTags() []string {
	tags := make([]string, 0, len(c.Services))
	for tag := range c.Services {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
