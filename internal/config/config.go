package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Default values applied by the Get* accessors when a field is unset.
const (
	DefaultCacheCapacity    = 100
	DefaultWaitPollInterval = 10 * time.Millisecond
	DefaultWaitTimeout      = time.Second
	DefaultDBPath           = "tf_recordings.db"
	DefaultPlotStep         = 50 * time.Millisecond
)

// maxFileSize bounds how much of a config file is read.
const maxFileSize = 1 * 1024 * 1024

// Config holds the runtime settings for the transform buffer and its tools.
// Every field is optional; omitted fields fall back to the defaults above.
type Config struct {
	// Buffer params
	CacheCapacity *int `json:"cache_capacity,omitempty"`

	// Waiting lookups
	WaitPollInterval *string `json:"wait_poll_interval,omitempty"` // duration string like "10ms"
	WaitTimeout      *string `json:"wait_timeout,omitempty"`       // duration string like "1s"

	// Recorder
	DBPath *string `json:"db_path,omitempty"`

	// Plotting
	PlotStep *string `json:"plot_step,omitempty"` // duration string like "50ms"
}

// Helper functions to create pointers
func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }

// Empty returns a Config with all fields set to nil.
func Empty() *Config {
	return &Config{}
}

// Defaults returns a Config with every field set to its default value.
func Defaults() *Config {
	return &Config{
		CacheCapacity:    ptrInt(DefaultCacheCapacity),
		WaitPollInterval: ptrString(DefaultWaitPollInterval.String()),
		WaitTimeout:      ptrString(DefaultWaitTimeout.String()),
		DBPath:           ptrString(DefaultDBPath),
		PlotStep:         ptrString(DefaultPlotStep.String()),
	}
}

// Load reads a Config from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.CacheCapacity != nil && *c.CacheCapacity < 1 {
		return fmt.Errorf("cache_capacity must be at least 1, got %d", *c.CacheCapacity)
	}

	for name, v := range map[string]*string{
		"wait_poll_interval": c.WaitPollInterval,
		"wait_timeout":       c.WaitTimeout,
		"plot_step":          c.PlotStep,
	} {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, *v)
		}
	}

	if c.DBPath != nil && *c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty when set")
	}

	return nil
}

// GetCacheCapacity returns the cache_capacity value or the default.
func (c *Config) GetCacheCapacity() int {
	if c.CacheCapacity == nil {
		return DefaultCacheCapacity
	}
	return *c.CacheCapacity
}

// GetWaitPollInterval parses and returns wait_poll_interval.
func (c *Config) GetWaitPollInterval() time.Duration {
	return parseDurationOr(c.WaitPollInterval, DefaultWaitPollInterval)
}

// GetWaitTimeout parses and returns wait_timeout.
func (c *Config) GetWaitTimeout() time.Duration {
	return parseDurationOr(c.WaitTimeout, DefaultWaitTimeout)
}

// GetDBPath returns the db_path value or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return DefaultDBPath
	}
	return *c.DBPath
}

// GetPlotStep parses and returns plot_step.
func (c *Config) GetPlotStep() time.Duration {
	return parseDurationOr(c.PlotStep, DefaultPlotStep)
}

func parseDurationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil || d <= 0 {
		return def // default on parse error
	}
	return d
}
