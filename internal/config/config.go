package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Sweep modes recognized in target rules.
const (
	ModePruneEmpty    = "prune-empty"
	ModePurgeContents = "purge-contents"
)

// Target describes one directory to sweep and how to sweep it.
type Target struct {
	Path string `yaml:"path" json:"path"`
	Mode string `yaml:"mode" json:"mode"` // prune-empty | purge-contents
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type LoggingCfg struct {
	MaxSizeMB  int `yaml:"max_size_mb" json:"max_size_mb"`   // Rotate log file after this many megabytes
	MaxAgeDays int `yaml:"max_age_days" json:"max_age_days"` // Days to keep rotated logs
}

type ResourceLimits struct {
	MaxCPUPercent float64 `yaml:"max_cpu_percent" json:"max_cpu_percent"` // Maximum CPU usage (e.g., 10.0)
}

type Config struct {
	Targets           []Target       `yaml:"targets" json:"targets"`
	DenyList          []string       `yaml:"deny_list" json:"deny_list"` // Extra protected paths; wildcard patterns allowed
	IntervalMinutes   int            `yaml:"interval_minutes" json:"interval_minutes"`
	SweepLogPath      string         `yaml:"sweep_log_path" json:"sweep_log_path"`           // Append-only sweep audit log
	DatabasePath      string         `yaml:"database_path" json:"database_path"`             // SQLite database for sweep history
	LockPath          string         `yaml:"lock_path" json:"lock_path"`                     // Pidfile guarding against overlapping runs
	Prometheus        PrometheusCfg  `yaml:"prometheus" json:"prometheus"`
	Logging           LoggingCfg     `yaml:"logging" json:"logging"`
	ResourceLimits    ResourceLimits `yaml:"resource_limits" json:"resource_limits"`
	StaleMountTimeout int            `yaml:"stale_mount_timeout_seconds" json:"stale_mount_timeout_seconds"`
}

var (
	errNoTargets       = errors.New("configuration must specify at least one target")
	errInvalidPath     = errors.New("path must be absolute")
	errUnknownMode     = errors.New("mode must be prune-empty or purge-contents")
	errInvalidInterval = errors.New("interval_minutes must be positive")
)

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if len(c.Targets) == 0 {
		return errNoTargets
	}

	for i := range c.Targets {
		cp, err := cleanAbsolute(c.Targets[i].Path)
		if err != nil {
			return err
		}
		c.Targets[i].Path = cp

		switch c.Targets[i].Mode {
		case ModePruneEmpty, ModePurgeContents:
		case "":
			c.Targets[i].Mode = ModePruneEmpty
		default:
			return fmt.Errorf("target %s: %w: %q", cp, errUnknownMode, c.Targets[i].Mode)
		}
	}

	if c.IntervalMinutes < 0 {
		return errInvalidInterval
	}
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = 15
	}

	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = 9464
	}

	// Set defaults for log rotation
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 10
	}
	if c.Logging.MaxAgeDays <= 0 {
		c.Logging.MaxAgeDays = 30
	}

	// Set defaults for resource limits
	if c.ResourceLimits.MaxCPUPercent <= 0 {
		c.ResourceLimits.MaxCPUPercent = 10.0
	}

	if c.StaleMountTimeout <= 0 {
		c.StaleMountTimeout = 5
	}

	if c.SweepLogPath == "" {
		c.SweepLogPath = "/var/log/dirsweep/sweep.log"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "/var/lib/dirsweep/history.db"
	}
	if c.LockPath == "" {
		c.LockPath = "/run/dirsweep.lock"
	}

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

// TargetPaths returns the configured target paths in order.
func (c *Config) TargetPaths() []string {
	out := make([]string, 0, len(c.Targets))
	for _, t := range c.Targets {
		out = append(out, t.Path)
	}
	return out
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}
