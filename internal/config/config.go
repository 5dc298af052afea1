package config

// Package config handles configuration loading for reporate.
// It supports YAML config files with environment variable overrides.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// SnapshotConfig says where snapshots live and how strictly to load them.
type SnapshotConfig struct {
	Path           string `mapstructure:"path"            yaml:"path"` // one snapshot file; empty means latest in Dir
	Dir            string `mapstructure:"dir"             yaml:"dir"`  // holds manifest.json and snapshots/
	VerifyChecksum bool   `mapstructure:"verify_checksum" yaml:"verify_checksum"`
	StrictRegimes  bool   `mapstructure:"strict_regimes"  yaml:"strict_regimes"`
}

// AnalysisConfig holds derivation settings.
type AnalysisConfig struct {
	ExtremeThresholdBps int `mapstructure:"extreme_threshold_bps" yaml:"extreme_threshold_bps"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host           string   `mapstructure:"host"            yaml:"host"`
	Port           int      `mapstructure:"port"            yaml:"port"`
	CORSOrigins    []string `mapstructure:"cors_origins"    yaml:"cors_origins"`
	CacheTTL       int      `mapstructure:"cache_ttl"       yaml:"cache_ttl"`       // seconds
	RequestTimeout int      `mapstructure:"request_timeout" yaml:"request_timeout"` // seconds
	RateLimit      int      `mapstructure:"rate_limit"      yaml:"rate_limit"`      // requests per second, 0 disables
	StaticDir      string   `mapstructure:"static_dir"      yaml:"static_dir"`      // built front end to serve at /, optional
}

// Addr is host:port for the listener.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheDuration is CacheTTL as a duration.
func (c APIConfig) CacheDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// TimeoutDuration is RequestTimeout as a duration.
func (c APIConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.reporate/config.yaml (home directory)
//  3. /etc/reporate/config.yaml (system)
//
// Environment variables override config file values.
// Format: REPORATE_<SECTION>_<KEY>, e.g., REPORATE_SNAPSHOT_DIR
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Config file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".reporate"))
	v.AddConfigPath("/etc/reporate")

	bindEnv(v)

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("REPORATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Snapshot.Dir = expandHome(cfg.Snapshot.Dir)
	cfg.Snapshot.Path = expandHome(cfg.Snapshot.Path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Snapshot defaults
	v.SetDefault("snapshot.path", "")
	v.SetDefault("snapshot.dir", "./data")
	v.SetDefault("snapshot.verify_checksum", true)
	v.SetDefault("snapshot.strict_regimes", false)

	// Analysis defaults
	v.SetDefault("analysis.extreme_threshold_bps", 50)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("api.cache_ttl", 300) // 5 minutes
	v.SetDefault("api.request_timeout", 30)
	v.SetDefault("api.rate_limit", 50)
	v.SetDefault("api.static_dir", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// MaxRateLimit caps api.rate_limit so the per-token refill period stays
// at one millisecond or longer.
const MaxRateLimit = 1000

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port %d out of range", c.API.Port))
	}
	if c.API.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("api.cache_ttl must not be negative"))
	}
	if c.API.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("api.request_timeout must be positive"))
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("api.rate_limit must not be negative"))
	}
	if c.API.RateLimit > MaxRateLimit {
		errs = append(errs, fmt.Errorf("api.rate_limit %d exceeds %d requests per second", c.API.RateLimit, MaxRateLimit))
	}
	if c.Analysis.ExtremeThresholdBps < 0 {
		errs = append(errs, fmt.Errorf("analysis.extreme_threshold_bps must not be negative"))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be text or json", c.Logging.Format))
	}
	if c.Snapshot.Path == "" && c.Snapshot.Dir == "" {
		errs = append(errs, fmt.Errorf("one of snapshot.path or snapshot.dir is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func expandHome(p string) string {
	if p == "~" {
		return homeDir()
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(homeDir(), p[2:])
	}
	return p
}
