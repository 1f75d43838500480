// Package config holds the typed application configuration and its viper
// plumbing.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the full application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Poll    PollConfig    `mapstructure:"poll" yaml:"poll"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Capture CaptureConfig `mapstructure:"capture" yaml:"capture"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// PollConfig tunes the readiness polling loop.
type PollConfig struct {
	// Interval is the fixed cadence between probe attempts.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	// Timeout bounds the total wait across all attempts.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// BrowserConfig holds settings for the headless browser used for captures.
type BrowserConfig struct {
	Headless          bool           `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors   bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args              []string       `mapstructure:"args" yaml:"args"`
	Viewport          map[string]int `mapstructure:"viewport" yaml:"viewport"`
	NavigationTimeout time.Duration  `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// CaptureConfig controls where and how screenshot artifacts are written.
type CaptureConfig struct {
	// OutputDir is the parent directory for per-run artifact directories.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
	// Extension is the artifact file extension, including the dot.
	Extension string `mapstructure:"extension" yaml:"extension"`
	// FullPage captures the whole document instead of the viewport.
	FullPage bool `mapstructure:"full_page" yaml:"full_page"`
	// Quality is the compression quality for lossy formats (0-100).
	Quality int `mapstructure:"quality" yaml:"quality"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "probeshot")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Poll --
	v.SetDefault("poll.interval", "200ms")
	v.SetDefault("poll.timeout", "30s")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "90s")

	// -- Capture --
	v.SetDefault("capture.output_dir", "probeshot-artifacts")
	v.SetDefault("capture.extension", ".png")
	v.SetDefault("capture.full_page", false)
	v.SetDefault("capture.quality", 90)
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults only.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for sane values.
func (c *Config) Validate() error {
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be a positive duration")
	}
	if c.Poll.Timeout <= 0 {
		return fmt.Errorf("poll.timeout must be a positive duration")
	}
	if c.Poll.Timeout < c.Poll.Interval {
		return fmt.Errorf("poll.timeout (%s) must not be shorter than poll.interval (%s)", c.Poll.Timeout, c.Poll.Interval)
	}
	if c.Capture.OutputDir == "" {
		return fmt.Errorf("capture.output_dir must not be empty")
	}
	if c.Capture.Quality < 0 || c.Capture.Quality > 100 {
		return fmt.Errorf("capture.quality must be between 0 and 100")
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be a positive duration")
	}
	return nil
}
