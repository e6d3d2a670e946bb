// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// Commands depend on it rather than on *Config.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Engine() EngineConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg BrowserConfig `mapstructure:"browser" yaml:"browser"`
	EngineCfg  EngineConfig  `mapstructure:"engine" yaml:"engine"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations ---

func (c *Config) Logger() LoggerConfig   { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig { return c.BrowserCfg }
func (c *Config) Engine() EngineConfig   { return c.EngineCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds the settings used to bootstrap the Chrome session the
// engine drives. None of it is read by the engine itself.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	ChromePath      string         `mapstructure:"chrome_path" yaml:"chrome_path"`
	UserDataDir     string         `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	WindowWidth     int            `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int            `mapstructure:"window_height" yaml:"window_height"`
	Viewport        ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	// NavigationTimeout bounds the initial page load performed by the CLI.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// ViewportConfig is the emulated page viewport, distinct from the window size.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// EngineConfig tunes the element resolution and click engine.
type EngineConfig struct {
	// DefaultTimeout is how long a strategy polls before giving up.
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	// PollInterval is the pause between two predicate evaluations. An interval
	// longer than the timeout is capped at the timeout by the poller.
	PollInterval time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	// SettleDelay is the pause between scrolling a target into view and clicking it.
	SettleDelay        time.Duration `mapstructure:"settle_delay" yaml:"settle_delay"`
	NativeClickTimeout time.Duration `mapstructure:"native_click_timeout" yaml:"native_click_timeout"`
	Debug              bool          `mapstructure:"debug" yaml:"debug"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "puppetcore")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.chrome_path", "")
	v.SetDefault("browser.user_data_dir", "chrome-profile")
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 700)
	v.SetDefault("browser.viewport.width", 1920)
	v.SetDefault("browser.viewport.height", 780)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.navigation_timeout", "60s")

	// -- Engine --
	v.SetDefault("engine.default_timeout", "10s")
	v.SetDefault("engine.poll_interval", "100ms")
	v.SetDefault("engine.settle_delay", "1s")
	v.SetDefault("engine.native_click_timeout", "5s")
	v.SetDefault("engine.debug", true)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// The Chrome binary is commonly provided through the environment.
	if err := v.BindEnv("browser.chrome_path", "PUPPET_CHROME_PATH", "CHROME_PATH"); err != nil {
		return nil, fmt.Errorf("error binding chrome path environment: %w", err)
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading "~" in every user supplied path.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.BrowserCfg.UserDataDir, &c.BrowserCfg.ChromePath, &c.LoggerCfg.LogFile} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.EngineCfg.Validate(); err != nil {
		return fmt.Errorf("engine configuration invalid: %w", err)
	}
	if err := c.BrowserCfg.Validate(); err != nil {
		return fmt.Errorf("browser configuration invalid: %w", err)
	}
	return nil
}

// Validate checks the engine timing settings.
func (e *EngineConfig) Validate() error {
	if e.DefaultTimeout <= 0 {
		return fmt.Errorf("default_timeout must be a positive duration")
	}
	if e.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be a positive duration")
	}
	if e.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative")
	}
	if e.NativeClickTimeout <= 0 {
		return fmt.Errorf("native_click_timeout must be a positive duration")
	}
	return nil
}

// Validate checks the browser bootstrap settings.
func (b *BrowserConfig) Validate() error {
	if b.WindowWidth < 0 || b.WindowHeight < 0 {
		return fmt.Errorf("window size must not be negative")
	}
	if b.Viewport.Width < 0 || b.Viewport.Height < 0 {
		return fmt.Errorf("viewport size must not be negative")
	}
	if b.ChromePath != "" {
		if _, err := os.Stat(b.ChromePath); err != nil {
			return fmt.Errorf("chrome_path %q is not usable: %w", b.ChromePath, err)
		}
	}
	return nil
}
