// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration. One value is constructed
// at process start and passed into each component constructor; nothing reads
// configuration through package globals.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Vision  VisionConfig  `mapstructure:"vision" yaml:"vision"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Marker  MarkerConfig  `mapstructure:"marker" yaml:"marker"`
}

// LoggerConfig controls the zap logger bootstrap.
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

// ColorConfig defines the console color names for each log level.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig configures the Chrome instance and the page-level timing the
// resolver relies on.
type BrowserConfig struct {
	Headless       bool `mapstructure:"headless" yaml:"headless"`
	ViewportWidth  int  `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight int  `mapstructure:"viewport_height" yaml:"viewport_height"`
	// ScreenshotQuality is the JPEG quality used for captures and for
	// re-encoding marked screenshots (bounds the decision-service payload).
	ScreenshotQuality int `mapstructure:"screenshot_quality" yaml:"screenshot_quality"`
	// NavigationTimeout bounds the wait for the DOM-ready milestone after a
	// goto; hitting it is a soft success.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	// FallbackTimeout bounds selector-based fallback interactions.
	FallbackTimeout time.Duration `mapstructure:"fallback_timeout" yaml:"fallback_timeout"`
	// StabilizeTimeout bounds the between-steps network-idle wait.
	StabilizeTimeout time.Duration `mapstructure:"stabilize_timeout" yaml:"stabilize_timeout"`
}

// VisionConfig configures the decision-service client.
type VisionConfig struct {
	Provider    string        `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// AgentConfig configures the step loop controller.
type AgentConfig struct {
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
}

// MarkerConfig configures the Set-of-Marks label rendering.
type MarkerConfig struct {
	FontSize float64 `mapstructure:"font_size" yaml:"font_size"`
	Padding  int     `mapstructure:"padding" yaml:"padding"`
	// FontPath optionally points at a TTF/OTF file tried before the built-in
	// platform candidates.
	FontPath string `mapstructure:"font_path" yaml:"font_path"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "som-agent")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 800)
	v.SetDefault("browser.screenshot_quality", 80)
	v.SetDefault("browser.navigation_timeout", "30s")
	v.SetDefault("browser.fallback_timeout", "5s")
	v.SetDefault("browser.stabilize_timeout", "3s")

	// -- Vision --
	v.SetDefault("vision.provider", "gemini")
	v.SetDefault("vision.model", "gemini-2.5-flash")
	v.SetDefault("vision.api_timeout", "90s")
	v.SetDefault("vision.temperature", 0.2)
	v.SetDefault("vision.max_tokens", 1024)

	// -- Agent --
	v.SetDefault("agent.max_steps", 50)

	// -- Marker --
	v.SetDefault("marker.font_size", 14.0)
	v.SetDefault("marker.padding", 2)
}

// Load constructs a validated Config from the supplied viper instance. The
// API key may come from the config file, SOM_VISION_API_KEY, or the
// conventional GEMINI_API_KEY.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	// Sensitive values are env-only by convention.
	if err := v.BindEnv("vision.api_key", "SOM_VISION_API_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind API key environment variables: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the components cannot operate with.
func (c *Config) Validate() error {
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be positive, got %d", c.Agent.MaxSteps)
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be positive, got %dx%d",
			c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if q := c.Browser.ScreenshotQuality; q < 1 || q > 100 {
		return fmt.Errorf("browser.screenshot_quality must be in [1,100], got %d", q)
	}
	if c.Marker.FontSize <= 0 {
		return fmt.Errorf("marker.font_size must be positive, got %v", c.Marker.FontSize)
	}
	return nil
}
