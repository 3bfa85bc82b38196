// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Defaults --

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	cfg, err := Load(v)
	require.NoError(t, err)

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "console", cfg.Logger.Format)
	assert.Equal(t, "som-agent", cfg.Logger.ServiceName)

	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 1280, cfg.Browser.ViewportWidth)
	assert.Equal(t, 800, cfg.Browser.ViewportHeight)
	assert.Equal(t, 80, cfg.Browser.ScreenshotQuality)
	assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout)
	assert.Equal(t, 5*time.Second, cfg.Browser.FallbackTimeout)
	assert.Equal(t, 3*time.Second, cfg.Browser.StabilizeTimeout)

	assert.Equal(t, "gemini", cfg.Vision.Provider)
	assert.Equal(t, 90*time.Second, cfg.Vision.APITimeout)

	assert.Equal(t, 50, cfg.Agent.MaxSteps)
	assert.Equal(t, 14.0, cfg.Marker.FontSize)
	assert.Equal(t, 2, cfg.Marker.Padding)
}

func TestLoadAPIKeyFromEnv(t *testing.T) {
	t.Run("SOM_VISION_API_KEY wins", func(t *testing.T) {
		t.Setenv("SOM_VISION_API_KEY", "primary-key")
		t.Setenv("GEMINI_API_KEY", "fallback-key")

		cfg, err := Load(viper.New())
		require.NoError(t, err)
		assert.Equal(t, "primary-key", cfg.Vision.APIKey)
	})

	t.Run("GEMINI_API_KEY fallback", func(t *testing.T) {
		t.Setenv("GEMINI_API_KEY", "fallback-key")

		cfg, err := Load(viper.New())
		require.NoError(t, err)
		assert.Equal(t, "fallback-key", cfg.Vision.APIKey)
	})
}

// -- Validation --

func TestConfigValidation(t *testing.T) {
	valid := func(t *testing.T) *Config {
		t.Helper()
		cfg, err := Load(viper.New())
		require.NoError(t, err)
		return cfg
	}

	t.Run("valid defaults pass", func(t *testing.T) {
		assert.NoError(t, valid(t).Validate())
	})

	t.Run("non-positive max steps", func(t *testing.T) {
		cfg := valid(t)
		cfg.Agent.MaxSteps = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "agent.max_steps must be positive")
	})

	t.Run("bad viewport", func(t *testing.T) {
		cfg := valid(t)
		cfg.Browser.ViewportHeight = -1
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "viewport dimensions")
	})

	t.Run("screenshot quality out of range", func(t *testing.T) {
		cfg := valid(t)
		cfg.Browser.ScreenshotQuality = 101
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "screenshot_quality")
	})

	t.Run("non-positive font size", func(t *testing.T) {
		cfg := valid(t)
		cfg.Marker.FontSize = 0
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "font_size")
	})
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	v.Set("agent.max_steps", 12)
	v.Set("browser.headless", true)
	v.Set("vision.model", "gemini-2.5-pro")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Agent.MaxSteps)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "gemini-2.5-pro", cfg.Vision.Model)
}
