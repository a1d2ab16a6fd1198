package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearProviderEnv keeps the developer's shell from leaking into tests.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "GEMINI_API_KEY", "OPENAI_MODEL", "GEMINI_MODEL", "OPENAI_BASE_URL",
		"GPTHOME_OPENAI_API_KEY", "GPTHOME_GEMINI_API_KEY", "GPTHOME_LLM_PROVIDER", "LLM_PROVIDER",
		"GPTHOME_DATA_DIR", "GPTHOME_WAKE_TIMES", "GPTHOME_MAX_TURNS", "GPTHOME_WEATHER_DISABLED",
	} {
		if v, ok := os.LookupEnv(k); ok {
			require.NoError(t, os.Unsetenv(k))
			t.Cleanup(func() { os.Setenv(k, v) })
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "gpthome", cfg.Name)
	assert.Equal(t, []string{"06:00", "12:00", "18:00", "00:00"}, cfg.Wake.Times)
	assert.Equal(t, 15, cfg.Wake.MaxTurns)
	assert.Equal(t, "sqlite", cfg.Data.Driver)
	assert.Equal(t, 30*time.Second, cfg.GetSandboxTimeout())
	assert.Equal(t, time.Hour, cfg.GetWeatherTTL())
	require.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearProviderEnv(t)

	path := filepath.Join(t.TempDir(), "gpthome.yaml")
	cfg := DefaultConfig()
	cfg.LLM.Provider = "gemini"
	cfg.LLM.APIKey = "g-test"
	cfg.Wake.MaxTurns = 7
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", loaded.LLM.Provider)
	assert.Equal(t, "g-test", loaded.LLM.APIKey)
	assert.Equal(t, 7, loaded.Wake.MaxTurns)
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Wake, cfg.Wake)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("wake: [unterminated"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("prefixed values win over bare values", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("OPENAI_API_KEY", "bare")
		t.Setenv("GPTHOME_OPENAI_API_KEY", "prefixed")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, "prefixed", cfg.LLM.APIKey)
		assert.Equal(t, "openai", cfg.LLM.Provider)
	})

	t.Run("gemini key alone selects gemini", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("GEMINI_API_KEY", "g-key")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, "gemini", cfg.LLM.Provider)
		assert.Equal(t, "g-key", cfg.LLM.APIKey)
		assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	})

	t.Run("wake times and turns", func(t *testing.T) {
		clearProviderEnv(t)
		t.Setenv("GPTHOME_WAKE_TIMES", "07:30, 21:00")
		t.Setenv("GPTHOME_MAX_TURNS", "4")
		t.Setenv("GPTHOME_WEATHER_DISABLED", "true")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, []string{"07:30", "21:00"}, cfg.Wake.Times)
		assert.Equal(t, 4, cfg.Wake.MaxTurns)
		assert.False(t, cfg.Weather.Enabled)
	})
}

func TestMockMode(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.MockMode(), "no key means mock")

	cfg.LLM.APIKey = placeholderKey
	assert.True(t, cfg.MockMode())

	cfg.LLM.APIKey = "sk-real"
	assert.False(t, cfg.MockMode())

	cfg.LLM.Provider = "mock"
	assert.True(t, cfg.MockMode())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad provider", func(c *Config) { c.LLM.Provider = "zai" }},
		{"bad driver", func(c *Config) { c.Data.Driver = "postgres" }},
		{"zero turns", func(c *Config) { c.Wake.MaxTurns = 0 }},
		{"no wake times", func(c *Config) { c.Wake.Times = nil }},
		{"malformed wake time", func(c *Config) { c.Wake.Times = []string{"25:99"} }},
		{"bad timezone", func(c *Config) { c.Wake.Timezone = "Mars/Olympus" }},
		{"bad epoch", func(c *Config) { c.Wake.Epoch = "yesterday" }},
		{"bad rate limit", func(c *Config) { c.Visitor.RateLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Data.Dir = t.TempDir()
	require.NoError(t, cfg.EnsureDirs())

	assert.DirExists(t, cfg.PlaygroundDir())
	assert.DirExists(t, cfg.StateDir())
	assert.Equal(t, filepath.Join(cfg.StateDir(), "gpthome.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(cfg.DataDir(), "self-prompt.md"), cfg.SelfPromptPath())
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("06:30")
	require.NoError(t, err)
	assert.Equal(t, 6, h)
	assert.Equal(t, 30, m)

	_, _, err = ParseClock("6pm")
	assert.Error(t, err)
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Timeout = "soon"
	cfg.Visitor.RateWindow = "-1h"
	assert.Equal(t, 120*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, time.Hour, cfg.GetRateWindow())
}
