package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all gpthome configuration.
type Config struct {
	Name string `yaml:"name"`

	// Persistent state
	Data DataConfig `yaml:"data"`

	// Model provider
	LLM LLMConfig `yaml:"llm"`

	// Wake cycle behaviour
	Wake WakeConfig `yaml:"wake"`

	// Tool sandbox limits
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Weather provider
	Weather WeatherConfig `yaml:"weather"`

	// Public visitor submissions
	Visitor VisitorConfig `yaml:"visitor"`

	// HTTP surface
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig locates the sandbox root and the relational store.
type DataConfig struct {
	Dir          string `yaml:"dir"`
	DatabaseFile string `yaml:"database_file"` // relative to the state dir unless absolute
	Driver       string `yaml:"driver"`        // sqlite (pure Go) or sqlite3 (cgo)
}

// LLMConfig configures the model client.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, gemini, mock
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Timeout     string  `yaml:"timeout"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// WakeConfig configures the wake cycle and its schedule.
type WakeConfig struct {
	Times             []string `yaml:"times"`    // HH:MM wall-clock triggers
	Timezone          string   `yaml:"timezone"` // IANA name, UTC when empty
	MaxTurns          int      `yaml:"max_turns"`
	Epoch             string   `yaml:"epoch"` // YYYY-MM-DD, day one of existence
	RecentThoughts    int      `yaml:"recent_thoughts"`
	RecentDreams      int      `yaml:"recent_dreams"`
	NewsLimit         int      `yaml:"news_limit"`
	VisitorsInContext int      `yaml:"visitors_in_context"`
}

// SandboxConfig bounds what the tool surface may do.
type SandboxConfig struct {
	PythonBinary   string `yaml:"python_binary"`
	Timeout        string `yaml:"timeout"`
	MaxReadChars   int    `yaml:"max_read_chars"`
	MaxOutputChars int    `yaml:"max_output_chars"`
}

// WeatherConfig configures the weather provider.
type WeatherConfig struct {
	Enabled   bool    `yaml:"enabled"`
	URL       string  `yaml:"url"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	CacheTTL  string  `yaml:"cache_ttl"`
	Timeout   string  `yaml:"timeout"`
}

// VisitorConfig configures the public message box.
type VisitorConfig struct {
	RateLimit     int    `yaml:"rate_limit"`  // messages per window per fingerprint
	RateWindow    string `yaml:"rate_window"` // e.g. 1h
	MaxNameLength int    `yaml:"max_name_length"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr              string `yaml:"addr"`
	MaxConnections    int    `yaml:"max_connections"`
	AdminSecret       string `yaml:"admin_secret"`
	LoginAttempts     int    `yaml:"login_attempts"`
	LoginWindow       string `yaml:"login_window"`
	LoginTrackedIPs   int    `yaml:"login_tracked_ips"`
	ShutdownTimeout   string `yaml:"shutdown_timeout"`
	EnableMetrics     bool   `yaml:"enable_metrics"`
	ReadHeaderTimeout string `yaml:"read_header_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "gpthome",

		Data: DataConfig{
			Dir:          "data",
			DatabaseFile: "gpthome.db",
			Driver:       "sqlite",
		},

		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "gpt-4o",
			BaseURL:     "https://api.openai.com/v1",
			Timeout:     "120s",
			Temperature: 0.9,
			MaxTokens:   2000,
		},

		Wake: WakeConfig{
			Times:             []string{"06:00", "12:00", "18:00", "00:00"},
			Timezone:          "UTC",
			MaxTurns:          15,
			Epoch:             "2025-01-01",
			RecentThoughts:    3,
			RecentDreams:      2,
			NewsLimit:         10,
			VisitorsInContext: 25,
		},

		Sandbox: SandboxConfig{
			PythonBinary:   "python3",
			Timeout:        "30s",
			MaxReadChars:   8000,
			MaxOutputChars: 4000,
		},

		Weather: WeatherConfig{
			Enabled:   true,
			URL:       "https://api.open-meteo.com/v1/forecast",
			Latitude:  52.52,
			Longitude: 13.41,
			CacheTTL:  "1h",
			Timeout:   "5s",
		},

		Visitor: VisitorConfig{
			RateLimit:     5,
			RateWindow:    "1h",
			MaxNameLength: 60,
		},

		Server: ServerConfig{
			Addr:              ":8000",
			MaxConnections:    256,
			LoginAttempts:     5,
			LoginWindow:       "5m",
			LoginTrackedIPs:   1000,
			ShutdownTimeout:   "10s",
			EnableMetrics:     true,
			ReadHeaderTimeout: "10s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file, then applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// =============================================================================
// PATHS
// =============================================================================

// StateDirName holds files the agent must never see through its tools.
const StateDirName = ".state"

// DataDir returns the absolute sandbox root.
func (c *Config) DataDir() string {
	abs, err := filepath.Abs(c.Data.Dir)
	if err != nil {
		return c.Data.Dir
	}
	return abs
}

// StateDir returns the hidden directory for the database and caches.
func (c *Config) StateDir() string {
	return filepath.Join(c.DataDir(), StateDirName)
}

// DatabasePath returns the SQLite file path.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Data.DatabaseFile) {
		return c.Data.DatabaseFile
	}
	return filepath.Join(c.StateDir(), c.Data.DatabaseFile)
}

// PlaygroundDir is the working directory for executed code.
func (c *Config) PlaygroundDir() string {
	return filepath.Join(c.DataDir(), "playground")
}

// SelfPromptPath is the agent's note to its next wake.
func (c *Config) SelfPromptPath() string {
	return filepath.Join(c.DataDir(), "self-prompt.md")
}

// PromptLayerPath is the agent's accumulated addendum to its instructions.
func (c *Config) PromptLayerPath() string {
	return filepath.Join(c.DataDir(), "prompt-layer.md")
}

// SystemPromptOverridePath replaces the embedded base instructions when present.
func (c *Config) SystemPromptOverridePath() string {
	return filepath.Join(c.DataDir(), "prompts", "system.md")
}

// WeatherCachePath is the on-disk weather cache.
func (c *Config) WeatherCachePath() string {
	return filepath.Join(c.StateDir(), "weather.json")
}

// EnsureDirs creates the sandbox root, playground, and state dir.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir(), c.PlaygroundDir(), c.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// =============================================================================
// DURATIONS AND DERIVED VALUES
// =============================================================================

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// GetLLMTimeout returns the per-request model timeout.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// GetSandboxTimeout returns the code execution timeout.
func (c *Config) GetSandboxTimeout() time.Duration {
	return parseDuration(c.Sandbox.Timeout, 30*time.Second)
}

// GetWeatherTTL returns how long a cached weather reading stays fresh.
func (c *Config) GetWeatherTTL() time.Duration {
	return parseDuration(c.Weather.CacheTTL, time.Hour)
}

// GetWeatherTimeout returns the weather HTTP timeout.
func (c *Config) GetWeatherTimeout() time.Duration {
	return parseDuration(c.Weather.Timeout, 5*time.Second)
}

// GetRateWindow returns the visitor rate-limit window.
func (c *Config) GetRateWindow() time.Duration {
	return parseDuration(c.Visitor.RateWindow, time.Hour)
}

// GetLoginWindow returns the admin login attempt window.
func (c *Config) GetLoginWindow() time.Duration {
	return parseDuration(c.Server.LoginWindow, 5*time.Minute)
}

// GetShutdownTimeout returns the graceful shutdown budget.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// GetReadHeaderTimeout returns the HTTP read-header timeout.
func (c *Config) GetReadHeaderTimeout() time.Duration {
	return parseDuration(c.Server.ReadHeaderTimeout, 10*time.Second)
}

// Location returns the wake timezone, UTC on error.
func (c *Config) Location() *time.Location {
	if c.Wake.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Wake.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EpochDate returns day one of existence.
func (c *Config) EpochDate() time.Time {
	t, err := time.Parse("2006-01-02", c.Wake.Epoch)
	if err != nil {
		return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// placeholderKey is the value shipped in example env files.
const placeholderKey = "sk-your-key-here"

// MockMode reports whether the resident runs without a live model.
func (c *Config) MockMode() bool {
	if c.LLM.Provider == "mock" {
		return true
	}
	key := strings.TrimSpace(c.LLM.APIKey)
	return key == "" || key == placeholderKey
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidProviders lists all supported model providers.
var ValidProviders = []string{"openai", "gemini", "mock"}

// ValidDrivers lists the registered SQLite drivers.
var ValidDrivers = []string{"sqlite", "sqlite3"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider %q (valid: %s)", c.LLM.Provider, strings.Join(ValidProviders, ", "))
	}
	if !contains(ValidDrivers, c.Data.Driver) {
		return fmt.Errorf("invalid database driver %q (valid: %s)", c.Data.Driver, strings.Join(ValidDrivers, ", "))
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if c.Wake.MaxTurns <= 0 {
		return fmt.Errorf("wake.max_turns must be positive, got %d", c.Wake.MaxTurns)
	}
	if len(c.Wake.Times) == 0 {
		return fmt.Errorf("wake.times must list at least one HH:MM time")
	}
	for _, wt := range c.Wake.Times {
		if _, _, err := ParseClock(wt); err != nil {
			return err
		}
	}
	if c.Wake.Timezone != "" {
		if _, err := time.LoadLocation(c.Wake.Timezone); err != nil {
			return fmt.Errorf("invalid wake.timezone %q: %w", c.Wake.Timezone, err)
		}
	}
	if _, err := time.Parse("2006-01-02", c.Wake.Epoch); err != nil {
		return fmt.Errorf("invalid wake.epoch %q: want YYYY-MM-DD", c.Wake.Epoch)
	}
	if c.Visitor.RateLimit <= 0 {
		return fmt.Errorf("visitor.rate_limit must be positive, got %d", c.Visitor.RateLimit)
	}
	return nil
}

// ParseClock parses an HH:MM wall-clock time.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid wake time %q: want HH:MM", s)
	}
	return t.Hour(), t.Minute(), nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
