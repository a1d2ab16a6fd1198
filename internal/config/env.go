package config

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "GPTHOME"

// envOverrides lists the settings that may come from the environment.
// envconfig tries GPTHOME_<KEY> first and falls back to the bare <KEY>, so
// the usual provider variables (OPENAI_API_KEY, GEMINI_API_KEY) work as is.
type envOverrides struct {
	DataDir      string `envconfig:"DATA_DIR"`
	DBDriver     string `envconfig:"DB_DRIVER"`
	Provider     string `envconfig:"LLM_PROVIDER"`
	OpenAIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL"`
	OpenAIBase   string `envconfig:"OPENAI_BASE_URL"`
	GeminiKey    string `envconfig:"GEMINI_API_KEY"`
	GeminiModel  string `envconfig:"GEMINI_MODEL"`
	MaxTurns     int    `envconfig:"MAX_TURNS"`
	WakeTimes    string `envconfig:"WAKE_TIMES"` // comma separated HH:MM
	Timezone     string `envconfig:"TIMEZONE"`
	Addr         string `envconfig:"ADDR"`
	AdminSecret  string `envconfig:"ADMIN_SECRET_KEY"`
	LogLevel     string `envconfig:"LOG_LEVEL"`
	LogFormat    string `envconfig:"LOG_FORMAT"`
	WeatherOff   bool   `envconfig:"WEATHER_DISABLED"`
	PythonBinary string `envconfig:"PYTHON_BINARY"`
}

// applyEnvOverrides overlays environment variables onto c. Empty values leave
// the file/default value in place.
func (c *Config) applyEnvOverrides() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}

	setString(&c.Data.Dir, env.DataDir)
	setString(&c.Data.Driver, env.DBDriver)
	setString(&c.Wake.Timezone, env.Timezone)
	setString(&c.Server.Addr, env.Addr)
	setString(&c.Server.AdminSecret, env.AdminSecret)
	setString(&c.Logging.Level, env.LogLevel)
	setString(&c.Logging.Format, env.LogFormat)
	setString(&c.Sandbox.PythonBinary, env.PythonBinary)
	if env.MaxTurns > 0 {
		c.Wake.MaxTurns = env.MaxTurns
	}
	if env.WakeTimes != "" {
		var times []string
		for _, t := range strings.Split(env.WakeTimes, ",") {
			if t = strings.TrimSpace(t); t != "" {
				times = append(times, t)
			}
		}
		c.Wake.Times = times
	}
	if env.WeatherOff {
		c.Weather.Enabled = false
	}

	// An explicit provider wins; otherwise the first key found picks one.
	setString(&c.LLM.Provider, env.Provider)
	switch {
	case env.Provider == "gemini" || (env.Provider == "" && env.GeminiKey != "" && env.OpenAIKey == ""):
		c.LLM.Provider = "gemini"
		setString(&c.LLM.APIKey, env.GeminiKey)
		setString(&c.LLM.Model, env.GeminiModel)
		if env.GeminiModel == "" && strings.HasPrefix(c.LLM.Model, "gpt") {
			c.LLM.Model = "gemini-2.5-flash"
		}
	case env.Provider == "" || env.Provider == "openai":
		setString(&c.LLM.APIKey, env.OpenAIKey)
		setString(&c.LLM.Model, env.OpenAIModel)
		setString(&c.LLM.BaseURL, env.OpenAIBase)
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
