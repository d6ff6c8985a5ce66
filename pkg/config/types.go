package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent mathpad configuration stored as
// config.toml in the .mathpad/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Model       ModelConfig       `toml:"model"`
	Endpoints   EndpointsConfig   `toml:"endpoints"`
	Storage     StorageConfig     `toml:"storage"`
	API         APIConfig         `toml:"api"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Canvas      CanvasConfig      `toml:"canvas"`
}

// ModelConfig selects the models used for solving and transcription.
type ModelConfig struct {
	// Family is one of the model families ("qwen", "gemini", "glm", "qwen3_8b").
	Family string `toml:"family,omitempty"`

	// Vision is the model used to transcribe the canvas.
	Vision string `toml:"vision,omitempty"`

	// Thinking turns extended reasoning on by default.
	Thinking bool `toml:"thinking,omitempty"`

	// ThinkingBudget caps reasoning tokens where the route supports a budget.
	ThinkingBudget uint `toml:"thinking_budget,omitempty"`
}

// EndpointsConfig holds upstream base URLs.
type EndpointsConfig struct {
	// DashScope is the default OpenAI-compatible chat completions URL.
	DashScope string `toml:"dashscope,omitempty"`

	// Alternate is the OpenAI-compatible URL for third-party families.
	Alternate string `toml:"alternate,omitempty"`

	// Gemini is the generative-content API base.
	Gemini string `toml:"gemini,omitempty"`
}

// StorageConfig holds history storage settings.
type StorageConfig struct {
	// Driver is "memory", "sqlite" or "postgres".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	MaxHistory  uint   `toml:"max_history,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventStreamConfig configures where settled results are published.
type EventStreamConfig struct {
	// Provider is "nop" or "kafka".
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// CanvasConfig sizes the server-side drawing board.
type CanvasConfig struct {
	Width  uint `toml:"width,omitempty"`
	Height uint `toml:"height,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"model.family": stringKey(func(c *Config) *string { return &c.Model.Family }),
	"model.vision": stringKey(func(c *Config) *string { return &c.Model.Vision }),
	"model.thinking": {
		get: func(c *Config) string { return strconv.FormatBool(c.Model.Thinking) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for model.thinking: %w", err)
			}
			c.Model.Thinking = b
			return nil
		},
	},
	"model.thinking_budget": uintKey("model.thinking_budget", func(c *Config) *uint { return &c.Model.ThinkingBudget }),

	"endpoints.dashscope": stringKey(func(c *Config) *string { return &c.Endpoints.DashScope }),
	"endpoints.alternate": stringKey(func(c *Config) *string { return &c.Endpoints.Alternate }),
	"endpoints.gemini":    stringKey(func(c *Config) *string { return &c.Endpoints.Gemini }),

	"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"storage.max_history":  uintKey("storage.max_history", func(c *Config) *uint { return &c.Storage.MaxHistory }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers":  stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":    stringKey(func(c *Config) *string { return &c.EventStream.Topic }),

	"canvas.width":  uintKey("canvas.width", func(c *Config) *uint { return &c.Canvas.Width }),
	"canvas.height": uintKey("canvas.height", func(c *Config) *uint { return &c.Canvas.Height }),
}
