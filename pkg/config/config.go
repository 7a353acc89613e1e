// Package config loads runtime configuration for the cardgen binaries.
//
// Values are layered: struct defaults, an optional YAML file, then
// environment variables prefixed with CARDGEN_ (CARDGEN_SERVER_PORT maps to
// server.port). SANDBOX is honoured without the prefix.
package config

import (
	"time"
)

const EnvPrefix = "CARDGEN_"

type Config struct {
	Log     LogConfig     `koanf:"log"`
	Server  ServerConfig  `koanf:"server"`
	Render  RenderConfig  `koanf:"render"`
	Surface SurfaceConfig `koanf:"surface"`
	Source  SourceConfig  `koanf:"source"`
}

type LogConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error disabled"`
	JSON  bool   `koanf:"json"`
}

type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port" validate:"min=1,max=65535"`
	Sandbox      bool          `koanf:"sandbox"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"min=0"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"min=0"`
	// RateLimit uses the limiter format "<n>-<period>", e.g. "60-M".
	// Empty disables limiting.
	RateLimit string `koanf:"rate_limit"`
	Metrics   bool   `koanf:"metrics"`
}

type RenderConfig struct {
	PluginsErrorsFatal bool          `koanf:"plugins_errors_fatal"`
	Retries            int           `koanf:"retries" validate:"min=0"`
	RetryBackoff       time.Duration `koanf:"retry_backoff" validate:"min=0"`
	PluginTimeout      time.Duration `koanf:"plugin_timeout" validate:"min=0"`
}

// SurfaceConfig drives the adapters used by the parity harness.
type SurfaceConfig struct {
	StartupTimeout time.Duration `koanf:"startup_timeout" validate:"gt=0"`
	ProbeTimeout   time.Duration `koanf:"probe_timeout" validate:"gt=0"`
	ProbeInterval  time.Duration `koanf:"probe_interval" validate:"gt=0"`
	GraceDelay     time.Duration `koanf:"grace_delay" validate:"min=0"`
	StopGrace      time.Duration `koanf:"stop_grace" validate:"gt=0"`
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	// Command is the shell-quoted command line the action and service
	// adapters spawn. Empty means the running executable.
	Command    string `koanf:"command"`
	User       string `koanf:"user" validate:"required"`
	Repository string `koanf:"repository" validate:"required"`
}

type SourceConfig struct {
	Kind    string `koanf:"kind" validate:"oneof=mock github"`
	BaseURL string `koanf:"base_url"`
	Token   string `koanf:"token"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Port:         3000,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			Metrics:      true,
		},
		Render: RenderConfig{
			RetryBackoff:  100 * time.Millisecond,
			PluginTimeout: 30 * time.Second,
		},
		Surface: SurfaceConfig{
			StartupTimeout: 60 * time.Second,
			ProbeTimeout:   2 * time.Second,
			ProbeInterval:  time.Second,
			GraceDelay:     5 * time.Second,
			StopGrace:      5 * time.Second,
			BaseURL:        "http://localhost:3000",
			User:           "octocat",
			Repository:     "octocat/gh-metrics",
		},
		Source: SourceConfig{
			Kind: "mock",
		},
	}
}
