package config

import (
	"fmt"
	"net/url"
	"time"
)

type Config struct {
	Server  ServerConfig
	Ollama  OllamaConfig
	Chat    ChatConfig
	Health  HealthConfig
	Static  StaticConfig
	Metrics MetricsConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

// Addr returns the host:port the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type OllamaConfig struct {
	BaseURL string
}

// ChatConfig holds the values substituted for fields a /chat caller omits.
type ChatConfig struct {
	DefaultModel   string
	DefaultMessage string
}

type HealthConfig struct {
	Timeout time.Duration
}

type StaticConfig struct {
	Dir string
}

type MetricsConfig struct {
	Enabled bool
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
		},
		Chat: ChatConfig{
			DefaultModel:   "deepseek-r1:8b",
			DefaultMessage: "What is the meaning of life?",
		},
		Health: HealthConfig{
			Timeout: 5 * time.Second,
		},
		Static: StaticConfig{
			Dir: "public",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Default returns the built-in configuration without consulting the config
// file or the environment.
func Default() Config {
	return defaults()
}

// Load reads configuration from the YAML file at $XDG_CONFIG_HOME/chatrelay/config.yaml
// and applies CHATRELAY_* environment overrides on top.
//
// A missing file is not an error; defaults are used for every key it does not set.
func Load() (Config, error) {
	return LoadFrom(configFilePath())
}

// LoadFrom is Load with an explicit config file path.
func LoadFrom(path string) (Config, error) {
	return loadWith(newFileBackend(path))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", cfg.Server.Port)
	}
	u, err := url.Parse(cfg.Ollama.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid config: ollama.base_url %q is not an absolute URL", cfg.Ollama.BaseURL)
	}
	if cfg.Health.Timeout <= 0 {
		return fmt.Errorf("invalid config: health.timeout must be positive, got %s", cfg.Health.Timeout)
	}
	return nil
}
