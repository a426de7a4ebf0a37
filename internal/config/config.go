package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Server    ServerConfig
	Client    ClientConfig
	Generator GeneratorConfig
	Storage   StorageConfig
	Log       LogConfig
	Dialogue  DialogueConfig
	Archive   ArchiveConfig
}

type ServerConfig struct {
	Port          int
	AllowedOrigin string
}

type ClientConfig struct {
	BaseURL string
}

type GeneratorConfig struct {
	Backend      string // "ollama" or "openai"
	BaseURL      string
	Model        string
	OpenAIModel  string
	OpenAIAPIKey string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type DialogueConfig struct {
	RoundThreshold int
	RequestTimeout string
}

type ArchiveConfig struct {
	PreviewChars int
	Timezone     string
}

// Timeout parses RequestTimeout, falling back to 60s.
func (d DialogueConfig) Timeout() time.Duration {
	if v, err := time.ParseDuration(d.RequestTimeout); err == nil && v > 0 {
		return v
	}
	return 60 * time.Second
}

// Location resolves Timezone. "Local" or an unknown zone yields time.Local.
func (a ArchiveConfig) Location() *time.Location {
	if a.Timezone == "" || a.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		Client: ClientConfig{
			BaseURL: "http://127.0.0.1:8000",
		},
		Generator: GeneratorConfig{
			Backend:     "ollama",
			BaseURL:     "http://localhost:11434",
			Model:       "gemma3",
			OpenAIModel: "gpt-4o-mini",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Dialogue: DialogueConfig{
			RoundThreshold: 3,
			RequestTimeout: "60s",
		},
		Archive: ArchiveConfig{
			PreviewChars: 30,
			Timezone:     "Local",
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/aidiary/config.json, then applies AIDIARY_* environment
// overrides. Secrets are only read from the environment or the secret store.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), NewSecretStore())
}

func loadWith(b ConfigBackend, sec SecretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Generator.OpenAIAPIKey == "" {
		if key, err := sec.Get(secretService, "openai_api_key"); err == nil {
			cfg.Generator.OpenAIAPIKey = key
		} else if !errors.Is(err, ErrSecretNotFound) {
			return Config{}, fmt.Errorf("reading openai key: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Generator.Backend {
	case "ollama":
	case "openai":
		if c.Generator.OpenAIAPIKey == "" {
			return fmt.Errorf("missing required config: OpenAI API key. Set it via environment variable AIDIARY_OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("invalid generator.backend %q: want ollama or openai", c.Generator.Backend)
	}
	if c.Dialogue.RoundThreshold < 1 {
		return fmt.Errorf("invalid dialogue.round_threshold %d: must be at least 1", c.Dialogue.RoundThreshold)
	}
	if _, err := time.ParseDuration(c.Dialogue.RequestTimeout); err != nil {
		return fmt.Errorf("invalid dialogue.request_timeout %q: %w", c.Dialogue.RequestTimeout, err)
	}
	return nil
}
