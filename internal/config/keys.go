package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "AIDIARY_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.allowed_origin", typ: kString, env: "AIDIARY_SERVER_ALLOWED_ORIGIN",
		apply:   func(cfg *Config, v any) { cfg.Server.AllowedOrigin = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AllowedOrigin },
	},
	{
		key: "client.base_url", typ: kString, env: "AIDIARY_CLIENT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Client.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Client.BaseURL },
	},
	{
		key: "generator.backend", typ: kString, env: "AIDIARY_GENERATOR_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.Generator.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.Generator.Backend },
	},
	{
		key: "generator.base_url", typ: kString, env: "AIDIARY_GENERATOR_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Generator.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Generator.BaseURL },
	},
	{
		key: "generator.model", typ: kString, env: "AIDIARY_GENERATOR_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Generator.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Generator.Model },
	},
	{
		key: "generator.openai_model", typ: kString, env: "AIDIARY_GENERATOR_OPENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Generator.OpenAIModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Generator.OpenAIModel },
	},
	{
		key: "generator.openai_api_key", typ: kString, env: "AIDIARY_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Generator.OpenAIAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Generator.OpenAIAPIKey },
	},
	{
		key: "storage.data_dir", typ: kString, env: "AIDIARY_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "AIDIARY_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "dialogue.round_threshold", typ: kInt, env: "AIDIARY_DIALOGUE_ROUND_THRESHOLD",
		apply:   func(cfg *Config, v any) { cfg.Dialogue.RoundThreshold = v.(int) },
		extract: func(cfg Config) any { return cfg.Dialogue.RoundThreshold },
	},
	{
		key: "dialogue.request_timeout", typ: kString, env: "AIDIARY_DIALOGUE_REQUEST_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Dialogue.RequestTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Dialogue.RequestTimeout },
	},
	{
		key: "archive.preview_chars", typ: kInt, env: "AIDIARY_ARCHIVE_PREVIEW_CHARS",
		apply:   func(cfg *Config, v any) { cfg.Archive.PreviewChars = v.(int) },
		extract: func(cfg Config) any { return cfg.Archive.PreviewChars },
	},
	{
		key: "archive.timezone", typ: kString, env: "AIDIARY_ARCHIVE_TIMEZONE",
		apply:   func(cfg *Config, v any) { cfg.Archive.Timezone = v.(string) },
		extract: func(cfg Config) any { return cfg.Archive.Timezone },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
