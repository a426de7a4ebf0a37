package config

import (
	"fmt"
	"strconv"
	"time"
)

// KeyInfo is one row of `aidiary config show`.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
}

// ShowAll lists the settings a user may inspect. The OpenAI key is left out:
// config show output ends up in terminals and bug reports, and the key only
// ever comes from AIDIARY_OPENAI_API_KEY or secrets.json.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprintf("%v", s.extract(cfg)),
		})
	}
	return result
}

// SetKey persists one diary setting to config.json.
func SetKey(key, value string) error {
	return setKeyWith(newPlatformBackend(), key, value)
}

func findSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

// setKeyWith rejects values that Load would later refuse, so a bad
// `config set` cannot lock the diary out of every other command.
func setKeyWith(b ConfigBackend, key, value string) error {
	s, ok := findSpec(key)
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}
	if s.secret {
		return fmt.Errorf("%s is not stored in config.json; export %s instead", key, s.env)
	}

	switch key {
	case "dialogue.request_timeout":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	case "archive.timezone":
		if _, err := time.LoadLocation(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	if s.typ == kInt {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		if key == "dialogue.round_threshold" && n < 1 {
			return fmt.Errorf("invalid %s %d: must be at least 1", key, n)
		}
		return b.SetInt(key, n)
	}
	return b.SetString(key, value)
}

// ValidKeys names the keys accepted by SetKey.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
