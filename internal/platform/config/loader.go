package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

const (
	EnvPrefix  = "READJOURNEY_"
	EnvConfig  = "READJOURNEY_CONFIG"
	keyDivider = "."
)

// Load layers defaults, an optional YAML file and READJOURNEY_* env vars (low -> high).
// path overrides READJOURNEY_CONFIG when set. Nested keys use a double underscore:
// READJOURNEY_BACKEND__BASE_URL -> backend.base_url.
func Load(dataDir, path string) (Config, error) {
	cfg := New(dataDir)

	k := koanf.New(keyDivider)
	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	envProvider := env.Provider(EnvPrefix, keyDivider, func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "__", keyDivider)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	k.Delete("config")

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
