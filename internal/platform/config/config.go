package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

const (
	BackendModeHTTP  = "http"
	BackendModeLocal = "local"
)

type Config struct {
	// DataDir holds the sqlite record store, the bbolt cache and diary exports.
	DataDir string `koanf:"data_dir"`

	Backend  BackendConfig  `koanf:"backend"`
	Provider ProviderConfig `koanf:"provider"`
	Logging  LoggingConfig  `koanf:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

type BackendConfig struct {
	// Mode selects the record store: "http" talks to the remote API, "local" uses sqlite.
	Mode    string        `koanf:"mode"`
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
	// TokenSecret signs backend tokens issued by the local record store.
	TokenSecret string        `koanf:"token_secret"`
	TokenTTL    time.Duration `koanf:"token_ttl"`
}

type ProviderConfig struct {
	// KratosURL enables the identity provider; empty means the record store alone signs users in.
	KratosURL    string        `koanf:"kratos_url"`
	Timeout      time.Duration `koanf:"timeout"`
	PollInterval time.Duration `koanf:"poll_interval"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// New returns the defaults rooted at dataDir.
func New(dataDir string) Config {
	return Config{
		DataDir: dataDir,
		Backend: BackendConfig{
			Mode:     BackendModeHTTP,
			BaseURL:  "https://readjourney.b.goit.study/api",
			Timeout:  15 * time.Second,
			TokenTTL: 7 * 24 * time.Hour,
		},
		Provider: ProviderConfig{
			Timeout:      5 * time.Second,
			PollInterval: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, ".readjourney", "readjourney.db")
}

func (c Config) CachePath() string {
	return filepath.Join(c.DataDir, ".readjourney", "cache.db")
}

func (c Config) DiaryDir() string {
	return filepath.Join(c.DataDir, "diary")
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("%w: data dir is required", ErrInvalidConfig)
	}
	switch c.Backend.Mode {
	case BackendModeHTTP:
		if strings.TrimSpace(c.Backend.BaseURL) == "" {
			return fmt.Errorf("%w: backend.base_url is required in http mode", ErrInvalidConfig)
		}
	case BackendModeLocal:
		if len(c.Backend.TokenSecret) < 32 {
			return fmt.Errorf("%w: backend.token_secret must be at least 32 bytes in local mode", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unsupported backend mode %q", ErrInvalidConfig, c.Backend.Mode)
	}
	if c.Backend.Timeout <= 0 || c.Provider.Timeout <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	if c.Provider.PollInterval <= 0 {
		return fmt.Errorf("%w: provider.poll_interval must be positive", ErrInvalidConfig)
	}
	return nil
}
