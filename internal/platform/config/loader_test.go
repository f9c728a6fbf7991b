package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"readjourney/internal/platform/config"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		dataDir := t.TempDir()

		convey.Convey("When loading with defaults only", func() {
			clearConfigEnv(t)
			cfg, err := config.Load(dataDir, "")

			convey.Convey("Then the remote backend defaults apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Backend.Mode, convey.ShouldEqual, config.BackendModeHTTP)
				convey.So(cfg.Backend.Timeout, convey.ShouldEqual, 15*time.Second)
				convey.So(cfg.Provider.PollInterval, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.Logging.Level, convey.ShouldEqual, "info")
				convey.So(cfg.DBPath(), convey.ShouldEqual, filepath.Join(dataDir, ".readjourney", "readjourney.db"))
			})
		})

		convey.Convey("When a YAML file selects the local backend", func() {
			clearConfigEnv(t)
			path := filepath.Join(dataDir, "readjourney.yaml")
			content := "backend:\n  mode: local\n  token_secret: 0123456789abcdef0123456789abcdef\n  token_ttl: 2h\nlogging:\n  level: debug\n"
			convey.So(os.WriteFile(path, []byte(content), 0o600), convey.ShouldBeNil)

			cfg, err := config.Load(dataDir, path)

			convey.Convey("Then file values override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Backend.Mode, convey.ShouldEqual, config.BackendModeLocal)
				convey.So(cfg.Backend.TokenTTL, convey.ShouldEqual, 2*time.Hour)
				convey.So(cfg.Logging.Level, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When env vars are set", func() {
			clearConfigEnv(t)
			t.Setenv("READJOURNEY_BACKEND__BASE_URL", "http://localhost:3000/api")
			t.Setenv("READJOURNEY_PROVIDER__POLL_INTERVAL", "5s")
			t.Setenv("READJOURNEY_LOGGING__FORMAT", "json")

			cfg, err := config.Load(dataDir, "")

			convey.Convey("Then nested keys are overridden", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Backend.BaseURL, convey.ShouldEqual, "http://localhost:3000/api")
				convey.So(cfg.Provider.PollInterval, convey.ShouldEqual, 5*time.Second)
				convey.So(cfg.Logging.Format, convey.ShouldEqual, "json")
			})
		})

		convey.Convey("When local mode lacks a token secret", func() {
			clearConfigEnv(t)
			t.Setenv("READJOURNEY_BACKEND__MODE", "local")

			_, err := config.Load(dataDir, "")

			convey.Convey("Then loading fails validation", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			clearConfigEnv(t)
			_, err := config.Load(dataDir, filepath.Join(dataDir, "missing.yaml"))

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"READJOURNEY_CONFIG",
		"READJOURNEY_BACKEND__MODE",
		"READJOURNEY_BACKEND__BASE_URL",
		"READJOURNEY_PROVIDER__POLL_INTERVAL",
		"READJOURNEY_LOGGING__FORMAT",
	} {
		_ = os.Unsetenv(key)
	}
}
