package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/quizarena/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("QUIZARENA_ADDR", ":8080")
			_ = os.Setenv("QUIZARENA_QUEUE_SIZE", "500")
			_ = os.Setenv("QUIZARENA_STORAGE_DRIVER", "sqlite")
			_ = os.Setenv("QUIZARENA_DEFAULT_EASE_FACTOR", "2.1")
			_ = os.Setenv("QUIZARENA_BRACKET_SEED", "42")
			_ = os.Setenv("QUIZARENA_METRICS_NAMESPACE", "arena")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 500)
				convey.So(cfg.StorageDriver, convey.ShouldEqual, config.StorageSQLite)
				convey.So(cfg.DefaultEaseFactor, convey.ShouldEqual, 2.1)
				convey.So(cfg.BracketSeed, convey.ShouldEqual, 42)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "arena")
				convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "core")
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
# study settings
addr: ":9090"
worker_count: 8
max_due_limit: 25
log_format: json
`)
			_ = os.Setenv("QUIZARENA_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from the file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.MaxDueLimit, convey.ShouldEqual, 25)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "json")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			})

			convey.Convey("And env vars take precedence over the file", func() {
				_ = os.Setenv("QUIZARENA_WORKER_COUNT", "2")

				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 2)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("QUIZARENA_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			_, err := config.Load(ctx)

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the result is invalid", func() {
			_ = os.Setenv("QUIZARENA_DEFAULT_EASE_FACTOR", "1.0")

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, v := range []string{
		"QUIZARENA_CONFIG",
		"QUIZARENA_ADDR",
		"QUIZARENA_QUEUE_SIZE",
		"QUIZARENA_WORKER_COUNT",
		"QUIZARENA_STORAGE_DRIVER",
		"QUIZARENA_DEFAULT_EASE_FACTOR",
		"QUIZARENA_BRACKET_SEED",
		"QUIZARENA_METRICS_NAMESPACE",
	} {
		_ = os.Unsetenv(v)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "quizarena.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}
