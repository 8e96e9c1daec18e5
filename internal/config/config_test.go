package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/quizarena/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.StorageDriver, convey.ShouldEqual, config.StorageMemory)
			convey.So(cfg.DefaultEaseFactor, convey.ShouldEqual, 2.5)
			convey.So(cfg.DueSweepInterval(), convey.ShouldEqual, time.Minute)
			convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "quizarena")
			convey.So(cfg.MetricsSubsystem, convey.ShouldEqual, "core")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one bad setting", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":          func(c *config.Config) { c.Addr = "" },
			"unknown driver":      func(c *config.Config) { c.StorageDriver = "postgres" },
			"sqlite without path": func(c *config.Config) { c.StorageDriver = config.StorageSQLite; c.SQLitePath = "" },
			"low ease factor":     func(c *config.Config) { c.DefaultEaseFactor = 1.2 },
			"zero sweep interval": func(c *config.Config) { c.DueSweepIntervalSec = 0 },
			"zero queue":          func(c *config.Config) { c.QueueSize = 0 },
			"zero due limit":      func(c *config.Config) { c.MaxDueLimit = 0 },
			"no metrics prefix":   func(c *config.Config) { c.MetricsNamespace = "" },
		}

		for name, mutate := range cases {
			cfg := config.New()
			mutate(cfg)

			convey.Convey("Then "+name+" is rejected", func() {
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
