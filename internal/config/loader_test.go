package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pable/go-hax-metrics/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load("")

			convey.Convey("Then the stock engine constants apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.PersistQueueSize, convey.ShouldEqual, 16)
				convey.So(cfg.Engine.PlayerRadius, convey.ShouldEqual, 15.0)
				convey.So(cfg.Engine.TouchMargin, convey.ShouldEqual, 0.01)
				convey.So(cfg.Engine.DefaultBallRadius, convey.ShouldEqual, 5.8)
				convey.So(cfg.Engine.PositionCooldown, convey.ShouldEqual, 0.25)
				convey.So(cfg.Engine.BallFlag, convey.ShouldEqual, uint32(1))
			})
		})

		convey.Convey("When a YAML file is given", func() {
			path := writeTempConfig(t, `
log_level: debug
live_addr: ":9090"
engine:
  player_radius: 14
  goal_area_factor: 2
`)
			cfg, err := config.Load(path)

			convey.Convey("Then file values override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.LiveAddr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Engine.PlayerRadius, convey.ShouldEqual, 14.0)
				convey.So(cfg.Engine.GoalAreaFactor, convey.ShouldEqual, 2.0)
				convey.So(cfg.Engine.TouchMargin, convey.ShouldEqual, 0.01)
			})
		})

		convey.Convey("When env vars are set on top of a file", func() {
			path := writeTempConfig(t, "log_level: debug\n")
			os.Setenv("HAXMETRICS_LOG_LEVEL", "warn")
			os.Setenv("HAXMETRICS_PERSIST_QUEUE_SIZE", "4")
			os.Setenv("HAXMETRICS_ENGINE__POSITION_COOLDOWN", "0.5")
			defer clearConfigEnvVars()

			cfg, err := config.Load(path)

			convey.Convey("Then env wins", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
				convey.So(cfg.PersistQueueSize, convey.ShouldEqual, 4)
				convey.So(cfg.Engine.PositionCooldown, convey.ShouldEqual, 0.5)
			})
		})

		convey.Convey("When the config file is picked up from HAXMETRICS_CONFIG", func() {
			path := writeTempConfig(t, "live_addr: \":7000\"\n")
			os.Setenv("HAXMETRICS_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load("")

			convey.Convey("Then its values are used", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LiveAddr, convey.ShouldEqual, ":7000")
			})
		})

		convey.Convey("When a value is out of range", func() {
			os.Setenv("HAXMETRICS_ENGINE__PLAYER_RADIUS", "0")
			defer clearConfigEnvVars()

			_, err := config.Load("")

			convey.Convey("Then ErrInvalidConfig is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then ErrLoadConfig is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "haxmetrics.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"HAXMETRICS_CONFIG",
		"HAXMETRICS_LOG_LEVEL",
		"HAXMETRICS_PERSIST_QUEUE_SIZE",
		"HAXMETRICS_ENGINE__POSITION_COOLDOWN",
		"HAXMETRICS_ENGINE__PLAYER_RADIUS",
	} {
		_ = os.Unsetenv(k)
	}
}
