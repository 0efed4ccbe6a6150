// Package config defines haxmetrics configuration and its layered loading.
package config

import (
	"errors"
	"os"
	"path/filepath"
)

// Sentinel error kinds for this package.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogJSON switches the log handler to JSON records.
	LogJSON bool `koanf:"log_json"`

	// DBPath is the SQLite database file.
	DBPath string `koanf:"db_path"`

	// LiveAddr is the listen address of the live side channel; empty disables it.
	LiveAddr string `koanf:"live_addr"`

	// PersistQueueSize bounds the number of finished matches waiting to be written.
	PersistQueueSize int `koanf:"persist_queue_size"`

	Engine Engine `koanf:"engine"`
}

// Engine holds the classification constants. Defaults follow the host's stadium units.
type Engine struct {
	PlayerRadius      float64 `koanf:"player_radius"`
	TouchMargin       float64 `koanf:"touch_margin"`
	DefaultBallRadius float64 `koanf:"default_ball_radius"`
	GoalAreaFactor    float64 `koanf:"goal_area_factor"`
	GoalpostEpsilon   float64 `koanf:"goalpost_epsilon"`
	PositionCooldown  float64 `koanf:"position_cooldown"`
	DriveEpsilon      float64 `koanf:"drive_epsilon"`

	BallFlag   uint32 `koanf:"ball_flag"`
	RedKOFlag  uint32 `koanf:"red_ko_flag"`
	BlueKOFlag uint32 `koanf:"blue_ko_flag"`
}

// New returns a Config filled with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		DBPath:           filepath.Join(userHome(), ".haxmetrics", "metrics.db"),
		PersistQueueSize: 16,
		Engine:           DefaultEngine(),
	}
}

// DefaultEngine returns the stock classification constants.
func DefaultEngine() Engine {
	return Engine{
		PlayerRadius:      15,
		TouchMargin:       0.01,
		DefaultBallRadius: 5.8,
		GoalAreaFactor:    1.5,
		GoalpostEpsilon:   0.1,
		PositionCooldown:  0.25,
		DriveEpsilon:      0.01,
		BallFlag:          1,
		RedKOFlag:         8,
		BlueKOFlag:        16,
	}
}

// Validate checks ranges that would make classification meaningless.
func (c *Config) Validate() error {
	switch {
	case c.DBPath == "":
		return errors.Join(ErrInvalidConfig, errors.New("db_path must not be empty"))
	case c.PersistQueueSize <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("persist_queue_size must be positive"))
	case c.Engine.PlayerRadius <= 0 || c.Engine.DefaultBallRadius <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("radii must be positive"))
	case c.Engine.GoalAreaFactor <= 0:
		return errors.Join(ErrInvalidConfig, errors.New("goal_area_factor must be positive"))
	case c.Engine.PositionCooldown < 0 || c.Engine.DriveEpsilon < 0 || c.Engine.TouchMargin < 0:
		return errors.Join(ErrInvalidConfig, errors.New("cooldown, epsilon and margin must not be negative"))
	case c.Engine.BallFlag == 0 || c.Engine.RedKOFlag == 0 || c.Engine.BlueKOFlag == 0:
		return errors.Join(ErrInvalidConfig, errors.New("collision flags must be non-zero"))
	}
	return nil
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
