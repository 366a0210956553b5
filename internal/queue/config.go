package queue

import (
	"time"

	"github.com/spf13/viper"
)

// Config :
// Settings of the production queues.
//
// The `Speed` is the global speed of the universe which
// divides every construction time.
// The default value is `1`.
//
// The `BuildSlots` is the number of buildings that can be
// upgraded at the same time on a planet.
// The default value is `1`.
//
// The `RefundRatio` is the part of the cost given back when
// an entry is cancelled.
// The default value is `1`.
//
// The `Retention` is the time completed entries are kept
// before being purged.
// The default value is 24 hours.
//
// The `Batch` caps the number of entries per sweep.
// The default value is `500`.
//
// The `MaxUnits` caps the number of ships or defenses
// ordered in a single shipyard entry.
// The default value is `100000`.
type Config struct {
	Speed       float64
	BuildSlots  int
	RefundRatio float64
	Retention   time.Duration
	Batch       int
	MaxUnits    int
}

// DefaultConfig :
// Returns the configuration with default values.
func DefaultConfig() Config {
	return Config{
		Speed:       1.0,
		BuildSlots:  1,
		RefundRatio: 1.0,
		Retention:   24 * time.Hour,
		Batch:       500,
		MaxUnits:    100000,
	}
}

// ParseConfiguration :
// Reads the `Game.Speed`, `Game.BuildSlots`, `Game.RefundRatio`,
// `Game.MaxUnits`, `Sweep.Retention` and `Sweep.Batch` keys.
func ParseConfiguration() Config {
	config := DefaultConfig()

	if viper.IsSet("Game.Speed") {
		config.Speed = viper.GetFloat64("Game.Speed")
	}
	if viper.IsSet("Game.BuildSlots") {
		config.BuildSlots = viper.GetInt("Game.BuildSlots")
	}
	if viper.IsSet("Game.RefundRatio") {
		config.RefundRatio = viper.GetFloat64("Game.RefundRatio")
	}
	if viper.IsSet("Game.MaxUnits") {
		config.MaxUnits = viper.GetInt("Game.MaxUnits")
	}
	if viper.IsSet("Sweep.Retention") {
		config.Retention = viper.GetDuration("Sweep.Retention")
	}
	if viper.IsSet("Sweep.Batch") {
		config.Batch = viper.GetInt("Sweep.Batch")
	}

	defaults := DefaultConfig()
	if config.Speed <= 0.0 {
		config.Speed = defaults.Speed
	}
	if config.BuildSlots <= 0 {
		config.BuildSlots = defaults.BuildSlots
	}
	if config.RefundRatio < 0.0 || config.RefundRatio > 1.0 {
		config.RefundRatio = defaults.RefundRatio
	}
	if config.MaxUnits <= 0 {
		config.MaxUnits = defaults.MaxUnits
	}
	if config.Retention < 0 {
		config.Retention = defaults.Retention
	}

	return config
}
