package sweep

import (
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/accrual"
	"github.com/spf13/viper"
)

// Config :
// Intervals of the sweep drivers.
//
// The `Queues` is the interval between two sweeps of the
// production queues.
// The default value is `5s`.
//
// The `Fleets` is the interval between two sweeps of the
// fleets.
// The default value is `5s`.
//
// The `Resources` is the interval between two sweeps of the
// stock of the planets. It is also the age after which the
// planet of an active player is refreshed.
// The default value is `1m`.
//
// The `Timeout` bounds the duration of a single sweep.
// The default value is `30s`.
type Config struct {
	Queues    time.Duration
	Fleets    time.Duration
	Resources time.Duration
	Timeout   time.Duration
}

// DefaultConfig :
// Returns the configuration with default values.
func DefaultConfig() Config {
	return Config{
		Queues:    5 * time.Second,
		Fleets:    5 * time.Second,
		Resources: time.Minute,
		Timeout:   30 * time.Second,
	}
}

// ParseConfiguration :
// Reads the `Sweep.Queues`, `Sweep.Fleets`, `Sweep.Resources`
// and `Sweep.Timeout` keys. Invalid durations are replaced
// by the default ones.
func ParseConfiguration() Config {
	config := DefaultConfig()
	defaults := DefaultConfig()

	if viper.IsSet("Sweep.Queues") {
		config.Queues = viper.GetDuration("Sweep.Queues")
	}
	if viper.IsSet("Sweep.Fleets") {
		config.Fleets = viper.GetDuration("Sweep.Fleets")
	}
	if viper.IsSet("Sweep.Resources") {
		config.Resources = viper.GetDuration("Sweep.Resources")
	}
	if viper.IsSet("Sweep.Timeout") {
		config.Timeout = viper.GetDuration("Sweep.Timeout")
	}

	if config.Queues <= 0 {
		config.Queues = defaults.Queues
	}
	if config.Fleets <= 0 {
		config.Fleets = defaults.Fleets
	}
	if config.Resources <= 0 {
		config.Resources = defaults.Resources
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return config
}

// ParseSchedule :
// Builds the schedule of the resources sweep from the
// `Sweep.Resources`, `Sweep.IdleAfter`, `Sweep.IdleInterval`
// and `Sweep.Batch` keys.
func ParseSchedule() accrual.Schedule {
	schedule := accrual.DefaultSchedule()
	schedule.Interval = ParseConfiguration().Resources

	if viper.IsSet("Sweep.IdleAfter") {
		if v := viper.GetDuration("Sweep.IdleAfter"); v > 0 {
			schedule.IdleAfter = v
		}
	}
	if viper.IsSet("Sweep.IdleInterval") {
		if v := viper.GetDuration("Sweep.IdleInterval"); v > 0 {
			schedule.IdleInterval = v
		}
	}
	if viper.IsSet("Sweep.Batch") {
		if v := viper.GetInt("Sweep.Batch"); v > 0 {
			schedule.Batch = v
		}
	}

	if schedule.IdleInterval < schedule.Interval {
		schedule.IdleInterval = schedule.Interval
	}

	return schedule
}
