package routes

import (
	"github.com/spf13/viper"
)

// Config :
// Settings of the API.
//
// The `RateLimit` is the number of requests per second a
// client can issue in the long run.
// The default value is `20`.
//
// The `Burst` is the number of requests a client can issue
// at once.
// The default value is `40`.
//
// The `Origins` are the origins allowed to call the API from
// a browser.
// The default value allows any origin.
type Config struct {
	RateLimit float64
	Burst     int
	Origins   []string
}

// DefaultConfig :
// Returns the configuration with default values.
func DefaultConfig() Config {
	return Config{
		RateLimit: 20.0,
		Burst:     40,
		Origins:   []string{"*"},
	}
}

// ParseConfiguration :
// Reads the `API.RateLimit`, `API.Burst` and `API.Origins`
// keys. Invalid values are replaced by the defaults.
func ParseConfiguration() Config {
	config := DefaultConfig()

	if viper.IsSet("API.RateLimit") {
		config.RateLimit = viper.GetFloat64("API.RateLimit")
	}
	if viper.IsSet("API.Burst") {
		config.Burst = viper.GetInt("API.Burst")
	}
	if viper.IsSet("API.Origins") {
		config.Origins = viper.GetStringSlice("API.Origins")
	}

	defaults := DefaultConfig()
	if config.RateLimit <= 0.0 {
		config.RateLimit = defaults.RateLimit
	}
	if config.Burst <= 0 {
		config.Burst = defaults.Burst
	}
	if len(config.Origins) == 0 {
		config.Origins = defaults.Origins
	}

	return config
}
