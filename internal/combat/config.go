package combat

import (
	"github.com/spf13/viper"
)

// Config :
// Settings of the combat resolution.
//
// The `MaxRounds` is the number of rounds after which a
// battle ends in a draw.
// The default value is `6`.
//
// The `DebrisRatio` is the part of the metal and crystal
// price of the destroyed ships that ends up in the debris
// field.
// The default value is `0.3`.
//
// The `DefenseDebrisRatio` is the equivalent for defenses.
// The default value is `0`.
//
// The `DefenseRepair` is the part of the destroyed defenses
// that are restored after the battle.
// The default value is `0.7`.
//
// The `LootRatio` is the part of the stock of the defender
// that a victorious attacker can carry away.
// The default value is `0.5`.
//
// The `MaxSimulatedUnits` bounds the number of units of both
// sides of a simulated battle.
// The default value is `100000`.
type Config struct {
	MaxRounds          int
	DebrisRatio        float64
	DefenseDebrisRatio float64
	DefenseRepair      float64
	LootRatio          float64
	MaxSimulatedUnits  int
}

// DefaultConfig :
// Returns the configuration with default values.
func DefaultConfig() Config {
	return Config{
		MaxRounds:          6,
		DebrisRatio:        0.3,
		DefenseDebrisRatio: 0.0,
		DefenseRepair:      0.7,
		LootRatio:          0.5,
		MaxSimulatedUnits:  100000,
	}
}

// ratio :
// Returns the value if it lies in `[0; 1]` and the default
// otherwise.
func ratio(value float64, def float64) float64 {
	if value < 0.0 || value > 1.0 {
		return def
	}
	return value
}

// ParseConfiguration :
// Reads the `Game.MaxRounds`, `Game.DebrisRatio`,
// `Game.DefenseDebrisRatio`, `Game.DefenseRepair` and
// `Game.LootRatio` and `Game.MaxSimulatedUnits` keys.
// Invalid values are replaced by their default.
func ParseConfiguration() Config {
	config := DefaultConfig()
	defaults := DefaultConfig()

	if viper.IsSet("Game.MaxRounds") {
		config.MaxRounds = viper.GetInt("Game.MaxRounds")
	}
	if viper.IsSet("Game.DebrisRatio") {
		config.DebrisRatio = ratio(viper.GetFloat64("Game.DebrisRatio"), defaults.DebrisRatio)
	}
	if viper.IsSet("Game.DefenseDebrisRatio") {
		config.DefenseDebrisRatio = ratio(viper.GetFloat64("Game.DefenseDebrisRatio"), defaults.DefenseDebrisRatio)
	}
	if viper.IsSet("Game.DefenseRepair") {
		config.DefenseRepair = ratio(viper.GetFloat64("Game.DefenseRepair"), defaults.DefenseRepair)
	}
	if viper.IsSet("Game.LootRatio") {
		config.LootRatio = ratio(viper.GetFloat64("Game.LootRatio"), defaults.LootRatio)
	}

	if viper.IsSet("Game.MaxSimulatedUnits") {
		config.MaxSimulatedUnits = viper.GetInt("Game.MaxSimulatedUnits")
	}

	if config.MaxRounds <= 0 {
		config.MaxRounds = defaults.MaxRounds
	}
	if config.MaxSimulatedUnits <= 0 {
		config.MaxSimulatedUnits = defaults.MaxSimulatedUnits
	}

	return config
}
