package universe

import (
	"fmt"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/spf13/viper"
)

// Universe :
// Describes the dimensions of the universe and the rules
// governing the expansion of the players in it.
//
// The `Galaxies` defines the number of galaxies.
//
// The `Systems` defines the number of solar systems in a
// single galaxy.
//
// The `Positions` defines the number of planets in each
// solar system.
//
// The `FleetSpeed` divides the travel time of the fleets.
//
// The `MaxPlanets` caps the number of planets a player can
// own, whatever the level of its astrophysics.
type Universe struct {
	Galaxies   int     `json:"galaxies"`
	Systems    int     `json:"systems"`
	Positions  int     `json:"positions"`
	FleetSpeed float64 `json:"fleet_speed"`
	MaxPlanets int     `json:"max_planets"`
}

// ErrInvalidUniverse : The dimensions of the universe are not valid.
var ErrInvalidUniverse = fmt.Errorf("invalid universe")

// Default :
// Returns the universe with default dimensions.
func Default() Universe {
	return Universe{
		Galaxies:   9,
		Systems:    499,
		Positions:  15,
		FleetSpeed: 1.0,
		MaxPlanets: 9,
	}
}

// ParseConfiguration :
// Reads the `Game.Galaxies`, `Game.Systems`, `Game.Positions`,
// `Game.FleetSpeed` and `Game.MaxPlanets` keys.
//
// Returns the universe along with any error if the values
// are not valid.
func ParseConfiguration() (Universe, error) {
	u := Default()

	if viper.IsSet("Game.Galaxies") {
		u.Galaxies = viper.GetInt("Game.Galaxies")
	}
	if viper.IsSet("Game.Systems") {
		u.Systems = viper.GetInt("Game.Systems")
	}
	if viper.IsSet("Game.Positions") {
		u.Positions = viper.GetInt("Game.Positions")
	}
	if viper.IsSet("Game.FleetSpeed") {
		u.FleetSpeed = viper.GetFloat64("Game.FleetSpeed")
	}
	if viper.IsSet("Game.MaxPlanets") {
		u.MaxPlanets = viper.GetInt("Game.MaxPlanets")
	}

	return u, u.Valid()
}

// Valid :
// Determines whether the universe is valid.
//
// Returns any error or `nil` if the universe seems valid.
func (u Universe) Valid() error {
	if u.Galaxies <= 0 || u.Systems <= 0 || u.Positions <= 0 {
		return fmt.Errorf("%w: %dx%dx%d", ErrInvalidUniverse, u.Galaxies, u.Systems, u.Positions)
	}
	if u.FleetSpeed <= 0.0 {
		return fmt.Errorf("%w: fleet speed %f", ErrInvalidUniverse, u.FleetSpeed)
	}
	if u.MaxPlanets <= 0 {
		return fmt.Errorf("%w: at most %d planet(s)", ErrInvalidUniverse, u.MaxPlanets)
	}

	return nil
}

// Contains :
// Returns whether the coordinates lie in the universe.
func (u Universe) Contains(c model.Coordinate) bool {
	return c.Valid(u.Galaxies, u.Systems, u.Positions)
}

// PlanetsAllowed :
// Returns the number of planets a player with the input
// level of astrophysics can own. A new colony is granted
// every two levels starting at the first one:
//
// +-------+---------+
// | Level | Planets |
// +-------+---------+
// |   0   |    1    |
// |  1-2  |    2    |
// |  3-4  |    3    |
// +-------+---------+
func (u Universe) PlanetsAllowed(astrophysics int) int {
	allowed := 1
	if astrophysics > 0 {
		allowed = 2 + (astrophysics-1)/2
	}

	if allowed > u.MaxPlanets {
		allowed = u.MaxPlanets
	}

	return allowed
}
