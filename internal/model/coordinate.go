package model

import (
	"fmt"
	"math"
)

// Coordinate :
// Defines what is a coordinate in the game. It allows to
// locate a planet within its universe, galaxy, and finally
// its solar system. All the components start at `1`.
//
// The `Galaxy` defines the position of the planet within the
// universe.
//
// The `System` defines the position of the solar system that
// contains the planet within the galaxy.
//
// The `Position` defines the position of the planet within
// its solar system.
type Coordinate struct {
	Galaxy   int `json:"galaxy"`
	System   int `json:"system"`
	Position int `json:"position"`
}

// NewCoordinate :
// Used to create a new coordinate object from the input data.
// No controls are performed to verify that the input coords
// are actually consistent with anything.
func NewCoordinate(galaxy int, system int, position int) Coordinate {
	return Coordinate{
		Galaxy:   galaxy,
		System:   system,
		Position: position,
	}
}

// String :
// Implementation of the stringer interface for a coord.
func (c Coordinate) String() string {
	return fmt.Sprintf("[%d:%d:%d]", c.Galaxy, c.System, c.Position)
}

// Seed :
// Used to generate a seed from the coordinates defined by
// this object, as a semi-procedural way to derive planet
// properties from their position. We use the Cantor's
// pairing function twice in a row:
// https://en.wikipedia.org/wiki/Pairing_function
//
// Returns the generated seed.
func (c Coordinate) Seed() int64 {
	k1 := (c.Position+c.System)*(c.Position+c.System+1)/2 + c.System
	return int64((k1+c.Galaxy)*(k1+c.Galaxy+1)/2 + c.Galaxy)
}

// Valid :
// Used to determine whether this set of coordinates lies in
// a universe with the provided dimensions.
//
// The `galaxies` defines the maximum number of galaxies.
//
// The `systems` defines how many solar systems exist in each
// galaxy.
//
// The `positions` defines how many planets can be found in
// each solar system.
//
// Returns `true` if the coordinate is valid.
func (c Coordinate) Valid(galaxies int, systems int, positions int) bool {
	return c.Galaxy >= 1 && c.Galaxy <= galaxies &&
		c.System >= 1 && c.System <= systems &&
		c.Position >= 1 && c.Position <= positions
}

// DistanceTo :
// Used to compute the distance from this position to the
// other provided as input. Note that the concept of a
// distance is specific to the game and is not euclidean:
// it is tiered by the first component which differs.
// https://ogame.fandom.com/wiki/Talk:Fuel_Consumption
//
// Returns the distance between the two coordinates.
func (c Coordinate) DistanceTo(other Coordinate) int {
	if c.Galaxy != other.Galaxy {
		return 20000 * absInt(c.Galaxy-other.Galaxy)
	}

	if c.System != other.System {
		return 2700 + 95*absInt(c.System-other.System)
	}

	if c.Position != other.Position {
		return 1000 + 5*absInt(c.Position-other.Position)
	}

	// Within the same position the distance is fixed.
	return 5
}

func absInt(v int) int {
	return int(math.Abs(float64(v)))
}
