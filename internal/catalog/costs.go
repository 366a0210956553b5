package catalog

import (
	"fmt"
	"math"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
)

// Facilities :
// Levels of the buildings shortening the construction
// times on a planet.
type Facilities struct {
	Robotics int
	Nanite   int
	Shipyard int
	Lab      int
}

// FacilitiesOf :
// Extracts the facilities from the levels of buildings of
// a planet.
func FacilitiesOf(buildings map[string]int) Facilities {
	return Facilities{
		Robotics: buildings[RoboticsFactory],
		Nanite:   buildings[NaniteFactory],
		Shipyard: buildings[Shipyard],
		Lab:      buildings[ResearchLab],
	}
}

// progressCost :
// Computes `floor(init * factor ^ level)` for each of the
// resources. The level is clamped to be positive.
func progressCost(init model.Resources, factor float64, level int) model.Resources {
	fLevel := math.Max(0.0, float64(level))
	scale := math.Pow(factor, fLevel)

	return model.Resources{
		Metal:     int64(math.Floor(float64(init.Metal) * scale)),
		Crystal:   int64(math.Floor(float64(init.Crystal) * scale)),
		Deuterium: int64(math.Floor(float64(init.Deuterium) * scale)),
	}
}

// Cost :
// Computes the price of an element.
//
// For buildings and technologies `n` is the level already
// reached: the result is the price of reaching `n + 1`.
//
// For ships and defenses `n` is the number of units and the
// result is the unit price multiplied by this amount.
//
// Returns the cost along with a validation error if the
// element does not exist or if the amount is so large that
// the price cannot be represented.
func (c *Catalog) Cost(id string, n int) (model.Resources, error) {
	elem, ok := c.elements[id]
	if !ok {
		return model.Resources{}, fmt.Errorf("%w: \"%s\"", model.ErrUnknownElement, id)
	}

	if elem.Progressive() {
		return progressCost(elem.Cost, elem.Factor, n), nil
	}

	if n < 0 {
		n = 0
	}

	if highest := max(elem.Cost.Metal, elem.Cost.Crystal, elem.Cost.Deuterium); highest > 0 && int64(n) > math.MaxInt64/highest {
		return model.Resources{}, fmt.Errorf("%w: %d \"%s\" cannot be priced", model.ErrInvalidAmount, n, id)
	}

	return elem.Cost.Multiply(int64(n)), nil
}

// BuildTime :
// Computes the time in seconds needed to build an element
// at normal game speed. The meaning of `n` is the same as
// for `Cost`.
//
// Buildings take `(m + c) / (2500 * (1 + robotics) * 2^nanite)`
// hours, technologies `(m + c) / (1000 * (1 + lab))` hours
// and units `(m + c) / (2500 * (1 + shipyard) * 2^nanite)`
// hours each.
//
// Returns the duration along with any error.
func (c *Catalog) BuildTime(id string, n int, facilities Facilities) (float64, error) {
	cost, err := c.Cost(id, n)
	if err != nil {
		return 0.0, err
	}

	elem := c.elements[id]
	price := float64(cost.Metal + cost.Crystal)
	nanite := math.Pow(2.0, float64(facilities.Nanite))

	var hours float64
	switch elem.Kind {
	case BuildingKind:
		hours = price / (2500.0 * float64(1+facilities.Robotics) * nanite)
	case TechnologyKind:
		hours = price / (1000.0 * float64(1+facilities.Lab))
	default:
		hours = price / (2500.0 * float64(1+facilities.Shipyard) * nanite)
	}

	return hours * 3600.0, nil
}
