package catalog

import (
	"fmt"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
)

// DriveUpgrade :
// Switches the propulsion of a ship once the player has
// researched a drive up to a certain level.
type DriveUpgrade struct {
	Drive       string `yaml:"drive" json:"drive"`
	Level       int    `yaml:"level" json:"level"`
	Speed       int64  `yaml:"speed" json:"speed"`
	Consumption int64  `yaml:"consumption" json:"consumption"`
}

// UnitStats :
// Combat and propulsion statistics of a ship or a defense.
//
// The `Hull` is derived from the cost of the unit as one
// tenth of its metal and crystal price.
//
// The `Speed`, `Consumption`, `Drive`, `Upgrades` and
// `Cargo` are only relevant for ships.
//
// The `RapidFire` associates target identifiers to the
// rapid fire value of this unit against them.
//
// The `Colonizer` marks ships able to found a colony and
// `Harvester` ships able to collect debris fields.
type UnitStats struct {
	Hull        float64        `yaml:"-" json:"hull"`
	Shield      float64        `yaml:"shield" json:"shield"`
	Weapon      float64        `yaml:"weapon" json:"weapon"`
	Cargo       int64          `yaml:"cargo" json:"cargo,omitempty"`
	Speed       int64          `yaml:"speed" json:"speed,omitempty"`
	Consumption int64          `yaml:"consumption" json:"consumption,omitempty"`
	Drive       string         `yaml:"drive" json:"drive,omitempty"`
	Upgrades    []DriveUpgrade `yaml:"upgrades" json:"upgrades,omitempty"`
	RapidFire   map[string]int `yaml:"rapid_fire" json:"rapid_fire,omitempty"`
	Colonizer   bool           `yaml:"colonizer" json:"colonizer,omitempty"`
	Harvester   bool           `yaml:"harvester" json:"harvester,omitempty"`
}

// Propulsion :
// Effective speed and fuel consumption of a ship given
// the technologies of its owner: the best drive upgrade
// available is selected and its speed raised by the bonus
// of the drive for each level researched.
//
// Returns the speed and the consumption along with any
// error if the element is not a ship.
func (c *Catalog) Propulsion(id string, technologies map[string]int) (int64, int64, error) {
	elem, err := c.ElementOfKind(id, ShipKind)
	if err != nil {
		return 0, 0, err
	}

	unit := elem.Unit
	drive, speed, consumption := unit.Drive, unit.Speed, unit.Consumption

	for _, up := range unit.Upgrades {
		if technologies[up.Drive] >= up.Level {
			drive, speed = up.Drive, up.Speed
			if up.Consumption > 0 {
				consumption = up.Consumption
			}
		}
	}

	bonus := 1.0 + c.drives[drive]*float64(technologies[drive])

	return int64(float64(speed) * bonus), consumption, nil
}

// Unit :
// Returns the statistics of a ship or a defense.
func (c *Catalog) Unit(id string) (*UnitStats, error) {
	elem, err := c.ElementOfKind(id, ShipKind, DefenseKind)
	if err != nil {
		return nil, err
	}

	return elem.Unit, nil
}

// RapidFire :
// Returns the rapid fire of the shooter against the target,
// `1` when there is none.
func (c *Catalog) RapidFire(shooter string, target string) int {
	elem, ok := c.elements[shooter]
	if !ok || elem.Unit == nil {
		return 1
	}

	if r, ok := elem.Unit.RapidFire[target]; ok && r > 1 {
		return r
	}

	return 1
}

// CargoCapacity :
// Sums the cargo of the ships of a roster.
func (c *Catalog) CargoCapacity(ships map[string]int) int64 {
	var total int64
	for id, count := range ships {
		elem, ok := c.elements[id]
		if !ok || elem.Unit == nil || count <= 0 {
			continue
		}
		total += elem.Unit.Cargo * int64(count)
	}

	return total
}

// UnitsCost :
// Sums the price of the units of a roster.
func (c *Catalog) UnitsCost(roster map[string]int) (model.Resources, error) {
	var total model.Resources
	for id, count := range roster {
		cost, err := c.Cost(id, count)
		if err != nil {
			return model.Resources{}, err
		}
		total = total.Add(cost)
	}

	return total, nil
}

// IsShip :
// Returns whether the identifier is a ship.
func (c *Catalog) IsShip(id string) bool {
	elem, ok := c.elements[id]
	return ok && elem.Kind == ShipKind
}

// Describe :
// Short human readable description of an element.
func (c *Catalog) Describe(id string) string {
	elem, ok := c.elements[id]
	if !ok {
		return id
	}

	return fmt.Sprintf("%s (%s)", elem.Name, elem.Kind)
}
