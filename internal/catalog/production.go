package catalog

import (
	"math"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
)

// TemperatureRule :
// Describes how the temperature of a planet changes the
// output of a production rule: the output is multiplied
// by `offset + temperature * coeff`.
type TemperatureRule struct {
	Offset float64 `yaml:"offset" json:"offset"`
	Coeff  float64 `yaml:"coeff" json:"coeff"`
}

// TechnologyBonus :
// Raises the progression of a production rule by `step`
// for each level of a technology.
type TechnologyBonus struct {
	Technology string  `yaml:"technology" json:"technology"`
	Step       float64 `yaml:"step" json:"step"`
}

// ProductionRule :
// Defines the hourly amount of a resource produced or
// consumed by a building. The amount is computed with:
// `temp * base * level * factor ^ level` where `temp` is
// `1` unless a temperature rule is set and the factor is
// raised by the technology bonus if any.
type ProductionRule struct {
	Resource    string           `yaml:"resource" json:"resource"`
	Base        float64          `yaml:"base" json:"base"`
	Factor      float64          `yaml:"factor" json:"factor"`
	Temperature *TemperatureRule `yaml:"temperature" json:"temperature,omitempty"`
	Bonus       *TechnologyBonus `yaml:"bonus" json:"bonus,omitempty"`
}

// Compute :
// Returns the hourly amount for the level, `0` when the
// level is not strictly positive.
func (pr ProductionRule) Compute(level int, temperature int, technologies map[string]int) float64 {
	if level <= 0 {
		return 0.0
	}

	factor := pr.Factor
	if pr.Bonus != nil {
		factor += pr.Bonus.Step * float64(technologies[pr.Bonus.Technology])
	}

	tempDep := 1.0
	if pr.Temperature != nil {
		tempDep = pr.Temperature.Offset + float64(temperature)*pr.Temperature.Coeff
	}

	fLevel := float64(level)
	tempIndep := pr.Base * fLevel * math.Pow(factor, fLevel)

	return tempDep * tempIndep
}

// StorageRule :
// Capacity granted by a storage building for a resource:
// `base * floor(2.5 * e^(20 * level / 33))`.
type StorageRule struct {
	Resource string `yaml:"resource" json:"resource"`
	Base     int64  `yaml:"base" json:"base"`
}

// Capacity :
// Returns the capacity at the level.
func (sr StorageRule) Capacity(level int) int64 {
	if level < 0 {
		level = 0
	}

	factor := math.Floor(2.5 * math.Exp(20.0*float64(level)/33.0))
	return sr.Base * int64(factor)
}

// Output :
// Hourly production of the buildings of a planet, before
// the energy efficiency is applied.
//
// The `Mines` holds the output of the mines.
//
// The `DeuteriumUse` is the deuterium burnt by the plants.
//
// The `EnergyProduced` and `EnergyConsumed` are the energy
// generated by the plants and required by the mines.
type Output struct {
	Metal          float64
	Crystal        float64
	Deuterium      float64
	DeuteriumUse   float64
	EnergyProduced float64
	EnergyConsumed float64
}

// Output :
// Sums the production and consumption rules of all the
// buildings of a planet.
//
// The `buildings` are the levels of the buildings.
//
// The `temperature` is the maximum temperature of the planet.
//
// The `technologies` are the levels of its owner.
func (c *Catalog) Output(buildings map[string]int, temperature int, technologies map[string]int) Output {
	var out Output

	for _, id := range c.order {
		elem := c.elements[id]
		level := buildings[id]
		if elem.Kind != BuildingKind || level <= 0 {
			continue
		}

		for _, rule := range elem.Production {
			amount := rule.Compute(level, temperature, technologies)
			switch rule.Resource {
			case Metal:
				out.Metal += amount
			case Crystal:
				out.Crystal += amount
			case Deuterium:
				out.Deuterium += amount
			case Energy:
				out.EnergyProduced += amount
			}
		}

		for _, rule := range elem.Consumption {
			amount := rule.Compute(level, temperature, technologies)
			switch rule.Resource {
			case Deuterium:
				out.DeuteriumUse += amount
			case Energy:
				out.EnergyConsumed += amount
			}
		}
	}

	return out
}

// StorageCapacity :
// Returns the capacity of each resource given the levels
// of the buildings. Resources with a storage building get
// its capacity at level `0` even if it was never built.
func (c *Catalog) StorageCapacity(buildings map[string]int) model.Resources {
	var capacity model.Resources

	for _, id := range c.order {
		elem := c.elements[id]
		if elem.Storage == nil {
			continue
		}

		amount := elem.Storage.Capacity(buildings[id])
		switch elem.Storage.Resource {
		case Metal:
			capacity.Metal += amount
		case Crystal:
			capacity.Crystal += amount
		case Deuterium:
			capacity.Deuterium += amount
		}
	}

	return capacity
}

// UsesFields :
// Returns whether each level of the building consumes a
// field of the planet.
func (c *Catalog) UsesFields(id string) bool {
	elem, ok := c.elements[id]
	return ok && elem.Kind == BuildingKind && !elem.FieldExempt
}
