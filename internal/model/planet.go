package model

import "time"

// Energy :
// Balance of the energy of a planet.
//
// The `Produced` is the energy generated by the plants.
//
// The `Consumed` is the energy required by the mines to run
// at full capacity.
type Energy struct {
	Produced int64 `json:"produced"`
	Consumed int64 `json:"consumed"`
}

// Planet :
// Defines a planet owned by a player. It holds the levels
// of the buildings, the ships and defenses stationed on it
// and the stock of resources which is rolled forward every
// time the planet is read or modified.
//
// The `Temperature` is the maximum temperature of the planet
// in degrees. It influences the production of deuterium.
//
// The `FieldsUsed` and `FieldsMax` describe the building
// capacity of the planet. Each level of a building uses a
// field, except for storage buildings.
//
// The `Resources` is the stock as of `LastUpdate`.
//
// The `Carry` holds, for each resource, the fraction of unit
// produced but not yet credited. It is expressed in unit by
// millisecond per hour so that accrual stays exact.
//
// The `Production` is the hourly production computed during
// the last accrual.
//
// The `Storage` is the capacity computed during the last
// accrual.
//
// The `LastUpdate` is the instant up to which the stock was
// rolled forward. It never moves backwards.
type Planet struct {
	ID          string         `json:"id"`
	Owner       string         `json:"owner"`
	Name        string         `json:"name"`
	Coordinates Coordinate     `json:"coordinates"`
	Temperature int            `json:"temperature"`
	Diameter    int            `json:"diameter"`
	FieldsUsed  int            `json:"fields_used"`
	FieldsMax   int            `json:"fields_max"`
	Buildings   map[string]int `json:"buildings"`
	Ships       map[string]int `json:"ships"`
	Defenses    map[string]int `json:"defenses"`
	Resources   Resources      `json:"resources"`
	Carry       Resources      `json:"carry"`
	Production  Resources      `json:"production"`
	Storage     Resources      `json:"storage"`
	Energy      Energy         `json:"energy"`
	LastUpdate  time.Time      `json:"last_update"`
}

// Level :
// Returns the level of the building on this planet, `0`
// when it was never built.
func (p *Planet) Level(building string) int {
	return p.Buildings[building]
}

// RemainingFields :
// Returns the number of fields still available.
func (p *Planet) RemainingFields() int {
	remaining := p.FieldsMax - p.FieldsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AddShips :
// Merges the input roster into the ships of the planet.
func (p *Planet) AddShips(ships map[string]int) {
	if p.Ships == nil {
		p.Ships = make(map[string]int)
	}
	for id, count := range ships {
		if count > 0 {
			p.Ships[id] += count
		}
	}
}

// Clone :
// Returns a deep copy of the planet.
func (p Planet) Clone() Planet {
	p.Buildings = cloneCounts(p.Buildings)
	p.Ships = cloneCounts(p.Ships)
	p.Defenses = cloneCounts(p.Defenses)
	return p
}

// cloneCounts :
// Copies a map of counts, never returning `nil`.
func cloneCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// CountUnits :
// Returns the sum of the counts of the roster.
func CountUnits(roster map[string]int) int {
	total := 0
	for _, c := range roster {
		total += c
	}
	return total
}
