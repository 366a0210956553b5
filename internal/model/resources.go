package model

import "math"

// Resources :
// Amounts of each of the three stockpiled resources. Used
// for planet stocks, costs, cargo, loot and debris alike.
type Resources struct {
	Metal     int64 `json:"metal"`
	Crystal   int64 `json:"crystal"`
	Deuterium int64 `json:"deuterium"`
}

// Add :
// Returns the sum of both amounts.
func (r Resources) Add(other Resources) Resources {
	return Resources{
		Metal:     r.Metal + other.Metal,
		Crystal:   r.Crystal + other.Crystal,
		Deuterium: r.Deuterium + other.Deuterium,
	}
}

// Sub :
// Returns the difference of both amounts, clamped so that
// no component becomes negative.
func (r Resources) Sub(other Resources) Resources {
	return Resources{
		Metal:     nonNegative(r.Metal - other.Metal),
		Crystal:   nonNegative(r.Crystal - other.Crystal),
		Deuterium: nonNegative(r.Deuterium - other.Deuterium),
	}
}

// Covers :
// Returns `true` if every component of this amount is at
// least as large as the corresponding one of `cost`.
func (r Resources) Covers(cost Resources) bool {
	return r.Metal >= cost.Metal && r.Crystal >= cost.Crystal && r.Deuterium >= cost.Deuterium
}

// Scale :
// Multiplies each component by `ratio`, rounding down.
func (r Resources) Scale(ratio float64) Resources {
	return Resources{
		Metal:     nonNegative(int64(math.Floor(float64(r.Metal) * ratio))),
		Crystal:   nonNegative(int64(math.Floor(float64(r.Crystal) * ratio))),
		Deuterium: nonNegative(int64(math.Floor(float64(r.Deuterium) * ratio))),
	}
}

// Multiply :
// Multiplies each component by an integer factor.
func (r Resources) Multiply(factor int64) Resources {
	return Resources{
		Metal:     r.Metal * factor,
		Crystal:   r.Crystal * factor,
		Deuterium: r.Deuterium * factor,
	}
}

// Total :
// Returns the sum of the components.
func (r Resources) Total() int64 {
	return r.Metal + r.Crystal + r.Deuterium
}

// IsZero :
// Returns `true` when every component is `0`.
func (r Resources) IsZero() bool {
	return r.Metal == 0 && r.Crystal == 0 && r.Deuterium == 0
}

// Clamp :
// Makes sure no component is negative.
func (r Resources) Clamp() Resources {
	return Resources{
		Metal:     nonNegative(r.Metal),
		Crystal:   nonNegative(r.Crystal),
		Deuterium: nonNegative(r.Deuterium),
	}
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
