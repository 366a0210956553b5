package fleet

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
)

// Plan :
// Characteristics of a trip computed when a fleet is sent.
//
// The `Distance` is the distance between the origin and
// the target of the fleet.
//
// The `Speed` is the speed of the slowest ship.
//
// The `Duration` is the time needed to reach the target.
//
// The `Fuel` is the deuterium consumed by the trip.
//
// The `Capacity` is the cargo space of the ships. It must
// hold both the cargo and the fuel.
type Plan struct {
	Distance int           `json:"distance"`
	Speed    int64         `json:"speed"`
	Duration time.Duration `json:"duration"`
	Fuel     int64         `json:"fuel"`
	Capacity int64         `json:"capacity"`
}

// ValidThrottle :
// Returns whether the throttle is a percentage of the
// maximum speed allowed: a multiple of `10` in `[10; 100]`.
func ValidThrottle(throttle int) bool {
	return throttle >= 10 && throttle <= 100 && throttle%10 == 0
}

// Duration :
// Computes the duration of a trip over the distance at the
// input speed. The throttle is expressed in percent and the
// `fleetSpeed` of the universe divides the result which is
// at least one second.
func Duration(distance int, speed int64, throttle int, fleetSpeed float64) time.Duration {
	if speed <= 0 || throttle <= 0 || fleetSpeed <= 0.0 {
		return time.Second
	}

	ratio := float64(throttle) / 10.0
	secs := 35000.0/ratio*math.Sqrt(float64(distance)*10.0/float64(speed)) + 10.0
	secs = math.Round(secs / fleetSpeed)

	if secs < 1.0 {
		secs = 1.0
	}

	return time.Duration(secs) * time.Second
}

// shipPropulsion :
// Effective speed and consumption of a kind of ship.
type shipPropulsion struct {
	id          string
	count       int
	speed       int64
	consumption int64
}

// propulsions :
// Computes the propulsion of each kind of ship of the
// roster, sorted by identifier.
func propulsions(c *catalog.Catalog, ships map[string]int, technologies map[string]int) ([]shipPropulsion, error) {
	out := make([]shipPropulsion, 0, len(ships))

	for id, count := range ships {
		if count <= 0 {
			continue
		}

		speed, consumption, err := c.Propulsion(id, technologies)
		if err != nil {
			return nil, err
		}
		if speed <= 0 {
			return nil, fmt.Errorf("%w: \"%s\" cannot travel", model.ErrInvalidElementKind, id)
		}

		out = append(out, shipPropulsion{id: id, count: count, speed: speed, consumption: consumption})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].id < out[j].id
	})

	return out, nil
}

// fuel :
// Computes the deuterium consumed by each kind of ship for
// a trip of the input duration. Ships faster than the fleet
// travel below their maximum speed and consume less.
func fuel(props []shipPropulsion, distance int, duration time.Duration, fleetSpeed float64) int64 {
	travel := duration.Seconds()*fleetSpeed - 10.0
	if travel < 1.0 {
		travel = 1.0
	}

	d := float64(distance)

	var total float64
	for _, p := range props {
		spd := 35000.0 / travel * math.Sqrt(d*10.0/float64(p.speed))
		total += float64(p.consumption*int64(p.count)) * d / 35000.0 * math.Pow(spd/10.0+1.0, 2.0)
	}

	return int64(math.Round(total)) + 1
}

// NewPlan :
// Computes the characteristics of a trip of the ships from
// the origin to the target at the input throttle.
//
// Returns the plan along with any error if a ship of the
// roster cannot travel.
func NewPlan(c *catalog.Catalog, ships map[string]int, technologies map[string]int, from model.Coordinate, to model.Coordinate, throttle int, fleetSpeed float64) (Plan, error) {
	props, err := propulsions(c, ships, technologies)
	if err != nil {
		return Plan{}, err
	}
	if len(props) == 0 {
		return Plan{}, model.ErrEmptyFleet
	}

	plan := Plan{
		Distance: from.DistanceTo(to),
		Speed:    math.MaxInt64,
		Capacity: c.CargoCapacity(ships),
	}

	for _, p := range props {
		if p.speed < plan.Speed {
			plan.Speed = p.speed
		}
	}

	plan.Duration = Duration(plan.Distance, plan.Speed, throttle, fleetSpeed)
	plan.Fuel = fuel(props, plan.Distance, plan.Duration, fleetSpeed)

	return plan, nil
}
