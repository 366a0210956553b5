package accrual

import (
	"math"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/spf13/viper"
)

// msPerHour converts hourly rates to milliseconds.
const msPerHour int64 = 3600 * 1000

// Config :
// Settings of the economy.
//
// The `Speed` is the global speed of the universe and
// scales every production rate.
// The default value is `1`.
//
// The `ResourceMultiplier` is an additional factor on the
// production, applied on top of the speed.
// The default value is `1`.
//
// The `PassiveIncome` is produced every hour by any planet
// no matter its buildings.
// The default value is 30 metal and 15 crystal.
//
// The `StorageOverflow` allows the stock to exceed the
// capacity of the storage buildings by this factor.
// The default value is `1`.
type Config struct {
	Speed              float64
	ResourceMultiplier float64
	PassiveIncome      model.Resources
	StorageOverflow    float64
}

// DefaultConfig :
// Returns the configuration with default values.
func DefaultConfig() Config {
	return Config{
		Speed:              1.0,
		ResourceMultiplier: 1.0,
		PassiveIncome:      model.Resources{Metal: 30, Crystal: 15},
		StorageOverflow:    1.0,
	}
}

// ParseConfiguration :
// Reads the `Game.Speed`, `Game.ResourceMultiplier`,
// `Game.PassiveIncome.*` and `Game.StorageOverflow` keys.
// Non positive values are replaced by the defaults.
func ParseConfiguration() Config {
	config := DefaultConfig()

	if viper.IsSet("Game.Speed") {
		config.Speed = viper.GetFloat64("Game.Speed")
	}
	if viper.IsSet("Game.ResourceMultiplier") {
		config.ResourceMultiplier = viper.GetFloat64("Game.ResourceMultiplier")
	}
	if viper.IsSet("Game.PassiveIncome.Metal") {
		config.PassiveIncome.Metal = viper.GetInt64("Game.PassiveIncome.Metal")
	}
	if viper.IsSet("Game.PassiveIncome.Crystal") {
		config.PassiveIncome.Crystal = viper.GetInt64("Game.PassiveIncome.Crystal")
	}
	if viper.IsSet("Game.PassiveIncome.Deuterium") {
		config.PassiveIncome.Deuterium = viper.GetInt64("Game.PassiveIncome.Deuterium")
	}
	if viper.IsSet("Game.StorageOverflow") {
		config.StorageOverflow = viper.GetFloat64("Game.StorageOverflow")
	}

	defaults := DefaultConfig()
	if config.Speed <= 0.0 {
		config.Speed = defaults.Speed
	}
	if config.ResourceMultiplier <= 0.0 {
		config.ResourceMultiplier = defaults.ResourceMultiplier
	}
	if config.StorageOverflow <= 0.0 {
		config.StorageOverflow = defaults.StorageOverflow
	}
	config.PassiveIncome = config.PassiveIncome.Clamp()

	return config
}

// Input :
// State of a planet needed to roll its stock forward.
type Input struct {
	Buildings    map[string]int
	Temperature  int
	Technologies map[string]int
	Stock        model.Resources
	Carry        model.Resources
}

// Result :
// State of the planet after the accrual.
//
// The `Rates` are the hourly production used.
//
// The `Capacity` is the storage cap applied, including the
// overflow factor.
type Result struct {
	Stock      model.Resources
	Carry      model.Resources
	Rates      model.Resources
	Energy     model.Energy
	Capacity   model.Resources
	LastUpdate time.Time
}

// Rates :
// Computes the hourly production of a planet along with its
// energy balance. The output of the mines is scaled by the
// energy efficiency while the passive income is not.
func Rates(c *catalog.Catalog, in Input, cfg Config) (model.Resources, model.Energy) {
	out := c.Output(in.Buildings, in.Temperature, in.Technologies)

	efficiency := 1.0
	if out.EnergyConsumed > 0.0 {
		efficiency = math.Min(1.0, out.EnergyProduced/out.EnergyConsumed)
	}

	scale := cfg.Speed * cfg.ResourceMultiplier
	rate := func(mine float64, passive int64) int64 {
		v := math.Floor((mine + float64(passive)) * scale)
		if v < 0.0 {
			return 0
		}
		return int64(v)
	}

	rates := model.Resources{
		Metal:     rate(out.Metal*efficiency, cfg.PassiveIncome.Metal),
		Crystal:   rate(out.Crystal*efficiency, cfg.PassiveIncome.Crystal),
		Deuterium: rate(out.Deuterium*efficiency-out.DeuteriumUse, cfg.PassiveIncome.Deuterium),
	}

	energy := model.Energy{
		Produced: int64(math.Floor(out.EnergyProduced)),
		Consumed: int64(math.Floor(out.EnergyConsumed)),
	}

	return rates, energy
}

// Accrue :
// Rolls the stock of a planet forward from `from` to `to`.
// A `to` before `from` counts as no time elapsed. The gain
// is integrated in integer arithmetic with the remainder
// kept in the carry, so splitting an interval in several
// calls produces the same stock as a single call.
// Each resource ends clamped to its storage capacity, even
// when it was above it before the accrual.
//
// Returns the new state of the planet.
func Accrue(c *catalog.Catalog, in Input, from time.Time, to time.Time, cfg Config) Result {
	elapsed := to.Sub(from).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}

	rates, energy := Rates(c, in, cfg)

	capacity := c.StorageCapacity(in.Buildings)
	capacity = model.Resources{
		Metal:     int64(math.Floor(float64(capacity.Metal) * cfg.StorageOverflow)),
		Crystal:   int64(math.Floor(float64(capacity.Crystal) * cfg.StorageOverflow)),
		Deuterium: int64(math.Floor(float64(capacity.Deuterium) * cfg.StorageOverflow)),
	}

	res := Result{
		Rates:      rates,
		Energy:     energy,
		Capacity:   capacity,
		LastUpdate: from.Add(time.Duration(elapsed) * time.Millisecond),
	}

	res.Stock.Metal, res.Carry.Metal = integrate(in.Stock.Metal, in.Carry.Metal, rates.Metal, elapsed, capacity.Metal)
	res.Stock.Crystal, res.Carry.Crystal = integrate(in.Stock.Crystal, in.Carry.Crystal, rates.Crystal, elapsed, capacity.Crystal)
	res.Stock.Deuterium, res.Carry.Deuterium = integrate(in.Stock.Deuterium, in.Carry.Deuterium, rates.Deuterium, elapsed, capacity.Deuterium)

	return res
}

// integrate :
// Adds `rate * elapsed` to the stock of a single resource.
// The carry is expressed in unit by millisecond per hour.
// The stock ends clamped to the capacity, even when it was
// already above it.
func integrate(stock int64, carry int64, rate int64, elapsed int64, capacity int64) (int64, int64) {
	if stock >= capacity {
		return capacity, 0
	}

	if carry < 0 {
		carry = 0
	}

	acc := carry + rate*elapsed
	gain := acc / msPerHour
	carry = acc % msPerHour

	if stock+gain >= capacity {
		return capacity, 0
	}

	return stock + gain, carry
}

// Refresh :
// Applies `Accrue` to a planet up to `now`, updating its
// stock, carry, rates, energy, storage and update time.
func Refresh(c *catalog.Catalog, planet *model.Planet, technologies map[string]int, now time.Time, cfg Config) {
	in := Input{
		Buildings:    planet.Buildings,
		Temperature:  planet.Temperature,
		Technologies: technologies,
		Stock:        planet.Resources,
		Carry:        planet.Carry,
	}

	res := Accrue(c, in, planet.LastUpdate, now, cfg)

	planet.Resources = res.Stock
	planet.Carry = res.Carry
	planet.Production = res.Rates
	planet.Energy = res.Energy
	planet.Storage = res.Capacity
	planet.LastUpdate = res.LastUpdate
}
