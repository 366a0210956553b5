package accrual

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAccrue_MetalMineLevel5(t *testing.T) {
	c := catalog.Default()
	cfg := DefaultConfig()

	in := Input{
		Buildings:   map[string]int{catalog.MetalMine: 5, catalog.SolarPlant: 5},
		Temperature: 20,
	}

	res := Accrue(c, in, epoch, epoch.Add(time.Hour), cfg)

	mine := c.Output(map[string]int{catalog.MetalMine: 5}, 20, nil).Metal
	expected := int64(math.Floor(mine + 30.0))

	if expected != 271 {
		t.Fatalf("Unexpected level 5 hourly rate %d", expected)
	}
	if res.Rates.Metal != expected {
		t.Fatalf("Expected rate %d, got %d", expected, res.Rates.Metal)
	}
	if res.Stock.Metal != expected {
		t.Fatalf("Expected stock %d, got %d", expected, res.Stock.Metal)
	}
	if res.Carry.Metal != 0 {
		t.Fatalf("Expected no carry after a full hour, got %d", res.Carry.Metal)
	}
	if !res.LastUpdate.Equal(epoch.Add(time.Hour)) {
		t.Fatalf("Unexpected last update %v", res.LastUpdate)
	}
	if res.Energy.Produced < res.Energy.Consumed {
		t.Fatalf("Expected full energy, got %+v", res.Energy)
	}
}

func TestAccrue_MultipliersAndCap(t *testing.T) {
	c := catalog.Default()
	cfg := DefaultConfig()
	cfg.Speed = 2.0
	cfg.ResourceMultiplier = 1.5

	in := Input{Buildings: map[string]int{}}

	res := Accrue(c, in, epoch, epoch.Add(time.Hour), cfg)
	if res.Rates.Metal != 90 || res.Rates.Crystal != 45 || res.Rates.Deuterium != 0 {
		t.Fatalf("Unexpected rates %+v", res.Rates)
	}

	res = Accrue(c, in, epoch, epoch.Add(1000*time.Hour), cfg)
	if res.Stock.Metal != 10000 || res.Stock.Crystal != 10000 {
		t.Fatalf("Expected stock capped at 10000, got %+v", res.Stock)
	}
	if res.Carry.Metal != 0 {
		t.Fatalf("Expected carry reset at cap, got %d", res.Carry.Metal)
	}
}

func TestAccrue_StockAboveCapIsClamped(t *testing.T) {
	c := catalog.Default()

	in := Input{
		Buildings: map[string]int{},
		Stock:     model.Resources{Metal: 50000, Crystal: 10, Deuterium: 10001},
		Carry:     model.Resources{Metal: 1234},
	}

	for _, elapsed := range []time.Duration{0, time.Second, time.Hour} {
		res := Accrue(c, in, epoch, epoch.Add(elapsed), DefaultConfig())

		if res.Stock.Metal != res.Capacity.Metal || res.Carry.Metal != 0 {
			t.Fatalf("After %v: expected metal clamped to %d, got %d", elapsed, res.Capacity.Metal, res.Stock.Metal)
		}
		if res.Stock.Deuterium != res.Capacity.Deuterium {
			t.Fatalf("After %v: expected deuterium clamped to %d, got %d", elapsed, res.Capacity.Deuterium, res.Stock.Deuterium)
		}
		if res.Stock.Crystal < 10 || res.Stock.Crystal > res.Capacity.Crystal {
			t.Fatalf("After %v: crystal out of bounds, got %d", elapsed, res.Stock.Crystal)
		}
	}

	res := Accrue(c, in, epoch, epoch.Add(time.Hour), DefaultConfig())
	if res.Stock.Crystal != 25 {
		t.Fatalf("Expected crystal to grow, got %d", res.Stock.Crystal)
	}
}

func TestAccrue_OverflowFactor(t *testing.T) {
	c := catalog.Default()
	cfg := DefaultConfig()
	cfg.StorageOverflow = 1.1

	res := Accrue(c, Input{Buildings: map[string]int{}}, epoch, epoch.Add(10000*time.Hour), cfg)
	if res.Capacity.Metal != 11000 || res.Stock.Metal != 11000 {
		t.Fatalf("Expected cap of 11000, got %+v / %+v", res.Capacity, res.Stock)
	}
}

func TestAccrue_ZeroAndNegativeElapsed(t *testing.T) {
	c := catalog.Default()

	in := Input{
		Buildings: map[string]int{catalog.MetalMine: 10},
		Stock:     model.Resources{Metal: 1234, Crystal: 56, Deuterium: 7},
		Carry:     model.Resources{Metal: 1000},
	}

	for _, to := range []time.Time{epoch, epoch.Add(-time.Hour)} {
		res := Accrue(c, in, epoch, to, DefaultConfig())
		if res.Stock != in.Stock || res.Carry != in.Carry {
			t.Fatalf("Expected unchanged stock, got %+v / %+v", res.Stock, res.Carry)
		}
		if !res.LastUpdate.Equal(epoch) {
			t.Fatalf("Last update moved to %v", res.LastUpdate)
		}
	}
}

func TestAccrue_Efficiency(t *testing.T) {
	c := catalog.Default()
	cfg := DefaultConfig()
	cfg.PassiveIncome = model.Resources{}

	in := Input{Buildings: map[string]int{catalog.MetalMine: 10}}

	res := Accrue(c, in, epoch, epoch.Add(time.Hour), cfg)
	if res.Rates.Metal != 0 || res.Energy.Produced != 0 {
		t.Fatalf("Mine without energy should not produce, got %+v", res.Rates)
	}

	in.Buildings[catalog.SolarPlant] = 5
	out := c.Output(in.Buildings, 0, nil)
	expected := int64(math.Floor(out.Metal * (out.EnergyProduced / out.EnergyConsumed)))

	res = Accrue(c, in, epoch, epoch.Add(time.Hour), cfg)
	if res.Rates.Metal != expected {
		t.Fatalf("Expected reduced rate %d, got %d", expected, res.Rates.Metal)
	}
}

func TestAccrue_Composition(t *testing.T) {
	c := catalog.Default()
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(7))

	in := Input{
		Buildings:   map[string]int{catalog.MetalMine: 7, catalog.CrystalMine: 5, catalog.DeuteriumSynthesizer: 3, catalog.SolarPlant: 9},
		Temperature: -12,
	}

	for i := 0; i < 50; i++ {
		total := time.Duration(rng.Int63n(int64(5*time.Hour))) + time.Millisecond
		split := time.Duration(rng.Int63n(int64(total)))

		direct := Accrue(c, in, epoch, epoch.Add(total), cfg)

		first := Accrue(c, in, epoch, epoch.Add(split), cfg)
		next := in
		next.Stock, next.Carry = first.Stock, first.Carry
		second := Accrue(c, next, first.LastUpdate, epoch.Add(total), cfg)

		if direct.Stock != second.Stock || direct.Carry != second.Carry {
			t.Fatalf("Split at %v of %v: %+v/%+v != %+v/%+v", split, total, direct.Stock, direct.Carry, second.Stock, second.Carry)
		}
	}
}

func TestAccrue_BoundsProperty(t *testing.T) {
	c := catalog.Default()
	cfg := DefaultConfig()
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 100; i++ {
		in := Input{
			Buildings: map[string]int{
				catalog.MetalMine:  rng.Intn(20),
				catalog.SolarPlant: rng.Intn(20),
				"metal_storage":    rng.Intn(5),
			},
			Stock: model.Resources{Metal: rng.Int63n(200000)},
		}

		res := Accrue(c, in, epoch, epoch.Add(time.Duration(rng.Int63n(int64(48*time.Hour)))), cfg)

		if res.Stock.Metal < 0 || res.Rates.Metal < 0 {
			t.Fatalf("Negative values %+v", res)
		}
		if res.Stock.Metal > res.Capacity.Metal {
			t.Fatalf("Stock %d exceeds cap %d", res.Stock.Metal, res.Capacity.Metal)
		}
		if res.Stock.Metal < min(in.Stock.Metal, res.Capacity.Metal) {
			t.Fatalf("Stock decreased from %d to %d", in.Stock.Metal, res.Stock.Metal)
		}
	}
}

func TestAccrue_FusionConsumesDeuterium(t *testing.T) {
	c := catalog.Default()
	cfg := DefaultConfig()

	in := Input{
		Buildings:   map[string]int{catalog.FusionReactor: 10},
		Temperature: 20,
	}

	res := Accrue(c, in, epoch, epoch.Add(time.Hour), cfg)
	if res.Rates.Deuterium != 0 {
		t.Fatalf("Deuterium rate should be clamped at zero, got %d", res.Rates.Deuterium)
	}
	if res.Energy.Produced == 0 {
		t.Fatalf("Expected energy to be produced")
	}
}

func TestRefresh(t *testing.T) {
	c := catalog.Default()

	p := model.Planet{
		Buildings:  map[string]int{},
		LastUpdate: epoch,
	}

	Refresh(c, &p, nil, epoch.Add(30*time.Minute), DefaultConfig())

	if p.Resources.Metal != 15 || p.Resources.Crystal != 7 {
		t.Fatalf("Unexpected stock %+v", p.Resources)
	}
	if p.Carry.Crystal != 1800000 {
		t.Fatalf("Unexpected carry %+v", p.Carry)
	}
	if p.Production.Metal != 30 || p.Storage.Metal != 10000 {
		t.Fatalf("Unexpected production %+v or storage %+v", p.Production, p.Storage)
	}

	Refresh(c, &p, nil, epoch.Add(time.Hour), DefaultConfig())
	if p.Resources.Crystal != 15 || p.Carry.Crystal != 0 {
		t.Fatalf("Unexpected stock %+v / %+v", p.Resources, p.Carry)
	}
}
