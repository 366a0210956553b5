package catalog

import (
	"errors"
	"math"
	"testing"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
)

func TestDefault_Parses(t *testing.T) {
	c := Default()

	for _, kind := range []Kind{BuildingKind, TechnologyKind, ShipKind, DefenseKind} {
		if len(c.Elements(kind)) == 0 {
			t.Errorf("Expected elements of kind %s", kind)
		}
	}

	elem, ok := c.Element(MetalMine)
	if !ok || elem.Kind != BuildingKind || elem.Name != "Metal Mine" {
		t.Fatalf("Unexpected metal mine %+v", elem)
	}
}

func TestParse_RejectsUnknownRequirement(t *testing.T) {
	data := []byte(`
buildings:
  mine:
    cost: { metal: 10 }
    factor: 1.5
    requirements:
      - { building: missing, level: 1 }
`)

	_, err := Parse(data)
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("Expected invalid catalog, got %v", err)
	}
}

func TestParse_RejectsAmbiguousRequirement(t *testing.T) {
	data := []byte(`
buildings:
  lab:
    cost: { metal: 10 }
    factor: 2
  mine:
    cost: { metal: 10 }
    factor: 1.5
    requirements:
      - { building: lab, technology: lab, level: 1 }
`)

	_, err := Parse(data)
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("Expected invalid catalog, got %v", err)
	}
}

func TestParse_RejectsRequirementOfWrongKind(t *testing.T) {
	data := []byte(`
buildings:
  lab:
    cost: { metal: 10 }
    factor: 2
  mine:
    cost: { metal: 10 }
    factor: 1.5
    requirements:
      - { technology: lab, level: 1 }
`)

	_, err := Parse(data)
	if !errors.Is(err, ErrInvalidCatalog) {
		t.Fatalf("Expected invalid catalog, got %v", err)
	}
}

func TestCost_Progressive(t *testing.T) {
	c := Default()

	tests := []struct {
		level    int
		expected model.Resources
	}{
		{0, model.Resources{Metal: 60, Crystal: 15}},
		{1, model.Resources{Metal: 90, Crystal: 22}},
		{5, model.Resources{Metal: 455, Crystal: 113}},
		{-2, model.Resources{Metal: 60, Crystal: 15}},
	}

	for _, test := range tests {
		cost, err := c.Cost(MetalMine, test.level)
		if err != nil {
			t.Fatalf("Unexpected error %v", err)
		}
		if cost != test.expected {
			t.Errorf("Level %d: expected %+v, got %+v", test.level, test.expected, cost)
		}
	}
}

func TestCost_Units(t *testing.T) {
	c := Default()

	cost, err := c.Cost("light_fighter", 3)
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	expected := model.Resources{Metal: 9000, Crystal: 3000}
	if cost != expected {
		t.Fatalf("Expected %+v, got %+v", expected, cost)
	}
}

func TestCost_UnitsOverflow(t *testing.T) {
	c := Default()

	_, err := c.Cost("light_fighter", 1<<62)
	if !errors.Is(err, model.ErrInvalidAmount) {
		t.Fatalf("Expected %v, got %v", model.ErrInvalidAmount, err)
	}

	// 3000 * n stays below the int64 limit.
	n := int(math.MaxInt64 / 3000)
	cost, err := c.Cost("light_fighter", n)
	if err != nil || cost.Metal != 3000*int64(n) {
		t.Fatalf("Unexpected cost %+v (err: %v)", cost, err)
	}
}

func TestCost_UnknownElement(t *testing.T) {
	c := Default()

	_, err := c.Cost("death_star", 1)
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestBuildTime(t *testing.T) {
	c := Default()

	tests := []struct {
		name       string
		id         string
		n          int
		facilities Facilities
		expected   float64
	}{
		{"mine", MetalMine, 0, Facilities{}, 108.0},
		{"mine with robotics", MetalMine, 0, Facilities{Robotics: 2}, 36.0},
		{"mine with nanite", MetalMine, 0, Facilities{Nanite: 1}, 54.0},
		{"research", EnergyTechnology, 0, Facilities{Lab: 1}, 1440.0},
		{"ships", "light_fighter", 2, Facilities{Shipyard: 3}, 2880.0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := c.BuildTime(test.id, test.n, test.facilities)
			if err != nil {
				t.Fatalf("Unexpected error %v", err)
			}
			if math.Abs(got-test.expected) > 1e-6 {
				t.Fatalf("Expected %f, got %f", test.expected, got)
			}
		})
	}
}

func TestRequirementsMet(t *testing.T) {
	c := Default()

	ok, missing := c.RequirementsMet(Shipyard, map[string]int{RoboticsFactory: 1}, nil)
	if ok || len(missing) != 1 || missing[0] != Building(RoboticsFactory, 2) {
		t.Fatalf("Unexpected result %v %v", ok, missing)
	}

	ok, missing = c.RequirementsMet(Shipyard, map[string]int{RoboticsFactory: 2}, nil)
	if !ok || len(missing) != 0 {
		t.Fatalf("Unexpected result %v %v", ok, missing)
	}

	ok, missing = c.RequirementsMet(FusionReactor, map[string]int{DeuteriumSynthesizer: 5}, map[string]int{EnergyTechnology: 2})
	if ok || len(missing) != 1 || missing[0] != Technology(EnergyTechnology, 3) {
		t.Fatalf("Unexpected result %v %v", ok, missing)
	}

	ok, _ = c.RequirementsMet("unknown", nil, nil)
	if ok {
		t.Fatalf("Unknown element should not be available")
	}
}

func TestOutput_MetalMine(t *testing.T) {
	c := Default()

	out := c.Output(map[string]int{MetalMine: 5}, 20, nil)

	expected := 30.0 * 5.0 * math.Pow(1.1, 5.0)
	if math.Abs(out.Metal-expected) > 1e-9 {
		t.Fatalf("Expected %f metal, got %f", expected, out.Metal)
	}

	expected = 10.0 * 5.0 * math.Pow(1.1, 5.0)
	if math.Abs(out.EnergyConsumed-expected) > 1e-9 {
		t.Fatalf("Expected %f energy consumed, got %f", expected, out.EnergyConsumed)
	}
	if out.EnergyProduced != 0.0 {
		t.Fatalf("Expected no energy produced, got %f", out.EnergyProduced)
	}
}

func TestOutput_TemperatureAndBonus(t *testing.T) {
	c := Default()

	out := c.Output(map[string]int{DeuteriumSynthesizer: 2, FusionReactor: 1}, 40, map[string]int{EnergyTechnology: 3})

	deut := (1.44 - 0.004*40.0) * 10.0 * 2.0 * math.Pow(1.1, 2.0)
	if math.Abs(out.Deuterium-deut) > 1e-9 {
		t.Fatalf("Expected %f deuterium, got %f", deut, out.Deuterium)
	}

	energy := 30.0 * math.Pow(1.05+0.03, 1.0)
	if math.Abs(out.EnergyProduced-energy) > 1e-9 {
		t.Fatalf("Expected %f energy, got %f", energy, out.EnergyProduced)
	}

	if math.Abs(out.DeuteriumUse-11.0) > 1e-9 {
		t.Fatalf("Expected 11 deuterium used, got %f", out.DeuteriumUse)
	}
}

func TestStorageCapacity(t *testing.T) {
	c := Default()

	capacity := c.StorageCapacity(map[string]int{"metal_storage": 1, "crystal_storage": 2})

	expected := model.Resources{Metal: 20000, Crystal: 40000, Deuterium: 10000}
	if capacity != expected {
		t.Fatalf("Expected %+v, got %+v", expected, capacity)
	}
}

func TestUsesFields(t *testing.T) {
	c := Default()

	if !c.UsesFields(MetalMine) {
		t.Errorf("Metal mine should use fields")
	}
	if c.UsesFields("metal_storage") {
		t.Errorf("Storage should be exempt")
	}
	if c.UsesFields(EnergyTechnology) {
		t.Errorf("Technologies do not use fields")
	}
}

func TestPropulsion(t *testing.T) {
	c := Default()

	tests := []struct {
		name        string
		techs       map[string]int
		speed       int64
		consumption int64
	}{
		{"base", nil, 5000, 10},
		{"combustion", map[string]int{"combustion_drive": 3}, 6500, 10},
		{"impulse upgrade", map[string]int{"combustion_drive": 3, "impulse_drive": 5}, 20000, 20},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			speed, consumption, err := c.Propulsion("small_cargo", test.techs)
			if err != nil {
				t.Fatalf("Unexpected error %v", err)
			}
			if speed != test.speed || consumption != test.consumption {
				t.Fatalf("Expected %d/%d, got %d/%d", test.speed, test.consumption, speed, consumption)
			}
		})
	}

	if _, _, err := c.Propulsion("rocket_launcher", nil); !errors.Is(err, model.ErrInvalidElementKind) {
		t.Fatalf("Expected invalid kind, got %v", err)
	}
}

func TestUnits(t *testing.T) {
	c := Default()

	unit, err := c.Unit("cruiser")
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	if unit.Hull != 2700.0 {
		t.Fatalf("Expected hull 2700, got %f", unit.Hull)
	}

	if r := c.RapidFire("cruiser", "light_fighter"); r != 6 {
		t.Fatalf("Expected rapid fire 6, got %d", r)
	}
	if r := c.RapidFire("cruiser", "battleship"); r != 1 {
		t.Fatalf("Expected no rapid fire, got %d", r)
	}

	capacity := c.CargoCapacity(map[string]int{"small_cargo": 2, "large_cargo": 1})
	if capacity != 35000 {
		t.Fatalf("Expected capacity 35000, got %d", capacity)
	}

	colony, _ := c.Unit("colony_ship")
	recycler, _ := c.Unit("recycler")
	if !colony.Colonizer || !recycler.Harvester {
		t.Fatalf("Unexpected flags")
	}
}
