package universe

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
)

func TestValid(t *testing.T) {
	if err := Default().Valid(); err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	u := Default()
	u.Systems = 0
	if err := u.Valid(); !errors.Is(err, ErrInvalidUniverse) {
		t.Fatalf("Expected invalid universe, got %v", err)
	}

	u = Default()
	u.FleetSpeed = 0.0
	if err := u.Valid(); !errors.Is(err, ErrInvalidUniverse) {
		t.Fatalf("Expected invalid universe, got %v", err)
	}
}

func TestContains(t *testing.T) {
	u := Default()

	if !u.Contains(model.NewCoordinate(9, 499, 15)) || !u.Contains(model.NewCoordinate(1, 1, 1)) {
		t.Fatalf("Bounds should be included")
	}
	if u.Contains(model.NewCoordinate(10, 1, 1)) || u.Contains(model.NewCoordinate(1, 1, 16)) || u.Contains(model.NewCoordinate(0, 1, 1)) {
		t.Fatalf("Out of bounds coordinates should be rejected")
	}
}

func TestPlanetsAllowed(t *testing.T) {
	u := Default()
	u.MaxPlanets = 4

	expected := map[int]int{0: 1, 1: 2, 2: 2, 3: 3, 4: 3, 5: 4, 9: 4}
	for level, planets := range expected {
		if got := u.PlanetsAllowed(level); got != planets {
			t.Fatalf("Level %d: expected %d planets, got %d", level, planets, got)
		}
	}
}

func TestGenerate(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for pos := 1; pos <= 15; pos++ {
		c := model.NewCoordinate(2, 37, pos)
		p := Generate("p", "u", c, now)
		s := slotOf(pos)

		if p.FieldsMax < s.minFields || p.FieldsMax > s.maxFields {
			t.Fatalf("Position %d: %d fields outside of [%d; %d]", pos, p.FieldsMax, s.minFields, s.maxFields)
		}
		if p.Temperature < s.minTemp || p.Temperature > s.maxTemp {
			t.Fatalf("Position %d: temperature %d outside of [%d; %d]", pos, p.Temperature, s.minTemp, s.maxTemp)
		}
		if p.Owner != "u" || p.Coordinates != c || !p.LastUpdate.Equal(now) || p.FieldsUsed != 0 {
			t.Fatalf("Unexpected planet %+v", p)
		}

		if again := Generate("p", "u", c, now); !reflect.DeepEqual(p, again) {
			t.Fatalf("Generation is not deterministic for %s", c)
		}
	}
}
