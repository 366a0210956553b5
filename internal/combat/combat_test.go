package combat

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/accrual"
	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/locker"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

var arrival = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func TestResolve_Deterministic(t *testing.T) {
	c := catalog.Default()

	battle := Battle{
		Attacker: Side{
			Units:        map[string]int{"light_fighter": 40, "cruiser": 5, "espionage_probe": 10},
			Technologies: map[string]int{catalog.WeaponsTechnology: 2},
		},
		Defender: Side{
			Units:        map[string]int{"rocket_launcher": 30, "light_laser": 10, "heavy_fighter": 4},
			Technologies: map[string]int{catalog.ShieldingTechnology: 1},
		},
	}

	first, err := Resolve(c, battle, 42, 6)
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := Resolve(c, battle, 42, 6)
		if err != nil {
			t.Fatalf("Unexpected error %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("Outcome differs on run %d:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestResolve_Conservation(t *testing.T) {
	c := catalog.Default()
	rng := rand.New(rand.NewSource(7))

	ships := []string{"light_fighter", "heavy_fighter", "cruiser", "small_cargo", "espionage_probe"}
	defenses := []string{"rocket_launcher", "light_laser", "heavy_laser"}

	roster := func(ids []string) map[string]int {
		out := make(map[string]int)
		for _, id := range ids {
			if n := rng.Intn(25); n > 0 {
				out[id] = n
			}
		}
		return out
	}

	for i := 0; i < 20; i++ {
		battle := Battle{
			Attacker: Side{Units: roster(ships)},
			Defender: Side{Units: merge(roster(ships), roster(defenses))},
		}

		out, err := Resolve(c, battle, rng.Int63(), 6)
		if err != nil {
			t.Fatalf("Unexpected error %v", err)
		}

		check := func(name string, initial, alive, lost map[string]int) {
			perRound := make(map[string]int)
			for _, r := range out.Rounds {
				losses := r.Attacker
				if name == "defender" {
					losses = r.Defender
				}
				for id, n := range losses {
					perRound[id] += n
				}
			}

			for id, n := range initial {
				if alive[id]+lost[id] != n {
					t.Fatalf("Battle %d: %s has %d + %d \"%s\", expected %d", i, name, alive[id], lost[id], id, n)
				}
				if perRound[id] != lost[id] {
					t.Fatalf("Battle %d: %s rounds lose %d \"%s\", expected %d", i, name, perRound[id], id, lost[id])
				}
			}
		}

		check("attacker", battle.Attacker.Units, out.Attacker, out.AttackerLosses)
		check("defender", battle.Defender.Units, out.Defender, out.DefenderLosses)

		if len(out.Rounds) > 6 {
			t.Fatalf("Battle %d lasted %d rounds", i, len(out.Rounds))
		}
	}
}

func TestResolve_IdenticalRosters(t *testing.T) {
	c := catalog.Default()

	side := Side{
		Units:        map[string]int{"light_fighter": 10},
		Technologies: map[string]int{catalog.WeaponsTechnology: 1, catalog.ShieldingTechnology: 1, catalog.ArmourTechnology: 1},
	}
	battle := Battle{Attacker: side, Defender: side}

	for seed := int64(0); seed < 10; seed++ {
		out, err := Resolve(c, battle, seed, 6)
		if err != nil {
			t.Fatalf("Unexpected error %v", err)
		}

		if out.Result != model.Draw {
			t.Fatalf("Expected a draw with seed %d, got %s", seed, out.Result)
		}
		if len(out.Rounds) > 6 {
			t.Fatalf("Battle lasted %d rounds", len(out.Rounds))
		}

		again, _ := Resolve(c, battle, seed, 6)
		if !reflect.DeepEqual(out, again) {
			t.Fatalf("Seed %d yields different outcomes", seed)
		}
	}
}

func TestResolve_Outcomes(t *testing.T) {
	c := catalog.Default()

	tests := []struct {
		name     string
		attacker map[string]int
		defender map[string]int
		result   model.Outcome
		rounds   int
	}{
		{"crushing attack", map[string]int{"battleship": 50}, map[string]int{"light_fighter": 1}, model.AttackerWin, 1},
		{"crushing defense", map[string]int{"espionage_probe": 3}, map[string]int{"gauss_cannon": 50}, model.DefenderWin, 1},
		{"undefended", map[string]int{"small_cargo": 2}, map[string]int{}, model.AttackerWin, 0},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			out, err := Resolve(c, Battle{Attacker: Side{Units: test.attacker}, Defender: Side{Units: test.defender}}, 1, 6)
			if err != nil {
				t.Fatalf("Unexpected error %v", err)
			}
			if out.Result != test.result || len(out.Rounds) != test.rounds {
				t.Fatalf("Expected %s in %d rounds, got %s in %d", test.result, test.rounds, out.Result, len(out.Rounds))
			}
		})
	}
}

func TestResolve_InvalidRoster(t *testing.T) {
	c := catalog.Default()

	_, err := Resolve(c, Battle{Attacker: Side{Units: map[string]int{"death_ray": 1}}}, 1, 6)
	if !errors.Is(err, model.ErrUnknownElement) {
		t.Fatalf("Expected unknown element, got %v", err)
	}

	_, err = Resolve(c, Battle{Attacker: Side{Units: map[string]int{catalog.MetalMine: 1}}}, 1, 6)
	if !errors.Is(err, model.ErrInvalidElementKind) {
		t.Fatalf("Expected invalid kind, got %v", err)
	}

	_, err = Resolve(c, Battle{Defender: Side{Units: map[string]int{"cruiser": -1}}}, 1, 6)
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
}

func TestLoot_Bound(t *testing.T) {
	config := DefaultConfig()

	tests := []struct {
		stock    model.Resources
		capacity int64
	}{
		{model.Resources{Metal: 10000, Crystal: 10000, Deuterium: 10000}, 100000},
		{model.Resources{Metal: 10000, Crystal: 10000, Deuterium: 10000}, 5000},
		{model.Resources{Metal: 7, Crystal: 3, Deuterium: 1}, 4},
		{model.Resources{Metal: 123457, Crystal: 5, Deuterium: 99999}, 33333},
		{model.Resources{Metal: 1000}, 0},
		{model.Resources{}, 1000},
	}

	for _, test := range tests {
		loot := Loot(test.stock, config, test.capacity)
		share := test.stock.Scale(config.LootRatio)

		if !share.Covers(loot) {
			t.Fatalf("Loot %+v exceeds share %+v", loot, share)
		}
		if loot.Total() > test.capacity {
			t.Fatalf("Loot %+v exceeds capacity %d", loot, test.capacity)
		}
		if loot.Metal < 0 || loot.Crystal < 0 || loot.Deuterium < 0 {
			t.Fatalf("Negative loot %+v", loot)
		}
	}

	loot := Loot(model.Resources{Metal: 10000, Crystal: 10000, Deuterium: 10000}, config, 100000)
	if loot != (model.Resources{Metal: 5000, Crystal: 5000, Deuterium: 5000}) {
		t.Fatalf("Unexpected loot %+v", loot)
	}
}

func TestDebrisAndRepair(t *testing.T) {
	c := catalog.Default()
	config := DefaultConfig()

	debris := Debris(c, config, map[string]int{"light_fighter": 10}, map[string]int{"rocket_launcher": 10, "recycler": 1})
	expected := model.Resources{Metal: 12000, Crystal: 4800}
	if debris != expected {
		t.Fatalf("Expected %+v, got %+v", expected, debris)
	}

	config.DefenseDebrisRatio = 0.1
	debris = Debris(c, config, map[string]int{"rocket_launcher": 10})
	if debris != (model.Resources{Metal: 2000}) {
		t.Fatalf("Unexpected defense debris %+v", debris)
	}

	repaired := Repair(c, DefaultConfig(), map[string]int{"rocket_launcher": 10, "light_fighter": 4, "heavy_laser": 1})
	if !reflect.DeepEqual(repaired, map[string]int{"rocket_launcher": 7}) {
		t.Fatalf("Unexpected repairs %+v", repaired)
	}
}

func TestSeed(t *testing.T) {
	if Seed("f1", arrival) != Seed("f1", arrival) {
		t.Fatalf("Seed is not stable")
	}
	if Seed("f1", arrival) == Seed("f2", arrival) || Seed("f1", arrival) == Seed("f1", arrival.Add(time.Second)) {
		t.Fatalf("Seed does not depend on its inputs")
	}
	if Seed("f1", arrival) < 0 {
		t.Fatalf("Seed should be positive")
	}
}

func newEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()

	log := logger.NewNullLogger()
	s := store.NewMemory()
	acc := accrual.NewEngine(s, catalog.Default(), accrual.DefaultConfig(), locker.NewConcurrentLocker(log), log)

	return NewEngine(s, acc, DefaultConfig(), log), s
}

func TestResolveAttack(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	target := model.NewCoordinate(1, 2, 3)
	planet := model.Planet{
		ID:          "p2",
		Owner:       "u2",
		Coordinates: target,
		FieldsMax:   100,
		Defenses:    map[string]int{"rocket_launcher": 2},
		Resources:   model.Resources{Metal: 10000, Crystal: 10000, Deuterium: 10000},
		LastUpdate:  arrival,
	}
	ret := arrival.Add(time.Hour)
	fleet := model.Fleet{
		ID:      "f1",
		Owner:   "u1",
		Origin:  "p1",
		Target:  target,
		Mission: model.Attack,
		Ships:   map[string]int{"battleship": 50},
		Start:   arrival.Add(-time.Hour),
		Arrival: arrival,
		Return:  &ret,
		Status:  model.Traveling,
	}

	var report model.CombatReport
	err := s.Atomic(ctx, func(tx store.Tx) error {
		if err := tx.SaveUser(model.User{ID: "u1"}); err != nil {
			return err
		}
		if err := tx.SaveUser(model.User{ID: "u2"}); err != nil {
			return err
		}
		if err := tx.SavePlanet(planet); err != nil {
			return err
		}

		r, events, err := e.ResolveAttack(tx, &fleet)
		if len(events) != 2 {
			t.Errorf("Expected 2 events, got %d", len(events))
		}
		report = r
		return err
	})
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	if report.Result != model.AttackerWin || report.RoundCount != 1 {
		t.Fatalf("Unexpected report %+v", report)
	}
	if report.Loot != (model.Resources{Metal: 5000, Crystal: 5000, Deuterium: 5000}) {
		t.Fatalf("Unexpected loot %+v", report.Loot)
	}
	digest, err := Digest(report)
	if err != nil || report.Digest != digest || report.Seed != Seed("f1", arrival) {
		t.Fatalf("Unexpected fingerprint %+v", report)
	}

	if fleet.Status != model.Returning || fleet.Cargo != report.Loot || fleet.Ships["battleship"] != 50 {
		t.Fatalf("Unexpected fleet %+v", fleet)
	}

	err = s.Atomic(ctx, func(tx store.Tx) error {
		p, err := tx.Planet("p2")
		if err != nil {
			return err
		}
		if p.Resources != (model.Resources{Metal: 5000, Crystal: 5000, Deuterium: 5000}) {
			t.Errorf("Loot was not debited: %+v", p.Resources)
		}
		if p.Defenses["rocket_launcher"] != 1 {
			t.Errorf("Expected one repaired launcher, got %+v", p.Defenses)
		}
		_, err = tx.Report(report.ID)
		return err
	})
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	if _, err := e.Report(ctx, "u3", report.ID); !errors.Is(err, model.ErrAccessDenied) {
		t.Fatalf("Expected access denied, got %v", err)
	}

	var buf bytes.Buffer
	if err := e.RoundsCSV(ctx, "u2", report.ID, &buf); err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 || lines[0] != "round,side,unit,name,lost" || !strings.HasPrefix(lines[1], "1,defender,rocket_launcher,") {
		t.Fatalf("Unexpected CSV %q", buf.String())
	}
}

func TestResolveAttack_Annihilation(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	target := model.NewCoordinate(1, 2, 3)
	ret := arrival.Add(time.Hour)
	fleet := model.Fleet{
		ID:      "f1",
		Owner:   "u1",
		Target:  target,
		Mission: model.Attack,
		Ships:   map[string]int{"light_fighter": 5},
		Arrival: arrival,
		Return:  &ret,
		Status:  model.Traveling,
	}

	err := s.Atomic(ctx, func(tx store.Tx) error {
		err := tx.SavePlanet(model.Planet{
			ID:          "p2",
			Owner:       "u2",
			Coordinates: target,
			Defenses:    map[string]int{"plasma_turret": 100},
			LastUpdate:  arrival,
		})
		if err != nil {
			return err
		}

		report, _, err := e.ResolveAttack(tx, &fleet)
		if err != nil {
			return err
		}
		if report.Result != model.DefenderWin || !report.Loot.IsZero() {
			t.Errorf("Unexpected report %+v", report)
		}

		debris, err := tx.Debris(target)
		if err != nil {
			return err
		}
		if debris.Resources != (model.Resources{Metal: 4500, Crystal: 1500}) {
			t.Errorf("Unexpected debris %+v", debris.Resources)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	if fleet.Status != model.Completed || fleet.Return != nil || len(fleet.Ships) != 0 {
		t.Fatalf("Unexpected fleet %+v", fleet)
	}
}

func TestResolveAttack_OwnPlanet(t *testing.T) {
	e, s := newEngine(t)

	target := model.NewCoordinate(1, 2, 3)
	fleet := model.Fleet{ID: "f1", Owner: "u1", Target: target, Ships: map[string]int{"cruiser": 1}, Arrival: arrival}

	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		if err := tx.SavePlanet(model.Planet{ID: "p1", Owner: "u1", Coordinates: target}); err != nil {
			return err
		}
		_, _, err := e.ResolveAttack(tx, &fleet)
		return err
	})
	if !errors.Is(err, model.ErrInvalidTarget) {
		t.Fatalf("Expected invalid target, got %v", err)
	}
}

func TestSimulate_RosterSize(t *testing.T) {
	e, _ := newEngine(t)

	for name, battle := range map[string]Battle{
		"huge": {
			Attacker: Side{Units: map[string]int{"light_fighter": math.MaxInt}},
			Defender: Side{Units: map[string]int{"rocket_launcher": 1}},
		},
		"split": {
			Attacker: Side{Units: map[string]int{"light_fighter": 60000}},
			Defender: Side{Units: map[string]int{"rocket_launcher": 40001}},
		},
		"many kinds": {
			Attacker: Side{Units: map[string]int{"light_fighter": math.MaxInt, "cruiser": math.MaxInt}},
		},
	} {
		if _, err := e.Simulate(battle, 1); !errors.Is(err, model.ErrInvalidAmount) {
			t.Fatalf("%s: expected invalid amount, got %v", name, err)
		}
	}

	small := Battle{
		Attacker: Side{Units: map[string]int{"battleship": 10}},
		Defender: Side{Units: map[string]int{"rocket_launcher": 1, "cruiser": 0}},
	}
	if _, err := e.Simulate(small, 1); err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
}

func TestFit(t *testing.T) {
	cargo := model.Resources{Metal: 300, Crystal: 200, Deuterium: 100}

	for _, tc := range []struct {
		capacity int64
		expected model.Resources
	}{
		{capacity: 1000, expected: cargo},
		{capacity: 600, expected: cargo},
		{capacity: 450, expected: model.Resources{Metal: 300, Crystal: 150}},
		{capacity: 100, expected: model.Resources{Metal: 100}},
		{capacity: 0, expected: model.Resources{}},
		{capacity: -5, expected: model.Resources{}},
	} {
		if out := fit(cargo, tc.capacity); out != tc.expected {
			t.Fatalf("Capacity %d: expected %+v, got %+v", tc.capacity, tc.expected, out)
		}
	}
}

func TestResolveAttack_CargoFitsSurvivors(t *testing.T) {
	e, s := newEngine(t)
	ctx := context.Background()

	target := model.NewCoordinate(1, 2, 3)
	ships := map[string]int{"battleship": 50}
	capacity := catalog.Default().CargoCapacity(ships)

	ret := arrival.Add(time.Hour)
	fleet := model.Fleet{
		ID:      "f1",
		Owner:   "u1",
		Target:  target,
		Mission: model.Attack,
		Ships:   ships,
		Cargo:   model.Resources{Metal: capacity + 1000, Crystal: 500},
		Arrival: arrival,
		Return:  &ret,
		Status:  model.Traveling,
	}

	err := s.Atomic(ctx, func(tx store.Tx) error {
		err := tx.SavePlanet(model.Planet{
			ID:          "p2",
			Owner:       "u2",
			Coordinates: target,
			Defenses:    map[string]int{"rocket_launcher": 2},
			Resources:   model.Resources{Metal: 10000, Crystal: 10000},
			LastUpdate:  arrival,
		})
		if err != nil {
			return err
		}

		report, _, err := e.ResolveAttack(tx, &fleet)
		if err != nil {
			return err
		}
		if report.Result != model.AttackerWin || !report.Loot.IsZero() {
			t.Errorf("Unexpected report %+v", report)
		}

		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	if fleet.Cargo != (model.Resources{Metal: capacity}) {
		t.Fatalf("Cargo should fit the survivors, got %+v for %d", fleet.Cargo, capacity)
	}
}

func TestDigest(t *testing.T) {
	report := model.CombatReport{
		ID:             "r1",
		AttackerRoster: map[string]int{"cruiser": 3, "battleship": 1},
		DefenderRoster: map[string]int{"rocket_launcher": 10},
		Rounds:         []model.RoundLosses{{Round: 1, Defender: map[string]int{"rocket_launcher": 4}}},
		Result:         model.Draw,
		Seed:           7,
	}

	first, err := Digest(report)
	if err != nil || len(first) != 64 {
		t.Fatalf("Unexpected digest %q (err: %v)", first, err)
	}

	report.AttackerRoster = map[string]int{"battleship": 1, "cruiser": 3}
	if again, err := Digest(report); err != nil || again != first {
		t.Fatalf("Digest should not depend on the order of the rosters, got %q (err: %v)", again, err)
	}

	report.Loot = model.Resources{Metal: 1}
	if changed, err := Digest(report); err != nil || changed == first {
		t.Fatalf("Digest should change with the loot, got %q (err: %v)", changed, err)
	}
}
