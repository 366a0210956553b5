// Package storetest holds the behavior every implementation
// of the persistence port has to provide. Each implementation
// runs it from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
)

var errAbort = errors.New("abort")

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func samplePlanet(id string, owner string, c model.Coordinate) model.Planet {
	return model.Planet{
		ID:          id,
		Owner:       owner,
		Name:        "Homeworld",
		Coordinates: c,
		Temperature: 35,
		Diameter:    12800,
		FieldsMax:   163,
		Buildings:   map[string]int{"metal_mine": 3},
		Ships:       map[string]int{"small_cargo": 2},
		Defenses:    map[string]int{},
		Resources:   model.Resources{Metal: 500, Crystal: 500},
		Carry:       model.Resources{Metal: 12},
		LastUpdate:  epoch,
	}
}

// Run :
// Executes the suite against stores built by the factory.
// A new store is created for each test.
func Run(t *testing.T, factory func(t *testing.T) store.Store) {
	t.Run("PlanetRoundTrip", func(t *testing.T) { testPlanetRoundTrip(t, factory(t)) })
	t.Run("Rollback", func(t *testing.T) { testRollback(t, factory(t)) })
	t.Run("SlotTaken", func(t *testing.T) { testSlotTaken(t, factory(t)) })
	t.Run("StalePlanets", func(t *testing.T) { testStalePlanets(t, factory(t)) })
	t.Run("Research", func(t *testing.T) { testResearch(t, factory(t)) })
	t.Run("QueueEntries", func(t *testing.T) { testQueueEntries(t, factory(t)) })
	t.Run("Fleets", func(t *testing.T) { testFleets(t, factory(t)) })
	t.Run("ReportsAndDebris", func(t *testing.T) { testReportsAndDebris(t, factory(t)) })
}

func atomic(t *testing.T, s store.Store, fn func(tx store.Tx) error) {
	t.Helper()

	if err := s.Atomic(context.Background(), fn); err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
}

func testPlanetRoundTrip(t *testing.T, s store.Store) {
	p := samplePlanet("p1", "u1", model.NewCoordinate(1, 2, 3))

	atomic(t, s, func(tx store.Tx) error {
		return tx.SavePlanet(p)
	})

	atomic(t, s, func(tx store.Tx) error {
		got, err := tx.Planet("p1")
		if err != nil {
			return err
		}
		if got.Resources != p.Resources || got.Carry != p.Carry || got.Buildings["metal_mine"] != 3 {
			t.Errorf("Unexpected planet %+v", got)
		}
		if !got.LastUpdate.Equal(p.LastUpdate) {
			t.Errorf("Expected last update %v, got %v", p.LastUpdate, got.LastUpdate)
		}

		at, err := tx.PlanetAt(model.NewCoordinate(1, 2, 3))
		if err != nil || at.ID != "p1" {
			t.Errorf("Unexpected planet at coordinates %+v (err: %v)", at, err)
		}

		owned, err := tx.PlanetsOf("u1")
		if err != nil || len(owned) != 1 {
			t.Errorf("Unexpected planets %+v (err: %v)", owned, err)
		}

		_, err = tx.Planet("missing")
		if !errors.Is(err, model.ErrNotFound) {
			t.Errorf("Expected not found, got %v", err)
		}

		return nil
	})
}

func testRollback(t *testing.T, s store.Store) {
	p := samplePlanet("p1", "u1", model.NewCoordinate(1, 1, 1))
	atomic(t, s, func(tx store.Tx) error {
		return tx.SavePlanet(p)
	})

	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		p.Resources.Metal = 0
		if err := tx.SavePlanet(p); err != nil {
			return err
		}
		if err := tx.SaveUser(model.User{ID: "u1"}); err != nil {
			return err
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("Expected abort error, got %v", err)
	}

	atomic(t, s, func(tx store.Tx) error {
		got, err := tx.Planet("p1")
		if err != nil {
			return err
		}
		if got.Resources.Metal != 500 {
			t.Errorf("Rolled back write is visible: %+v", got.Resources)
		}

		_, err = tx.User("u1")
		if !errors.Is(err, model.ErrUserNotFound) {
			t.Errorf("Expected user not found, got %v", err)
		}

		return nil
	})
}

func testSlotTaken(t *testing.T, s store.Store) {
	atomic(t, s, func(tx store.Tx) error {
		return tx.SavePlanet(samplePlanet("p1", "u1", model.NewCoordinate(1, 1, 1)))
	})

	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		return tx.SavePlanet(samplePlanet("p2", "u2", model.NewCoordinate(1, 1, 1)))
	})
	if !errors.Is(err, model.ErrSlotTaken) {
		t.Fatalf("Expected slot taken, got %v", err)
	}
}

func testStalePlanets(t *testing.T, s store.Store) {
	now := epoch.Add(48 * time.Hour)

	atomic(t, s, func(tx store.Tx) error {
		if err := tx.SaveUser(model.User{ID: "active", LastActive: now.Add(-time.Hour)}); err != nil {
			return err
		}
		if err := tx.SaveUser(model.User{ID: "idle", LastActive: now.Add(-72 * time.Hour)}); err != nil {
			return err
		}

		a := samplePlanet("a", "active", model.NewCoordinate(1, 1, 1))
		a.LastUpdate = now.Add(-5 * time.Minute)
		i1 := samplePlanet("i1", "idle", model.NewCoordinate(1, 1, 2))
		i1.LastUpdate = now.Add(-5 * time.Minute)
		i2 := samplePlanet("i2", "idle", model.NewCoordinate(1, 1, 3))
		i2.LastUpdate = now.Add(-2 * time.Hour)

		for _, p := range []model.Planet{a, i1, i2} {
			if err := tx.SavePlanet(p); err != nil {
				return err
			}
		}

		return nil
	})

	atomic(t, s, func(tx store.Tx) error {
		ids, err := tx.StalePlanets(now.Add(-24*time.Hour), now.Add(-time.Minute), now.Add(-time.Hour), 10)
		if err != nil {
			return err
		}

		if len(ids) != 2 || ids[0] != "i2" || ids[1] != "a" {
			t.Errorf("Unexpected stale planets %v", ids)
		}

		return nil
	})
}

func testResearch(t *testing.T, s store.Store) {
	entry := &model.QueueEntry{
		ID:      "r1",
		Kind:    model.ResearchQueue,
		Planet:  "p1",
		Player:  "u1",
		Element: "energy_technology",
		Level:   1,
		Start:   epoch,
		End:     epoch.Add(time.Minute),
	}

	atomic(t, s, func(tx store.Tx) error {
		if err := tx.SaveUser(model.User{ID: "u1", Technologies: map[string]int{"laser_technology": 2}, Research: entry}); err != nil {
			return err
		}
		return tx.SaveUser(model.User{ID: "u2"})
	})

	atomic(t, s, func(tx store.Tx) error {
		ids, err := tx.UsersWithResearchDue(epoch, 10)
		if err != nil {
			return err
		}
		if len(ids) != 0 {
			t.Errorf("Research should not be due yet: %v", ids)
		}

		ids, err = tx.UsersWithResearchDue(epoch.Add(time.Minute), 10)
		if err != nil {
			return err
		}
		if len(ids) != 1 || ids[0] != "u1" {
			t.Errorf("Unexpected users %v", ids)
		}

		u, err := tx.User("u1")
		if err != nil {
			return err
		}
		if u.Research == nil || u.Research.ID != "r1" || u.Technology("laser_technology") != 2 {
			t.Errorf("Unexpected user %+v", u)
		}

		return nil
	})
}

func testQueueEntries(t *testing.T, s store.Store) {
	entries := []model.QueueEntry{
		{ID: "e1", Kind: model.ShipQueue, Planet: "p1", Element: "light_fighter", Amount: 2, Position: 1, Start: epoch, End: epoch.Add(10 * time.Second)},
		{ID: "e2", Kind: model.ShipQueue, Planet: "p1", Element: "light_fighter", Amount: 1, Position: 0, Start: epoch, End: epoch.Add(5 * time.Second)},
		{ID: "e3", Kind: model.BuildingQueue, Planet: "p1", Element: "metal_mine", Level: 4, Start: epoch, End: epoch.Add(20 * time.Second)},
		{ID: "e4", Kind: model.BuildingQueue, Planet: "p1", Element: "crystal_mine", Level: 1, Start: epoch, End: epoch, Completed: true},
	}

	atomic(t, s, func(tx store.Tx) error {
		for _, e := range entries {
			if err := tx.SaveQueueEntry(e); err != nil {
				return err
			}
		}
		return nil
	})

	atomic(t, s, func(tx store.Tx) error {
		ships, err := tx.QueueEntries("p1", model.ShipQueue)
		if err != nil {
			return err
		}
		if len(ships) != 2 || ships[0].ID != "e2" || ships[1].ID != "e1" {
			t.Errorf("Unexpected ship entries %+v", ships)
		}

		buildings, err := tx.QueueEntries("p1", model.BuildingQueue)
		if err != nil {
			return err
		}
		if len(buildings) != 1 || buildings[0].ID != "e3" {
			t.Errorf("Unexpected building entries %+v", buildings)
		}

		due, err := tx.DueQueueEntries(epoch.Add(10*time.Second), 10)
		if err != nil {
			return err
		}
		if len(due) != 2 || due[0].ID != "e2" || due[1].ID != "e1" {
			t.Errorf("Unexpected due entries %+v", due)
		}

		count, err := tx.PurgeCompletedEntries(epoch.Add(time.Second))
		if err != nil {
			return err
		}
		if count != 1 {
			t.Errorf("Expected 1 purged entry, got %d", count)
		}

		if err := tx.DeleteQueueEntry("e1"); err != nil {
			return err
		}
		if _, err := tx.QueueEntry("e1"); !errors.Is(err, model.ErrEntryNotFound) {
			t.Errorf("Expected entry not found, got %v", err)
		}

		return nil
	})
}

func testFleets(t *testing.T, s store.Store) {
	ret := epoch.Add(2 * time.Minute)
	fleets := []model.Fleet{
		{ID: "f1", Owner: "u1", Origin: "p1", Mission: model.Transport, Ships: map[string]int{"small_cargo": 1}, Speed: 100, Start: epoch, Arrival: epoch.Add(time.Minute), Return: &ret, Status: model.Traveling},
		{ID: "f2", Owner: "u1", Origin: "p1", Mission: model.Transport, Ships: map[string]int{"small_cargo": 1}, Speed: 100, Start: epoch, Arrival: epoch.Add(-time.Minute), Return: &ret, Status: model.Returning},
		{ID: "f3", Owner: "u1", Origin: "p1", Mission: model.Deploy, Ships: map[string]int{"small_cargo": 1}, Speed: 100, Start: epoch, Arrival: epoch, Status: model.Completed},
	}

	atomic(t, s, func(tx store.Tx) error {
		for _, f := range fleets {
			if err := tx.SaveFleet(f); err != nil {
				return err
			}
		}
		return nil
	})

	atomic(t, s, func(tx store.Tx) error {
		due, err := tx.DueFleets(epoch.Add(2*time.Minute), 10)
		if err != nil {
			return err
		}
		if len(due) != 2 || due[0].ID != "f1" || due[1].ID != "f2" {
			t.Errorf("Unexpected due fleets %+v", due)
		}

		owned, err := tx.FleetsOf("u1")
		if err != nil {
			return err
		}
		if len(owned) != 3 {
			t.Errorf("Expected 3 fleets, got %d", len(owned))
		}

		f, err := tx.Fleet("f2")
		if err != nil {
			return err
		}
		if f.Return == nil || !f.Return.Equal(ret) || f.Ships["small_cargo"] != 1 {
			t.Errorf("Unexpected fleet %+v", f)
		}

		return nil
	})
}

func testReportsAndDebris(t *testing.T, s store.Store) {
	report := model.CombatReport{
		ID:             "r1",
		Fleet:          "f1",
		Attacker:       "u1",
		Defender:       "u2",
		AttackerRoster: map[string]int{"light_fighter": 10},
		DefenderRoster: map[string]int{"rocket_launcher": 5},
		Rounds: []model.RoundLosses{
			{Round: 1, Attacker: map[string]int{"light_fighter": 2}, Defender: map[string]int{"rocket_launcher": 3}},
		},
		Result:     model.Draw,
		RoundCount: 6,
		Seed:       42,
		Digest:     "abc",
		CreatedAt:  epoch,
	}
	c := model.NewCoordinate(1, 1, 1)

	atomic(t, s, func(tx store.Tx) error {
		if err := tx.SaveReport(report); err != nil {
			return err
		}
		return tx.SaveDebris(model.DebrisField{Coordinates: c, Resources: model.Resources{Metal: 100}})
	})

	atomic(t, s, func(tx store.Tx) error {
		got, err := tx.Report("r1")
		if err != nil {
			return err
		}
		if len(got.Rounds) != 1 || got.Rounds[0].Defender["rocket_launcher"] != 3 || got.Seed != 42 {
			t.Errorf("Unexpected report %+v", got)
		}

		d, err := tx.Debris(c)
		if err != nil {
			return err
		}
		if d.Resources.Metal != 100 {
			t.Errorf("Unexpected debris %+v", d)
		}

		return tx.SaveDebris(model.DebrisField{Coordinates: c})
	})

	atomic(t, s, func(tx store.Tx) error {
		if _, err := tx.Debris(c); !errors.Is(err, model.ErrDebrisNotFound) {
			t.Errorf("Expected debris not found, got %v", err)
		}
		return nil
	})
}
