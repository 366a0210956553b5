package accrual

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/locker"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

func newTestEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()

	s := store.NewMemory()
	log := logger.NewNullLogger()
	e := NewEngine(s, catalog.Default(), DefaultConfig(), locker.NewConcurrentLockerWithSize(4, log), log)

	return e, s
}

func seed(t *testing.T, s store.Store, users []model.User, planets []model.Planet) {
	t.Helper()

	err := s.Atomic(context.Background(), func(tx store.Tx) error {
		for _, u := range users {
			if err := tx.SaveUser(u); err != nil {
				return err
			}
		}
		for _, p := range planets {
			if err := tx.SavePlanet(p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
}

func TestEngine_Get(t *testing.T) {
	e, s := newTestEngine(t)

	seed(t, s,
		[]model.User{{ID: "u1", LastActive: epoch}},
		[]model.Planet{{ID: "p1", Owner: "u1", Buildings: map[string]int{}, LastUpdate: epoch}},
	)

	now := epoch.Add(2 * time.Hour)

	p, err := e.Get(context.Background(), "u1", "p1", now)
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	if p.Resources.Metal != 60 || !p.LastUpdate.Equal(now) {
		t.Fatalf("Unexpected planet %+v", p)
	}

	_ = s.Atomic(context.Background(), func(tx store.Tx) error {
		stored, _ := tx.Planet("p1")
		if stored.Resources.Metal != 60 {
			t.Errorf("Refresh was not persisted: %+v", stored.Resources)
		}
		u, _ := tx.User("u1")
		if !u.LastActive.Equal(now) {
			t.Errorf("Player was not marked active: %v", u.LastActive)
		}
		return nil
	})

	_, err = e.Get(context.Background(), "u2", "p1", now)
	if !errors.Is(err, model.ErrAccessDenied) {
		t.Fatalf("Expected access denied, got %v", err)
	}

	_, err = e.Get(context.Background(), "u1", "p2", now)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Expected not found, got %v", err)
	}
}

func TestEngine_AdvanceDue(t *testing.T) {
	e, s := newTestEngine(t)

	now := epoch.Add(72 * time.Hour)

	seed(t, s,
		[]model.User{
			{ID: "active", LastActive: now.Add(-time.Hour)},
			{ID: "idle", LastActive: epoch},
		},
		[]model.Planet{
			{ID: "a", Owner: "active", Coordinates: model.NewCoordinate(1, 1, 1), Buildings: map[string]int{}, LastUpdate: now.Add(-2 * time.Minute)},
			{ID: "i1", Owner: "idle", Coordinates: model.NewCoordinate(1, 1, 2), Buildings: map[string]int{}, LastUpdate: now.Add(-30 * time.Minute)},
			{ID: "i2", Owner: "idle", Coordinates: model.NewCoordinate(1, 1, 3), Buildings: map[string]int{}, LastUpdate: now.Add(-3 * time.Hour)},
		},
	)

	stats, err := e.AdvanceDue(context.Background(), now)
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}
	if stats.Processed != 2 || stats.Failed != 0 {
		t.Fatalf("Unexpected stats %+v", stats)
	}

	_ = s.Atomic(context.Background(), func(tx store.Tx) error {
		for id, refreshed := range map[string]bool{"a": true, "i1": false, "i2": true} {
			p, _ := tx.Planet(id)
			if p.LastUpdate.Equal(now) != refreshed {
				t.Errorf("Planet %s: unexpected last update %v", id, p.LastUpdate)
			}
		}
		return nil
	})

	stats, err = e.AdvanceDue(context.Background(), now)
	if err != nil || stats.Processed != 0 {
		t.Fatalf("Second sweep should be a no-op, got %+v (err: %v)", stats, err)
	}
}
