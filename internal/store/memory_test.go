package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store/storetest"
)

func TestMemory(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return store.NewMemory()
	})
}

func TestMemory_ReadsAreCopies(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	err := s.Atomic(ctx, func(tx store.Tx) error {
		return tx.SavePlanet(model.Planet{ID: "p1", Buildings: map[string]int{"metal_mine": 1}})
	})
	if err != nil {
		t.Fatalf("Unexpected error %v", err)
	}

	_ = s.Atomic(ctx, func(tx store.Tx) error {
		p, _ := tx.Planet("p1")
		p.Buildings["metal_mine"] = 10
		return nil
	})

	_ = s.Atomic(ctx, func(tx store.Tx) error {
		p, _ := tx.Planet("p1")
		if p.Buildings["metal_mine"] != 1 {
			t.Errorf("Unsaved modification leaked into the store")
		}
		return nil
	})
}

func TestMemory_CancelledContext(t *testing.T) {
	s := store.NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Atomic(ctx, func(tx store.Tx) error {
		return nil
	})
	if !errors.Is(err, model.ErrTransient) {
		t.Fatalf("Expected transient error, got %v", err)
	}
}
