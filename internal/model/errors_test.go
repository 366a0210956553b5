package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{ErrUnknownElement, ErrValidation},
		{ErrNotEnoughResources, ErrPrecondition},
		{fmt.Errorf("%w: missing robotics", ErrTechDepsNotMet), ErrPrecondition},
		{ErrFleetNotFound, ErrNotFound},
		{ErrNotOwner, ErrAccessDenied},
		{Transient(errors.New("connection reset")), ErrTransient},
	}

	for _, c := range cases {
		if !errors.Is(c.err, c.kind) {
			t.Errorf("expected %v to be of kind %v", c.err, c.kind)
		}
		if KindOf(c.err) != c.kind {
			t.Errorf("KindOf(%v) = %v, want %v", c.err, KindOf(c.err), c.kind)
		}
	}
}

func TestSpecificErrorsAreDistinct(t *testing.T) {
	if errors.Is(ErrNotEnoughResources, ErrNoFieldsLeft) {
		t.Errorf("expected distinct precondition errors")
	}
	wrapped := fmt.Errorf("starting build: %w", ErrNoFieldsLeft)
	if !errors.Is(wrapped, ErrNoFieldsLeft) {
		t.Errorf("expected wrapped error to match its sentinel")
	}
}

func TestTransientKeepsKinds(t *testing.T) {
	if Transient(nil) != nil {
		t.Errorf("expected nil to stay nil")
	}
	if err := Transient(ErrSlotTaken); err != ErrSlotTaken {
		t.Errorf("expected classified error to be returned as is, got %v", err)
	}

	base := errors.New("disk full")
	if !errors.Is(Transient(base), base) {
		t.Errorf("expected transient error to unwrap to the original one")
	}
}

func TestResourcesArithmetic(t *testing.T) {
	a := Resources{Metal: 100, Crystal: 50, Deuterium: 10}
	b := Resources{Metal: 30, Crystal: 60, Deuterium: 10}

	if got := a.Sub(b); got != (Resources{Metal: 70, Crystal: 0, Deuterium: 0}) {
		t.Errorf("unexpected clamped difference %+v", got)
	}
	if a.Covers(b) {
		t.Errorf("expected a not to cover b")
	}
	if got := a.Scale(0.5); got != (Resources{Metal: 50, Crystal: 25, Deuterium: 5}) {
		t.Errorf("unexpected scaled amount %+v", got)
	}
	if a.Add(b).Total() != 260 {
		t.Errorf("unexpected total %d", a.Add(b).Total())
	}
}
