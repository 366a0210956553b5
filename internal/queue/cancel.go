package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/notify"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// refund :
// Part of the charged cost given back on cancellation.
func (s *Scheduler) refund(cost model.Resources) model.Resources {
	return cost.Scale(s.config.RefundRatio)
}

// Cancel :
// Removes a pending building or ship entry and credits its
// planet with the refund. Cancelling an entry of the ship
// queue moves the entries after it forward in time while
// keeping their order and durations. An entry which is due
// is completed instead and cannot be cancelled anymore.
//
// Returns the planet after the refund.
func (s *Scheduler) Cancel(ctx context.Context, kind model.QueueKind, player string, entryID string, now time.Time) (model.Planet, error) {
	if kind != model.BuildingQueue && kind != model.ShipQueue {
		return model.Planet{}, fmt.Errorf("%w: cannot cancel %s entries by identifier", model.ErrValidation, kind)
	}

	// The planet of the entry is needed to take the lock.
	var planetID string
	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		entry, err := tx.QueueEntry(entryID)
		if err != nil {
			return err
		}
		planetID = entry.Planet
		return nil
	})
	if err != nil {
		return model.Planet{}, err
	}

	var planet model.Planet
	var events []notify.Event
	var completed bool

	err = s.locks.Run(planetKey(planetID), func() error {
		return s.store.Atomic(ctx, func(tx store.Tx) error {
			events = nil
			completed = false

			entry, err := tx.QueueEntry(entryID)
			if err != nil {
				return err
			}
			if entry.Kind != kind {
				return model.ErrEntryNotFound
			}
			if entry.Player != player {
				return model.ErrNotOwner
			}
			if entry.Completed {
				return model.ErrAlreadyCompleted
			}

			planet, err = ownedPlanet(tx, player, entry.Planet)
			if err != nil {
				return err
			}

			if events, err = s.Settle(tx, &planet, now); err != nil {
				return err
			}
			for _, e := range events {
				if e.Kind == notify.QueueCompleted && e.Entity == entryID {
					completed = true
				}
			}
			if completed {
				return tx.SavePlanet(planet)
			}

			planet.Resources = planet.Resources.Add(s.refund(entry.Cost))

			if err := tx.DeleteQueueEntry(entry.ID); err != nil {
				return err
			}

			if kind == model.ShipQueue {
				if err := s.reflow(tx, entry, now); err != nil {
					return err
				}
			}

			if err := tx.SavePlanet(planet); err != nil {
				return err
			}

			events = append(events, notify.Event{
				Kind:    notify.QueueCancelled,
				Player:  player,
				Planet:  entry.Planet,
				Entity:  entry.ID,
				Element: entry.Element,
				Level:   entry.Level,
				Amount:  entry.Amount,
				At:      now,
			})

			return nil
		})
	})

	if err != nil {
		return model.Planet{}, err
	}

	s.emit(events)

	if completed {
		return model.Planet{}, model.ErrAlreadyCompleted
	}

	s.log.Trace(logger.Verbose, "queue", fmt.Sprintf("Cancelled %s entry \"%s\" on \"%s\"", kind, entryID, planetID))

	return planet, nil
}

// reflow :
// Recomputes the timeline of the ship queue of a planet
// after an entry was removed. The entries before the removed
// one are untouched; the first one after it starts at the
// later of the removed entry's start and `now`, and each
// following one when the previous one ends. Durations and
// order are preserved and positions renumbered.
func (s *Scheduler) reflow(tx store.Tx, removed model.QueueEntry, now time.Time) error {
	entries, err := tx.QueueEntries(removed.Planet, model.ShipQueue)
	if err != nil {
		return err
	}

	anchor := removed.Start
	if now.After(anchor) {
		anchor = now
	}

	for i := range entries {
		e := &entries[i]
		changed := e.Position != i

		if e.Position > removed.Position {
			d := e.Duration()
			if !e.Start.Equal(anchor) {
				e.Start = anchor
				e.End = anchor.Add(d)
				changed = true
			}
			anchor = e.End
		}

		e.Position = i

		if changed {
			if err := tx.SaveQueueEntry(*e); err != nil {
				return err
			}
		}
	}

	return nil
}

// CancelResearch :
// Stops the research in progress of the player and credits
// the planet where it was started with the refund.
//
// Returns the planet after the refund.
func (s *Scheduler) CancelResearch(ctx context.Context, player string, now time.Time) (model.Planet, error) {
	var planet model.Planet
	var events []notify.Event
	var completed bool

	err := s.locks.Run(userKey(player), func() error {
		return s.store.Atomic(ctx, func(tx store.Tx) error {
			events = nil
			completed = false

			user, err := tx.User(player)
			if err != nil {
				return err
			}

			research, done, err := s.settleResearch(tx, &user, now)
			if err != nil {
				return err
			}
			if research != nil {
				events = append(completedEvents(done), completedEvent(*research))
				completed = true
				return nil
			}
			if user.Research == nil {
				return model.ErrNothingToCancel
			}

			entry := *user.Research

			planet, err = tx.Planet(entry.Planet)
			if err != nil {
				return err
			}
			if events, err = s.Settle(tx, &planet, now); err != nil {
				return err
			}
			planet.Resources = planet.Resources.Add(s.refund(entry.Cost))

			if err := tx.SavePlanet(planet); err != nil {
				return err
			}

			user.Research = nil
			if err := tx.SaveUser(user); err != nil {
				return err
			}

			events = append(events, notify.Event{
				Kind:    notify.QueueCancelled,
				Player:  player,
				Planet:  entry.Planet,
				Entity:  entry.ID,
				Element: entry.Element,
				Level:   entry.Level,
				At:      now,
			})

			return nil
		})
	})

	if err != nil {
		return model.Planet{}, err
	}

	s.emit(events)

	if completed {
		return model.Planet{}, model.ErrAlreadyCompleted
	}

	return planet, nil
}
