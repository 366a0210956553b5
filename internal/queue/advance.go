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

// AdvanceDue :
// Completes the entries whose end has passed: buildings and
// ships of every planet, then the research of the players.
// Each planet and each player is processed in its own step
// so that a failure only affects this entity. Completed
// entries older than the retention are then purged.
//
// Returns the statistics of the sweep along with an error
// if the due entities could not be listed.
func (s *Scheduler) AdvanceDue(ctx context.Context, now time.Time) (model.SweepStats, error) {
	var stats model.SweepStats
	var entries []model.QueueEntry
	var users []string

	err := s.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		if entries, err = tx.DueQueueEntries(now, s.config.Batch); err != nil {
			return err
		}
		users, err = tx.UsersWithResearchDue(now, s.config.Batch)
		return err
	})
	if err != nil {
		return stats, err
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		if seen[e.Planet] || ctx.Err() != nil {
			continue
		}
		seen[e.Planet] = true

		count, err := s.advancePlanet(ctx, e.Planet, now)
		if err != nil {
			stats.Failed++
			s.log.Trace(logger.Error, "queue", fmt.Sprintf("Failed to advance queues of planet \"%s\" (err: %v)", e.Planet, err))
			continue
		}
		stats.Processed += count
	}

	for _, id := range users {
		if ctx.Err() != nil {
			break
		}

		done, err := s.advanceResearch(ctx, id, now)
		if err != nil {
			stats.Failed++
			s.log.Trace(logger.Error, "queue", fmt.Sprintf("Failed to advance research of \"%s\" (err: %v)", id, err))
			continue
		}
		if done {
			stats.Processed++
		}
	}

	if s.config.Retention > 0 {
		var purged int
		err := s.store.Atomic(ctx, func(tx store.Tx) error {
			var err error
			purged, err = tx.PurgeCompletedEntries(now.Add(-s.config.Retention))
			return err
		})
		if err != nil {
			s.log.Trace(logger.Warning, "queue", fmt.Sprintf("Failed to purge completed entries (err: %v)", err))
		} else if purged > 0 {
			s.log.Trace(logger.Verbose, "queue", fmt.Sprintf("Purged %d completed entries", purged))
		}
	}

	return stats, nil
}

// advancePlanet :
// Completes the due entries of a single planet. Running it
// again for the same instant is a no-op as the entries are
// already marked completed.
//
// Returns the number of entries completed.
func (s *Scheduler) advancePlanet(ctx context.Context, planetID string, now time.Time) (int, error) {
	var events []notify.Event

	err := s.locks.Run(planetKey(planetID), func() error {
		return s.store.Atomic(ctx, func(tx store.Tx) error {
			events = nil

			planet, err := tx.Planet(planetID)
			if err != nil {
				return err
			}

			done, err := s.settle(tx, &planet, now)
			if err != nil {
				return err
			}
			if len(done) == 0 {
				return nil
			}

			for _, e := range done {
				events = append(events, completedEvent(e))
			}

			return tx.SavePlanet(planet)
		})
	})

	if err != nil {
		return 0, err
	}

	s.emit(events)

	return len(events), nil
}

// advanceResearch :
// Completes the research of a player if it is due.
//
// Returns whether a research was completed.
func (s *Scheduler) advanceResearch(ctx context.Context, player string, now time.Time) (bool, error) {
	var research *model.QueueEntry
	var done []model.QueueEntry

	err := s.locks.Run(userKey(player), func() error {
		return s.store.Atomic(ctx, func(tx store.Tx) error {
			user, err := tx.User(player)
			if err != nil {
				return err
			}

			research, done, err = s.settleResearch(tx, &user, now)
			return err
		})
	})

	if err != nil || research == nil {
		return false, err
	}

	s.emit(append(completedEvents(done), completedEvent(*research)))

	return true, nil
}
