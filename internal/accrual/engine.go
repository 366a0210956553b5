package accrual

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/locker"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/notify"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// Schedule :
// Defines how often planets are refreshed by the sweep.
//
// The `Interval` is the age after which the planet of an
// active player is refreshed.
//
// The `IdleAfter` is the inactivity after which a player
// is considered idle.
//
// The `IdleInterval` is the age after which the planet of
// an idle player is refreshed.
//
// The `Batch` caps the number of planets per sweep.
type Schedule struct {
	Interval     time.Duration
	IdleAfter    time.Duration
	IdleInterval time.Duration
	Batch        int
}

// DefaultSchedule :
// Refreshes active planets every minute and idle ones
// every hour, players being idle after a day.
func DefaultSchedule() Schedule {
	return Schedule{
		Interval:     time.Minute,
		IdleAfter:    24 * time.Hour,
		IdleInterval: time.Hour,
		Batch:        500,
	}
}

// Settler :
// Completes the production entries of a planet which are
// due at `now`, rolling its stock to the end of each of them
// and then to `now`. The events are returned to be emitted
// once the transaction is committed.
type Settler interface {
	Settle(tx store.Tx, planet *model.Planet, now time.Time) ([]notify.Event, error)
}

// Engine :
// Keeps the stock of the planets up to date. Planets are
// refreshed lazily whenever they are read or modified and
// periodically by the resources sweep.
//
// The `store` is the persistence layer.
//
// The `catalog` provides the production rules.
//
// The `config` holds the settings of the economy.
//
// The `schedule` drives the sweep.
//
// The `locks` serializes the processing of a planet.
//
// The `settler` completes the due entries of a planet before
// it is brought up to date. When missing the stock is simply
// rolled forward.
//
// The `notifier` receives the events of the entries settled
// by the engine itself.
//
// The `log` allows to notify errors and information.
type Engine struct {
	store    store.Store
	catalog  *catalog.Catalog
	config   Config
	schedule Schedule
	locks    *locker.ConcurrentLocker
	settler  Settler
	notifier notify.Notifier
	log      logger.Logger
}

// NewEngine :
// Creates a new accrual engine with the default schedule.
func NewEngine(s store.Store, c *catalog.Catalog, config Config, locks *locker.ConcurrentLocker, log logger.Logger) *Engine {
	return &Engine{
		store:    s,
		catalog:  c,
		config:   config,
		schedule: DefaultSchedule(),
		locks:    locks,
		log:      log,
	}
}

// WithSchedule :
// Replaces the schedule of the sweep.
//
// Returns this engine to allow chain calling.
func (e *Engine) WithSchedule(schedule Schedule) *Engine {
	e.schedule = schedule
	return e
}

// WithSettler :
// Registers the component completing the due entries of a
// planet and the notifier of the resulting events.
//
// Returns this engine to allow chain calling.
func (e *Engine) WithSettler(settler Settler, notifier notify.Notifier) *Engine {
	e.settler = settler
	e.notifier = notifier
	return e
}

// Config :
// Returns the settings of the economy.
func (e *Engine) Config() Config {
	return e.config
}

// Catalog :
// Returns the balance tables used by the engine.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// Roll :
// Refreshes the planet up to `now` within a transaction,
// using the technologies of its owner. The planet is not
// saved: the caller is expected to do so along with its
// own modifications.
func (e *Engine) Roll(tx store.Tx, planet *model.Planet, now time.Time) error {
	var technologies map[string]int

	owner, err := tx.User(planet.Owner)
	switch {
	case err == nil:
		technologies = owner.Technologies
	case errors.Is(err, model.ErrUserNotFound):
	default:
		return err
	}

	Refresh(e.catalog, planet, technologies, now, e.config)

	return nil
}

// Settle :
// Brings the planet up to `now` within a transaction. The
// entries due before `now` are completed first so that the
// production only changes at the instant they end. The
// planet is not saved.
//
// Returns the events to emit once the transaction is
// committed.
func (e *Engine) Settle(tx store.Tx, planet *model.Planet, now time.Time) ([]notify.Event, error) {
	if e.settler == nil {
		return nil, e.Roll(tx, planet, now)
	}

	return e.settler.Settle(tx, planet, now)
}

// emit :
// Forwards the events to the notifier, if any.
func (e *Engine) emit(events []notify.Event) {
	if e.notifier == nil {
		return
	}

	for _, ev := range events {
		e.notifier.Notify(ev)
	}
}

// Get :
// Returns the planet of the player refreshed up to `now`.
// The refreshed state is persisted and the player marked
// as active.
func (e *Engine) Get(ctx context.Context, player string, planetID string, now time.Time) (model.Planet, error) {
	var out model.Planet
	var events []notify.Event

	err := e.locks.Run(planetKey(planetID), func() error {
		return e.store.Atomic(ctx, func(tx store.Tx) error {
			planet, err := tx.Planet(planetID)
			if err != nil {
				return err
			}
			if planet.Owner != player {
				return model.ErrNotOwner
			}

			if events, err = e.Settle(tx, &planet, now); err != nil {
				return err
			}
			if err := tx.SavePlanet(planet); err != nil {
				return err
			}

			if err := touch(tx, player, now); err != nil {
				return err
			}

			out = planet
			return nil
		})
	})

	if err == nil {
		e.emit(events)
	}

	return out, err
}

// touch :
// Marks the player as active at `now`.
func touch(tx store.Tx, player string, now time.Time) error {
	user, err := tx.User(player)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if now.After(user.LastActive) {
		user.LastActive = now
		return tx.SaveUser(user)
	}

	return nil
}

// AdvanceDue :
// Refreshes the planets which were not refreshed for one
// interval, or one idle interval for idle players. A planet
// failing to refresh is logged and does not prevent the
// others from being processed.
//
// Returns the statistics of the sweep along with an error
// if the due planets could not be listed.
func (e *Engine) AdvanceDue(ctx context.Context, now time.Time) (model.SweepStats, error) {
	var stats model.SweepStats
	var ids []string

	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		ids, err = tx.StalePlanets(
			now.Add(-e.schedule.IdleAfter),
			now.Add(-e.schedule.Interval),
			now.Add(-e.schedule.IdleInterval),
			e.schedule.Batch,
		)
		return err
	})
	if err != nil {
		return stats, err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		var events []notify.Event
		err := e.locks.Run(planetKey(id), func() error {
			return e.store.Atomic(ctx, func(tx store.Tx) error {
				planet, err := tx.Planet(id)
				if err != nil {
					return err
				}
				if events, err = e.Settle(tx, &planet, now); err != nil {
					return err
				}
				return tx.SavePlanet(planet)
			})
		})

		if err != nil {
			stats.Failed++
			e.log.Trace(logger.Error, "accrual", fmt.Sprintf("Failed to refresh planet \"%s\" (err: %v)", id, err))
			continue
		}

		e.emit(events)
		stats.Processed++
	}

	return stats, nil
}

// planetKey :
// Key of the lock protecting a planet.
func planetKey(id string) string {
	return "planet:" + id
}
