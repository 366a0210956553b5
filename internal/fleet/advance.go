package fleet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/notify"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/internal/universe"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/google/uuid"
)

// AdvanceDue :
// Processes the fleets which reached their target or came
// back to their origin at `now`. A fleet failing to advance
// is logged and picked again by the next sweep.
//
// Returns the statistics of the sweep along with an error
// if the due fleets could not be listed.
func (e *Engine) AdvanceDue(ctx context.Context, now time.Time) (model.SweepStats, error) {
	var stats model.SweepStats
	var fleets []model.Fleet

	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		fleets, err = tx.DueFleets(now, e.batch)
		return err
	})
	if err != nil {
		return stats, err
	}

	for _, f := range fleets {
		if ctx.Err() != nil {
			break
		}

		done, err := e.advance(ctx, f.ID, now)
		if err != nil {
			stats.Failed++
			e.log.Trace(logger.Error, "fleet", fmt.Sprintf("Failed to advance fleet \"%s\" (err: %v)", f.ID, err))
			continue
		}
		if done {
			stats.Processed++
		}
	}

	return stats, nil
}

// advance :
// Applies the events of a single fleet due at `now`. A fleet
// delayed long enough may both arrive and come back in one
// call. Running it again for the same instant is a no-op.
//
// Returns whether the fleet was modified.
func (e *Engine) advance(ctx context.Context, id string, now time.Time) (bool, error) {
	var events []notify.Event
	var done bool

	err := e.locks.Run(fleetKey(id), func() error {
		return e.store.Atomic(ctx, func(tx store.Tx) error {
			events = nil
			done = false

			fleet, err := tx.Fleet(id)
			if err != nil {
				return err
			}

			for {
				at, ok := fleet.NextEvent()
				if !ok || at.After(now) {
					break
				}

				var evs []notify.Event
				if fleet.Status == model.Traveling {
					evs, err = e.arrive(tx, &fleet)
				} else {
					evs, err = e.comeBack(tx, &fleet)
				}
				if err != nil {
					return err
				}

				events = append(events, evs...)
				done = true
			}

			if !done {
				return nil
			}

			return tx.SaveFleet(fleet)
		})
	})

	if err == nil {
		e.emit(events)
	}

	return done, err
}

// turnAround :
// Sends the fleet back to its origin without applying its
// mission.
func turnAround(fleet *model.Fleet, reason string, log logger.Logger) {
	fleet.Status = model.Returning
	log.Trace(logger.Info, "fleet", fmt.Sprintf("Fleet \"%s\" turns around at %s: %s", fleet.ID, fleet.Target, reason))
}

// stay :
// Marks the fleet as not coming back.
func stay(fleet *model.Fleet) {
	fleet.Status = model.Completed
	fleet.Return = nil
}

// arrive :
// Applies the mission of a fleet reaching its target. The
// planets involved are refreshed up to the arrival of the
// fleet before being credited.
//
// Returns the events to emit once committed.
func (e *Engine) arrive(tx store.Tx, fleet *model.Fleet) ([]notify.Event, error) {
	target, err := planetAt(tx, fleet.Target)
	if err != nil {
		return nil, err
	}

	arrived := notify.Event{
		Kind:    notify.FleetArrived,
		Player:  fleet.Owner,
		Entity:  fleet.ID,
		Element: string(fleet.Mission),
		At:      fleet.Arrival,
	}
	if target != nil {
		arrived.Planet = target.ID
	}
	events := []notify.Event{arrived}

	switch fleet.Mission {
	case model.Attack:
		if err := e.checkTarget(fleet.Owner, fleet.Mission, fleet.Ships, target); err != nil {
			turnAround(fleet, err.Error(), e.log)
			break
		}

		_, evs, err := e.combat.ResolveAttack(tx, fleet)
		if err != nil {
			return nil, err
		}
		events = append(events, evs...)

	case model.Transport, model.Deploy:
		if err := e.checkTarget(fleet.Owner, fleet.Mission, fleet.Ships, target); err != nil {
			turnAround(fleet, err.Error(), e.log)
			break
		}

		settled, err := e.accrual.Settle(tx, target, fleet.Arrival)
		if err != nil {
			return nil, err
		}
		events = append(events, settled...)

		target.Resources = target.Resources.Add(fleet.Cargo)
		fleet.Cargo = model.Resources{}

		if fleet.Mission == model.Deploy {
			target.AddShips(fleet.Ships)
			stay(fleet)
		} else {
			fleet.Status = model.Returning
		}

		if err := tx.SavePlanet(*target); err != nil {
			return nil, err
		}

	case model.Colonize:
		if err := e.colonize(tx, fleet, target); err != nil {
			return nil, err
		}

	case model.Harvest:
		if err := e.harvest(tx, fleet); err != nil {
			return nil, err
		}
	}

	return events, nil
}

// colonize :
// Founds a new planet at the target of the fleet if the
// slot is still free and the player may own one more
// planet. One colony ship is consumed and the cargo is
// unloaded on the new planet. The other ships come back.
func (e *Engine) colonize(tx store.Tx, fleet *model.Fleet, target *model.Planet) error {
	if err := e.checkTarget(fleet.Owner, fleet.Mission, fleet.Ships, target); err != nil {
		turnAround(fleet, err.Error(), e.log)
		return nil
	}

	ok, err := e.canColonize(tx, fleet.Owner)
	if err != nil {
		return err
	}
	if !ok {
		turnAround(fleet, model.ErrTooManyPlanets.Error(), e.log)
		return nil
	}

	ids := make([]string, 0, len(fleet.Ships))
	for id := range fleet.Ships {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if fleet.Ships[id] > 0 && e.hasUnit(map[string]int{id: 1}, colonizer) {
			fleet.Ships[id]--
			if fleet.Ships[id] == 0 {
				delete(fleet.Ships, id)
			}
			break
		}
	}

	planet := universe.Generate(uuid.New().String(), fleet.Owner, fleet.Target, fleet.Arrival)
	planet.Resources = fleet.Cargo
	fleet.Cargo = model.Resources{}

	if err := tx.SavePlanet(planet); err != nil {
		return err
	}

	if len(fleet.Ships) == 0 {
		stay(fleet)
	} else {
		fleet.Status = model.Returning
	}

	e.log.Trace(logger.Info, "fleet", fmt.Sprintf("Player \"%s\" colonized %s with %d field(s)", fleet.Owner, planet.Coordinates, planet.FieldsMax))

	return nil
}

// harvest :
// Collects the debris field at the target up to the free
// cargo space of the recyclers of the fleet, metal first.
func (e *Engine) harvest(tx store.Tx, fleet *model.Fleet) error {
	fleet.Status = model.Returning

	field, err := tx.Debris(fleet.Target)
	if errors.Is(err, model.ErrDebrisNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	recyclers := make(map[string]int)
	for id, count := range fleet.Ships {
		if e.hasUnit(map[string]int{id: count}, harvester) {
			recyclers[id] = count
		}
	}

	free := e.catalog.CargoCapacity(recyclers) - fleet.Cargo.Total()
	if free <= 0 {
		return nil
	}

	var collected model.Resources
	collected.Metal = min(field.Resources.Metal, free)
	collected.Crystal = min(field.Resources.Crystal, free-collected.Metal)

	field.Resources = field.Resources.Sub(collected)
	fleet.Cargo = fleet.Cargo.Add(collected)

	return tx.SaveDebris(field)
}

// comeBack :
// Unloads a fleet back at its origin. The fleet completes
// even if its origin does not exist anymore.
//
// Returns the events to emit once committed.
func (e *Engine) comeBack(tx store.Tx, fleet *model.Fleet) ([]notify.Event, error) {
	at := *fleet.Return
	fleet.Status = model.Completed

	origin, err := tx.Planet(fleet.Origin)
	if errors.Is(err, model.ErrPlanetNotFound) {
		e.log.Trace(logger.Warning, "fleet", fmt.Sprintf("Origin of fleet \"%s\" vanished, ships are lost", fleet.ID))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	events, err := e.accrual.Settle(tx, &origin, at)
	if err != nil {
		return nil, err
	}

	origin.Resources = origin.Resources.Add(fleet.Cargo)
	origin.AddShips(fleet.Ships)

	if err := tx.SavePlanet(origin); err != nil {
		return nil, err
	}

	return append(events, notify.Event{
		Kind:    notify.FleetReturned,
		Player:  fleet.Owner,
		Planet:  origin.ID,
		Entity:  fleet.ID,
		Element: string(fleet.Mission),
		At:      at,
	}), nil
}
