package fleet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/accrual"
	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/combat"
	"github.com/enamaryn/XNova-reforged-sub000/internal/locker"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/notify"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/internal/universe"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/google/uuid"
)

// Engine :
// Drives the fleets from their departure to their return.
// Fleets are created by `Send` and moved forward by the
// fleets sweep which applies the effects of their mission
// when they arrive and credits their origin when they come
// back.
//
// The `combat` resolves the battles of attacking fleets.
//
// The `universe` defines the dimensions of the universe and
// the speed of the fleets.
//
// The `batch` caps the number of fleets advanced by a single
// sweep.
type Engine struct {
	store    store.Store
	accrual  *accrual.Engine
	catalog  *catalog.Catalog
	combat   *combat.Engine
	universe universe.Universe
	locks    *locker.ConcurrentLocker
	notifier notify.Notifier
	log      logger.Logger
	batch    int
}

// Request :
// Describes a fleet to send.
//
// The `Origin` is the identifier of the planet the ships
// are taken from.
//
// The `Speed` is the throttle in percent.
type Request struct {
	Origin  string           `json:"origin"`
	Target  model.Coordinate `json:"target"`
	Mission model.Mission    `json:"mission"`
	Ships   map[string]int   `json:"ships"`
	Cargo   model.Resources  `json:"cargo"`
	Speed   int              `json:"speed"`
}

// defaultBatch :
// Number of fleets advanced by a sweep unless configured
// otherwise.
const defaultBatch = 500

// NewEngine :
// Creates a new fleets engine.
func NewEngine(s store.Store, acc *accrual.Engine, fight *combat.Engine, u universe.Universe, locks *locker.ConcurrentLocker, notifier notify.Notifier, log logger.Logger) *Engine {
	return &Engine{
		store:    s,
		accrual:  acc,
		catalog:  acc.Catalog(),
		combat:   fight,
		universe: u,
		locks:    locks,
		notifier: notifier,
		log:      log,
		batch:    defaultBatch,
	}
}

// WithBatch :
// Sets the number of fleets advanced by a single sweep.
func (e *Engine) WithBatch(batch int) *Engine {
	if batch > 0 {
		e.batch = batch
	}
	return e
}

// planetKey :
// Key of the lock protecting a planet.
func planetKey(id string) string {
	return "planet:" + id
}

// fleetKey :
// Key of the lock protecting a fleet.
func fleetKey(id string) string {
	return "fleet:" + id
}

// emit :
// Forwards the events to the notifier.
func (e *Engine) emit(events []notify.Event) {
	for _, ev := range events {
		e.notifier.Notify(ev)
	}
}

// validate :
// Checks the parts of the request that don't depend on
// the state of the universe.
func (e *Engine) validate(req Request) error {
	if !req.Mission.Valid() {
		return fmt.Errorf("%w: \"%s\"", model.ErrInvalidMission, req.Mission)
	}
	if !ValidThrottle(req.Speed) {
		return fmt.Errorf("%w: %d", model.ErrInvalidSpeed, req.Speed)
	}
	if !e.universe.Contains(req.Target) {
		return fmt.Errorf("%w: %s", model.ErrInvalidCoordinates, req.Target)
	}
	if req.Cargo.Metal < 0 || req.Cargo.Crystal < 0 || req.Cargo.Deuterium < 0 {
		return model.ErrNegativeCargo
	}

	total := 0
	for id, count := range req.Ships {
		if count < 0 {
			return fmt.Errorf("%w: %d \"%s\"", model.ErrInvalidAmount, count, id)
		}
		if _, err := e.catalog.ElementOfKind(id, catalog.ShipKind); err != nil {
			return err
		}
		total += count
	}
	if total == 0 {
		return model.ErrEmptyFleet
	}

	return nil
}

// hasUnit :
// Returns whether the roster contains a ship matching the
// predicate.
func (e *Engine) hasUnit(ships map[string]int, pred func(*catalog.UnitStats) bool) bool {
	for id, count := range ships {
		if count <= 0 {
			continue
		}
		if unit, err := e.catalog.Unit(id); err == nil && pred(unit) {
			return true
		}
	}

	return false
}

func colonizer(u *catalog.UnitStats) bool { return u.Colonizer }
func harvester(u *catalog.UnitStats) bool { return u.Harvester }

// checkTarget :
// Verifies that the target of a fleet is suited to its
// mission. The `target` is `nil` when the slot is empty.
func (e *Engine) checkTarget(player string, mission model.Mission, ships map[string]int, target *model.Planet) error {
	switch mission {
	case model.Attack:
		if target == nil || target.Owner == player {
			return fmt.Errorf("%w: attack needs a planet of another player", model.ErrInvalidTarget)
		}
	case model.Transport:
		if target == nil {
			return fmt.Errorf("%w: transport needs a planet", model.ErrInvalidTarget)
		}
	case model.Deploy:
		if target == nil || target.Owner != player {
			return fmt.Errorf("%w: deploy needs a planet of the player", model.ErrInvalidTarget)
		}
	case model.Colonize:
		if target != nil {
			return fmt.Errorf("%w: %s", model.ErrSlotTaken, target.Coordinates)
		}
		if !e.hasUnit(ships, colonizer) {
			return fmt.Errorf("%w: colonization needs a colony ship", model.ErrInvalidTarget)
		}
	case model.Harvest:
		if !e.hasUnit(ships, harvester) {
			return fmt.Errorf("%w: harvesting needs a recycler", model.ErrInvalidTarget)
		}
	}

	return nil
}

// canColonize :
// Returns whether the player may own one more planet.
func (e *Engine) canColonize(tx store.Tx, player string) (bool, error) {
	var astrophysics int

	user, err := tx.User(player)
	switch {
	case err == nil:
		astrophysics = user.Technology(catalog.Astrophysics)
	case !errors.Is(err, model.ErrUserNotFound):
		return false, err
	}

	planets, err := tx.PlanetsOf(player)
	if err != nil {
		return false, err
	}

	return len(planets) < e.universe.PlanetsAllowed(astrophysics), nil
}

// planetAt :
// Returns the planet at the coordinates or `nil` if the
// slot is empty.
func planetAt(tx store.Tx, c model.Coordinate) (*model.Planet, error) {
	p, err := tx.PlanetAt(c)
	if errors.Is(err, model.ErrPlanetNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// Send :
// Creates a fleet from the ships of the origin planet. The
// ships, the cargo and the fuel are taken from the planet
// along with the creation of the fleet.
//
// Returns the fleet and the origin planet after departure.
func (e *Engine) Send(ctx context.Context, player string, req Request, now time.Time) (model.Fleet, model.Planet, error) {
	if err := e.validate(req); err != nil {
		return model.Fleet{}, model.Planet{}, err
	}

	var fleet model.Fleet
	var origin model.Planet
	var settled []notify.Event

	err := e.locks.Run(planetKey(req.Origin), func() error {
		return e.store.Atomic(ctx, func(tx store.Tx) error {
			var err error
			origin, err = tx.Planet(req.Origin)
			if err != nil {
				return err
			}
			if origin.Owner != player {
				return model.ErrNotOwner
			}
			if origin.Coordinates == req.Target {
				return fmt.Errorf("%w: fleet already at %s", model.ErrInvalidTarget, req.Target)
			}

			settled, err = e.accrual.Settle(tx, &origin, now)
			if err != nil {
				return err
			}

			user, err := tx.User(player)
			if err != nil {
				return err
			}

			ships := make(map[string]int)
			for id, count := range req.Ships {
				if count == 0 {
					continue
				}
				if origin.Ships[id] < count {
					return fmt.Errorf("%w: %d \"%s\" available", model.ErrNotEnoughShips, origin.Ships[id], id)
				}
				ships[id] = count
			}

			target, err := planetAt(tx, req.Target)
			if err != nil {
				return err
			}
			if err := e.checkTarget(player, req.Mission, ships, target); err != nil {
				return err
			}
			if req.Mission == model.Colonize {
				ok, err := e.canColonize(tx, player)
				if err != nil {
					return err
				}
				if !ok {
					return model.ErrTooManyPlanets
				}
			}

			plan, err := NewPlan(e.catalog, ships, user.Technologies, origin.Coordinates, req.Target, req.Speed, e.universe.FleetSpeed)
			if err != nil {
				return err
			}

			if req.Cargo.Total()+plan.Fuel > plan.Capacity {
				return fmt.Errorf("%w: %d + %d over %d", model.ErrInsufficientCargo, req.Cargo.Total(), plan.Fuel, plan.Capacity)
			}
			if origin.Resources.Deuterium < req.Cargo.Deuterium+plan.Fuel {
				return fmt.Errorf("%w: %d needed", model.ErrNotEnoughFuel, plan.Fuel)
			}
			if !origin.Resources.Covers(req.Cargo) {
				return fmt.Errorf("%w: %+v needed, %+v available", model.ErrNotEnoughResources, req.Cargo, origin.Resources)
			}

			origin.Resources = origin.Resources.Sub(req.Cargo).Sub(model.Resources{Deuterium: plan.Fuel})
			for id, count := range ships {
				origin.Ships[id] -= count
				if origin.Ships[id] == 0 {
					delete(origin.Ships, id)
				}
			}

			arrival := now.Add(plan.Duration)
			back := arrival.Add(plan.Duration)

			fleet = model.Fleet{
				ID:                uuid.New().String(),
				Owner:             player,
				Origin:            origin.ID,
				OriginCoordinates: origin.Coordinates,
				Target:            req.Target,
				Mission:           req.Mission,
				Ships:             ships,
				Cargo:             req.Cargo,
				Fuel:              plan.Fuel,
				Speed:             req.Speed,
				Start:             now,
				Arrival:           arrival,
				Return:            &back,
				Status:            model.Traveling,
			}

			if err := tx.SavePlanet(origin); err != nil {
				return err
			}
			if err := tx.SaveFleet(fleet); err != nil {
				return err
			}

			if now.After(user.LastActive) {
				user.LastActive = now
				return tx.SaveUser(user)
			}

			return nil
		})
	})

	if err != nil {
		return model.Fleet{}, model.Planet{}, err
	}

	e.emit(append(settled, notify.Event{
		Kind:    notify.FleetSent,
		Player:  player,
		Planet:  origin.ID,
		Entity:  fleet.ID,
		Element: string(fleet.Mission),
		At:      now,
	}))

	e.log.Trace(logger.Verbose, "fleet", fmt.Sprintf("Fleet \"%s\" sent from %s to %s (%s, arrival at %v)", fleet.ID, origin.Coordinates, fleet.Target, fleet.Mission, fleet.Arrival))

	return fleet, origin, nil
}

// Recall :
// Turns a travelling fleet around. It comes back after as
// much time as it spent travelling and the effect of its
// mission is never applied. A fleet which already reached
// its target can't be recalled.
func (e *Engine) Recall(ctx context.Context, player string, id string, now time.Time) (model.Fleet, error) {
	var fleet model.Fleet

	err := e.locks.Run(fleetKey(id), func() error {
		return e.store.Atomic(ctx, func(tx store.Tx) error {
			var err error
			fleet, err = tx.Fleet(id)
			if err != nil {
				return err
			}
			if fleet.Owner != player {
				return model.ErrNotOwner
			}
			if fleet.Status != model.Traveling || !now.Before(fleet.Arrival) {
				return model.ErrFleetNotTraveling
			}

			elapsed := now.Sub(fleet.Start)
			if elapsed < 0 {
				elapsed = 0
			}
			back := now.Add(elapsed)

			fleet.Return = &back
			fleet.Status = model.Returning

			return tx.SaveFleet(fleet)
		})
	})

	if err != nil {
		return model.Fleet{}, err
	}

	e.emit([]notify.Event{{
		Kind:    notify.FleetRecalled,
		Player:  player,
		Planet:  fleet.Origin,
		Entity:  fleet.ID,
		Element: string(fleet.Mission),
		At:      now,
	}})

	return fleet, nil
}

// Get :
// Returns a fleet of the player.
func (e *Engine) Get(ctx context.Context, player string, id string) (model.Fleet, error) {
	var fleet model.Fleet

	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		var err error
		fleet, err = tx.Fleet(id)
		return err
	})
	if err != nil {
		return model.Fleet{}, err
	}

	if fleet.Owner != player {
		return model.Fleet{}, model.ErrNotOwner
	}

	return fleet, nil
}

// List :
// Returns the fleets of the player that are still moving.
func (e *Engine) List(ctx context.Context, player string) ([]model.Fleet, error) {
	out := make([]model.Fleet, 0)

	err := e.store.Atomic(ctx, func(tx store.Tx) error {
		fleets, err := tx.FleetsOf(player)
		if err != nil {
			return err
		}

		for _, f := range fleets {
			if f.Status != model.Completed {
				out = append(out, f)
			}
		}

		return nil
	})

	return out, err
}
