package queue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/accrual"
	"github.com/enamaryn/XNova-reforged-sub000/internal/catalog"
	"github.com/enamaryn/XNova-reforged-sub000/internal/locker"
	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/enamaryn/XNova-reforged-sub000/internal/notify"
	"github.com/enamaryn/XNova-reforged-sub000/internal/store"
	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
	"github.com/google/uuid"
)

// Scheduler :
// Handles the three production queues: the buildings of a
// planet, the research of a player and the shipyard of a
// planet. The cost of an entry is debited when it is created
// and its effect applied once its end time has passed, by
// the queues sweep or lazily by any operation touching the
// planet or the player.
//
// The `store` is the persistence layer.
//
// The `accrual` keeps the stock of the planets up to date
// before debiting or crediting them.
//
// The `catalog` provides the prices and construction times.
//
// The `locks` serializes the processing of a planet or of a
// player.
//
// The `notifier` receives the events once committed.
type Scheduler struct {
	store    store.Store
	accrual  *accrual.Engine
	catalog  *catalog.Catalog
	config   Config
	locks    *locker.ConcurrentLocker
	notifier notify.Notifier
	log      logger.Logger
}

// Queues :
// Content of the queues of a planet.
//
// The `Research` is the research in progress of the owner
// of the planet, which is not necessarily conducted on this
// planet.
type Queues struct {
	Planet    model.Planet       `json:"planet"`
	Buildings []model.QueueEntry `json:"buildings"`
	Ships     []model.QueueEntry `json:"ships"`
	Research  *model.QueueEntry  `json:"research,omitempty"`
}

// NewScheduler :
// Creates a new scheduler.
func NewScheduler(s store.Store, acc *accrual.Engine, config Config, locks *locker.ConcurrentLocker, notifier notify.Notifier, log logger.Logger) *Scheduler {
	return &Scheduler{
		store:    s,
		accrual:  acc,
		catalog:  acc.Catalog(),
		config:   config,
		locks:    locks,
		notifier: notifier,
		log:      log,
	}
}

// planetKey :
// Key of the lock protecting a planet.
func planetKey(id string) string {
	return "planet:" + id
}

// userKey :
// Key of the lock protecting a player.
func userKey(id string) string {
	return "user:" + id
}

// maxSeconds :
// Longest construction time, in seconds, which can still be
// represented as a `time.Duration`.
const maxSeconds = float64(math.MaxInt64 / int64(time.Second))

// duration :
// Converts a construction time at normal speed to the time
// actually needed, of at least one second.
//
// Returns an error when the time cannot be represented.
func (s *Scheduler) duration(seconds float64) (time.Duration, error) {
	secs := math.Floor(seconds / s.config.Speed)
	if math.IsNaN(secs) || secs >= maxSeconds {
		return 0, fmt.Errorf("%w: %g seconds", model.ErrDurationOverflow, secs)
	}
	if secs < 1.0 {
		secs = 1.0
	}

	return time.Duration(secs) * time.Second, nil
}

// emit :
// Forwards the events to the notifier.
func (s *Scheduler) emit(events []notify.Event) {
	for _, e := range events {
		s.notifier.Notify(e)
	}
}

// completedEvent :
// Builds the event of a completed entry.
func completedEvent(e model.QueueEntry) notify.Event {
	return notify.Event{
		Kind:    notify.QueueCompleted,
		Player:  e.Player,
		Planet:  e.Planet,
		Entity:  e.ID,
		Element: e.Element,
		Level:   e.Level,
		Amount:  e.Amount,
		At:      e.End,
	}
}

// ownedPlanet :
// Loads a planet and checks that it belongs to the player.
func ownedPlanet(tx store.Tx, player string, id string) (model.Planet, error) {
	planet, err := tx.Planet(id)
	if err != nil {
		return model.Planet{}, err
	}
	if planet.Owner != player {
		return model.Planet{}, model.ErrNotOwner
	}

	return planet, nil
}

// apply :
// Applies the effect of a building or ship entry to the
// planet. A building level is never lowered.
func (s *Scheduler) apply(planet *model.Planet, e model.QueueEntry) {
	switch e.Kind {
	case model.BuildingQueue:
		if planet.Buildings == nil {
			planet.Buildings = make(map[string]int)
		}

		current := planet.Buildings[e.Element]
		if e.Level <= current {
			return
		}

		if s.catalog.UsesFields(e.Element) {
			planet.FieldsUsed += e.Level - current
		}
		planet.Buildings[e.Element] = e.Level

	case model.ShipQueue:
		if e.Amount <= 0 {
			return
		}

		if s.catalog.IsShip(e.Element) {
			planet.AddShips(map[string]int{e.Element: e.Amount})
			return
		}

		if planet.Defenses == nil {
			planet.Defenses = make(map[string]int)
		}
		planet.Defenses[e.Element] += e.Amount
	}
}

// settle :
// Completes the building and ship entries of the planet
// that are due at `now`, in the order of their end. The
// stock is rolled forward to the end of each entry before
// applying it so that a new production level only counts
// from the instant it was reached. The planet is finally
// refreshed up to `now`. Neither the planet nor the events
// are saved or emitted.
//
// Returns the entries completed.
func (s *Scheduler) settle(tx store.Tx, planet *model.Planet, now time.Time) ([]model.QueueEntry, error) {
	var due []model.QueueEntry

	for _, kind := range []model.QueueKind{model.BuildingQueue, model.ShipQueue} {
		entries, err := tx.QueueEntries(planet.ID, kind)
		if err != nil {
			return nil, err
		}

		for _, e := range entries {
			if e.Due(now) {
				due = append(due, e)
			}
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].End.Before(due[j].End)
	})

	for i := range due {
		if err := s.accrual.Roll(tx, planet, due[i].End); err != nil {
			return nil, err
		}

		s.apply(planet, due[i])

		due[i].Completed = true
		if err := tx.SaveQueueEntry(due[i]); err != nil {
			return nil, err
		}
	}

	if err := s.accrual.Roll(tx, planet, now); err != nil {
		return nil, err
	}

	return due, nil
}

// completedEvents :
// Builds the events of the completed entries.
func completedEvents(entries []model.QueueEntry) []notify.Event {
	events := make([]notify.Event, 0, len(entries))
	for _, e := range entries {
		events = append(events, completedEvent(e))
	}

	return events
}

// settleResearch :
// Completes the research of the player if it is due. The
// planets of the player are settled up to the end of the
// research first so that the new level only counts from
// this instant. Each planet is read again through a point
// read as the listing does not lock the rows. The player
// and the planets are saved if modified.
//
// Returns the completed research or `nil` along with the
// entries of the planets completed on the way.
func (s *Scheduler) settleResearch(tx store.Tx, user *model.User, now time.Time) (*model.QueueEntry, []model.QueueEntry, error) {
	if user.Research == nil || !user.Research.Due(now) {
		return nil, nil, nil
	}

	entry := *user.Research

	listed, err := tx.PlanetsOf(user.ID)
	if err != nil {
		return nil, nil, err
	}

	var done []model.QueueEntry
	for _, p := range listed {
		planet, err := tx.Planet(p.ID)
		if err != nil {
			return nil, nil, err
		}

		completed, err := s.settle(tx, &planet, entry.End)
		if err != nil {
			return nil, nil, err
		}
		done = append(done, completed...)

		if err := tx.SavePlanet(planet); err != nil {
			return nil, nil, err
		}
	}

	if user.Technologies == nil {
		user.Technologies = make(map[string]int)
	}
	if entry.Level > user.Technologies[entry.Element] {
		user.Technologies[entry.Element] = entry.Level
	}
	user.Research = nil

	if err := tx.SaveUser(*user); err != nil {
		return nil, nil, err
	}

	entry.Completed = true

	return &entry, done, nil
}

// Settle :
// Brings a planet up to `now`. The research of its owner is
// completed first when due, then the building and ship
// entries of the planet in the order of their end, the stock
// being rolled forward to each of them before reaching
// `now`. The planet itself is not saved.
//
// Returns the events to emit once the transaction is
// committed.
func (s *Scheduler) Settle(tx store.Tx, planet *model.Planet, now time.Time) ([]notify.Event, error) {
	var events []notify.Event

	user, err := tx.User(planet.Owner)
	switch {
	case errors.Is(err, model.ErrUserNotFound):
	case err != nil:
		return nil, err
	default:
		research, done, err := s.settleResearch(tx, &user, now)
		if err != nil {
			return nil, err
		}
		if research != nil {
			events = append(events, completedEvents(done)...)
			events = append(events, completedEvent(*research))

			// The planets of the owner were saved.
			if *planet, err = tx.Planet(planet.ID); err != nil {
				return nil, err
			}
		}
	}

	done, err := s.settle(tx, planet, now)
	if err != nil {
		return nil, err
	}

	return append(events, completedEvents(done)...), nil
}

// Get :
// Returns the queues of a planet of the player after having
// completed the due entries.
func (s *Scheduler) Get(ctx context.Context, player string, planetID string, now time.Time) (Queues, error) {
	var out Queues
	var events []notify.Event

	err := s.locks.Run(planetKey(planetID), func() error {
		return s.store.Atomic(ctx, func(tx store.Tx) error {
			planet, err := ownedPlanet(tx, player, planetID)
			if err != nil {
				return err
			}

			if events, err = s.Settle(tx, &planet, now); err != nil {
				return err
			}
			if err := tx.SavePlanet(planet); err != nil {
				return err
			}

			user, err := tx.User(player)
			if err != nil {
				return err
			}

			out = Queues{Planet: planet, Research: user.Research}

			if out.Buildings, err = tx.QueueEntries(planetID, model.BuildingQueue); err != nil {
				return err
			}
			if out.Ships, err = tx.QueueEntries(planetID, model.ShipQueue); err != nil {
				return err
			}

			return nil
		})
	})

	if err == nil {
		s.emit(events)
	}

	return out, err
}

// Planet :
// Returns the planet of the player with its due entries
// completed and its stock refreshed up to `now`.
func (s *Scheduler) Planet(ctx context.Context, player string, planetID string, now time.Time) (model.Planet, error) {
	queues, err := s.Get(ctx, player, planetID, now)
	return queues.Planet, err
}

// Start :
// Creates an entry in the queue of the input kind for the
// element. For ships and defenses `amount` is the number of
// units to build; it is ignored otherwise.
//
// Returns the created entry and the planet after the cost
// was debited.
func (s *Scheduler) Start(ctx context.Context, kind model.QueueKind, player string, planetID string, element string, amount int, now time.Time) (model.QueueEntry, model.Planet, error) {
	var elem *catalog.Element
	var err error

	switch kind {
	case model.BuildingQueue:
		elem, err = s.catalog.ElementOfKind(element, catalog.BuildingKind)
	case model.ResearchQueue:
		elem, err = s.catalog.ElementOfKind(element, catalog.TechnologyKind)
	case model.ShipQueue:
		elem, err = s.catalog.ElementOfKind(element, catalog.ShipKind, catalog.DefenseKind)
		if err == nil && (amount <= 0 || amount > s.config.MaxUnits) {
			err = fmt.Errorf("%w: %d not in [1, %d]", model.ErrInvalidAmount, amount, s.config.MaxUnits)
		}
	default:
		err = fmt.Errorf("%w: unknown queue \"%s\"", model.ErrValidation, kind)
	}
	if err != nil {
		return model.QueueEntry{}, model.Planet{}, err
	}

	key := planetKey(planetID)
	if kind == model.ResearchQueue {
		key = userKey(player)
	}

	var entry model.QueueEntry
	var planet model.Planet
	var events []notify.Event

	err = s.locks.Run(key, func() error {
		return s.store.Atomic(ctx, func(tx store.Tx) error {
			var err error
			planet, err = ownedPlanet(tx, player, planetID)
			if err != nil {
				return err
			}

			if events, err = s.Settle(tx, &planet, now); err != nil {
				return err
			}

			user, err := tx.User(player)
			if err != nil {
				return err
			}

			if ok, missing := s.catalog.RequirementsMet(element, planet.Buildings, user.Technologies); !ok {
				return fmt.Errorf("%w: missing %v", model.ErrTechDepsNotMet, missing)
			}

			entry = model.QueueEntry{
				ID:      uuid.New().String(),
				Kind:    kind,
				Planet:  planetID,
				Player:  player,
				Element: element,
				Start:   now,
			}

			switch kind {
			case model.BuildingQueue:
				err = s.prepareBuilding(tx, elem, &planet, &entry)
			case model.ResearchQueue:
				err = s.prepareResearch(elem, &user, &planet, &entry)
			default:
				err = s.prepareShips(tx, elem, &planet, &entry, amount)
			}
			if err != nil {
				return err
			}

			if !planet.Resources.Covers(entry.Cost) {
				return fmt.Errorf("%w: %+v needed, %+v available", model.ErrNotEnoughResources, entry.Cost, planet.Resources)
			}
			planet.Resources = planet.Resources.Sub(entry.Cost)

			if err := tx.SavePlanet(planet); err != nil {
				return err
			}

			if kind == model.ResearchQueue {
				r := entry
				user.Research = &r
			} else if err := tx.SaveQueueEntry(entry); err != nil {
				return err
			}

			if now.After(user.LastActive) {
				user.LastActive = now
			}
			if err := tx.SaveUser(user); err != nil {
				return err
			}

			events = append(events, notify.Event{
				Kind:    notify.QueueStarted,
				Player:  player,
				Planet:  planetID,
				Entity:  entry.ID,
				Element: element,
				Level:   entry.Level,
				Amount:  entry.Amount,
				At:      now,
			})

			return nil
		})
	})

	if err != nil {
		return model.QueueEntry{}, model.Planet{}, err
	}

	s.emit(events)

	s.log.Trace(logger.Verbose, "queue", fmt.Sprintf("Started %s \"%s\" on \"%s\" until %v", kind, element, planetID, entry.End))

	return entry, planet, nil
}

// prepareBuilding :
// Checks that the building can be upgraded and computes the
// target level, cost and times of the entry.
func (s *Scheduler) prepareBuilding(tx store.Tx, elem *catalog.Element, planet *model.Planet, entry *model.QueueEntry) error {
	pending, err := tx.QueueEntries(planet.ID, model.BuildingQueue)
	if err != nil {
		return err
	}

	pendingFields := 0
	for _, e := range pending {
		if e.Element == elem.ID {
			return fmt.Errorf("%w: \"%s\"", model.ErrConflictingEntry, elem.ID)
		}
		if s.catalog.UsesFields(e.Element) {
			pendingFields++
		}
	}
	if len(pending) >= s.config.BuildSlots {
		return model.ErrQueueFull
	}

	entry.Level = planet.Level(elem.ID) + 1
	if elem.MaxLevel > 0 && entry.Level > elem.MaxLevel {
		return fmt.Errorf("%w: \"%s\" is capped at %d", model.ErrLevelCap, elem.ID, elem.MaxLevel)
	}

	if !elem.FieldExempt && planet.FieldsUsed+pendingFields >= planet.FieldsMax {
		return model.ErrNoFieldsLeft
	}

	cost, err := s.catalog.Cost(elem.ID, entry.Level-1)
	if err != nil {
		return err
	}
	seconds, err := s.catalog.BuildTime(elem.ID, entry.Level-1, catalog.FacilitiesOf(planet.Buildings))
	if err != nil {
		return err
	}

	d, err := s.duration(seconds)
	if err != nil {
		return err
	}

	entry.Cost = cost
	entry.End = entry.Start.Add(d)

	return nil
}

// prepareResearch :
// Checks that no research is in progress and computes the
// target level, cost and times of the entry. The laboratory
// of the planet is used.
func (s *Scheduler) prepareResearch(elem *catalog.Element, user *model.User, planet *model.Planet, entry *model.QueueEntry) error {
	if user.Research != nil {
		return model.ErrResearchInProgress
	}

	entry.Level = user.Technology(elem.ID) + 1
	if elem.MaxLevel > 0 && entry.Level > elem.MaxLevel {
		return fmt.Errorf("%w: \"%s\" is capped at %d", model.ErrLevelCap, elem.ID, elem.MaxLevel)
	}

	cost, err := s.catalog.Cost(elem.ID, entry.Level-1)
	if err != nil {
		return err
	}
	seconds, err := s.catalog.BuildTime(elem.ID, entry.Level-1, catalog.FacilitiesOf(planet.Buildings))
	if err != nil {
		return err
	}

	d, err := s.duration(seconds)
	if err != nil {
		return err
	}

	entry.Cost = cost
	entry.End = entry.Start.Add(d)

	return nil
}

// prepareShips :
// Computes the cost and times of a batch of units. The
// batch starts when the last entry of the shipyard ends.
func (s *Scheduler) prepareShips(tx store.Tx, elem *catalog.Element, planet *model.Planet, entry *model.QueueEntry, amount int) error {
	pending, err := tx.QueueEntries(planet.ID, model.ShipQueue)
	if err != nil {
		return err
	}

	if elem.MaxLevel > 0 {
		total := planet.Defenses[elem.ID] + planet.Ships[elem.ID] + amount
		for _, e := range pending {
			if e.Element == elem.ID {
				total += e.Amount
			}
		}
		if total > elem.MaxLevel {
			return fmt.Errorf("%w: at most %d \"%s\"", model.ErrLevelCap, elem.MaxLevel, elem.ID)
		}
	}

	cost, err := s.catalog.Cost(elem.ID, amount)
	if err != nil {
		return err
	}
	seconds, err := s.catalog.BuildTime(elem.ID, amount, catalog.FacilitiesOf(planet.Buildings))
	if err != nil {
		return err
	}

	entry.Amount = amount
	entry.Cost = cost

	if len(pending) > 0 {
		last := pending[len(pending)-1]
		entry.Position = last.Position + 1
		if last.End.After(entry.Start) {
			entry.Start = last.End
		}
	}

	d, err := s.duration(seconds)
	if err != nil {
		return err
	}

	entry.End = entry.Start.Add(d)

	return nil
}
