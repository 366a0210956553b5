package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
)

// memoryState :
// Content of an in-memory store.
type memoryState struct {
	planets map[string]model.Planet
	users   map[string]model.User
	entries map[string]model.QueueEntry
	fleets  map[string]model.Fleet
	reports map[string]model.CombatReport
	debris  map[model.Coordinate]model.DebrisField
}

func newMemoryState() *memoryState {
	return &memoryState{
		planets: make(map[string]model.Planet),
		users:   make(map[string]model.User),
		entries: make(map[string]model.QueueEntry),
		fleets:  make(map[string]model.Fleet),
		reports: make(map[string]model.CombatReport),
		debris:  make(map[model.Coordinate]model.DebrisField),
	}
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// clone :
// Copies the maps of the state. Values are cloned when
// they are read or written so sharing them is safe.
func (s *memoryState) clone() *memoryState {
	return &memoryState{
		planets: copyMap(s.planets),
		users:   copyMap(s.users),
		entries: copyMap(s.entries),
		fleets:  copyMap(s.fleets),
		reports: copyMap(s.reports),
		debris:  copyMap(s.debris),
	}
}

// Memory :
// Store keeping everything in memory. Transactions are
// serialized by a single lock and work on a copy of the
// state which replaces the current one upon success.
// Used by the tests and by the `memory` database driver.
type Memory struct {
	lock  sync.Mutex
	state *memoryState
}

// NewMemory :
// Creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		state: newMemoryState(),
	}
}

// Atomic :
// Implementation of the `Store` interface.
func (m *Memory) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return model.Transient(err)
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	tx := &memoryTx{state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}

	m.state = tx.state

	return nil
}

// Close :
// Implementation of the `Store` interface.
func (m *Memory) Close() error {
	return nil
}

// memoryTx :
// Transaction of the in-memory store.
type memoryTx struct {
	state *memoryState
}

func (tx *memoryTx) Planet(id string) (model.Planet, error) {
	p, ok := tx.state.planets[id]
	if !ok {
		return model.Planet{}, model.ErrPlanetNotFound
	}

	return p.Clone(), nil
}

func (tx *memoryTx) PlanetAt(coordinates model.Coordinate) (model.Planet, error) {
	for _, p := range tx.state.planets {
		if p.Coordinates == coordinates {
			return p.Clone(), nil
		}
	}

	return model.Planet{}, model.ErrPlanetNotFound
}

func (tx *memoryTx) PlanetsOf(owner string) ([]model.Planet, error) {
	var out []model.Planet
	for _, p := range tx.state.planets {
		if p.Owner == owner {
			out = append(out, p.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (tx *memoryTx) SavePlanet(planet model.Planet) error {
	if len(planet.ID) == 0 {
		return model.ErrInvalidIdentifier
	}

	for id, p := range tx.state.planets {
		if id != planet.ID && p.Coordinates == planet.Coordinates {
			return model.ErrSlotTaken
		}
	}

	tx.state.planets[planet.ID] = planet.Clone()

	return nil
}

func (tx *memoryTx) StalePlanets(activeSince time.Time, activeBefore time.Time, idleBefore time.Time, limit int) ([]string, error) {
	var stale []model.Planet

	for _, p := range tx.state.planets {
		threshold := idleBefore
		if u, ok := tx.state.users[p.Owner]; ok && !u.LastActive.Before(activeSince) {
			threshold = activeBefore
		}

		if p.LastUpdate.Before(threshold) {
			stale = append(stale, p)
		}
	}

	sort.Slice(stale, func(i, j int) bool {
		if !stale[i].LastUpdate.Equal(stale[j].LastUpdate) {
			return stale[i].LastUpdate.Before(stale[j].LastUpdate)
		}
		return stale[i].ID < stale[j].ID
	})

	var out []string
	for _, p := range stale {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, p.ID)
	}

	return out, nil
}

func (tx *memoryTx) User(id string) (model.User, error) {
	u, ok := tx.state.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}

	return u.Clone(), nil
}

func (tx *memoryTx) SaveUser(user model.User) error {
	if len(user.ID) == 0 {
		return model.ErrInvalidIdentifier
	}

	tx.state.users[user.ID] = user.Clone()

	return nil
}

func (tx *memoryTx) UsersWithResearchDue(now time.Time, limit int) ([]string, error) {
	var due []model.User
	for _, u := range tx.state.users {
		if u.Research != nil && !u.Research.End.After(now) {
			due = append(due, u)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].Research.End.Equal(due[j].Research.End) {
			return due[i].Research.End.Before(due[j].Research.End)
		}
		return due[i].ID < due[j].ID
	})

	var out []string
	for _, u := range due {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, u.ID)
	}

	return out, nil
}

func (tx *memoryTx) QueueEntry(id string) (model.QueueEntry, error) {
	e, ok := tx.state.entries[id]
	if !ok {
		return model.QueueEntry{}, model.ErrEntryNotFound
	}

	return e, nil
}

func (tx *memoryTx) QueueEntries(planet string, kind model.QueueKind) ([]model.QueueEntry, error) {
	var out []model.QueueEntry
	for _, e := range tx.state.entries {
		if e.Planet == planet && e.Kind == kind && !e.Completed {
			out = append(out, e)
		}
	}

	sortEntries(out)

	return out, nil
}

// sortEntries :
// Orders entries by position, then by start.
func sortEntries(entries []model.QueueEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Position != entries[j].Position {
			return entries[i].Position < entries[j].Position
		}
		if !entries[i].Start.Equal(entries[j].Start) {
			return entries[i].Start.Before(entries[j].Start)
		}
		return entries[i].ID < entries[j].ID
	})
}

func (tx *memoryTx) SaveQueueEntry(entry model.QueueEntry) error {
	if len(entry.ID) == 0 {
		return model.ErrInvalidIdentifier
	}

	tx.state.entries[entry.ID] = entry

	return nil
}

func (tx *memoryTx) DeleteQueueEntry(id string) error {
	if _, ok := tx.state.entries[id]; !ok {
		return model.ErrEntryNotFound
	}

	delete(tx.state.entries, id)

	return nil
}

func (tx *memoryTx) DueQueueEntries(now time.Time, limit int) ([]model.QueueEntry, error) {
	var due []model.QueueEntry
	for _, e := range tx.state.entries {
		if e.Due(now) {
			due = append(due, e)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].End.Equal(due[j].End) {
			return due[i].End.Before(due[j].End)
		}
		return due[i].ID < due[j].ID
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	return due, nil
}

func (tx *memoryTx) PurgeCompletedEntries(before time.Time) (int, error) {
	count := 0
	for id, e := range tx.state.entries {
		if e.Completed && e.End.Before(before) {
			delete(tx.state.entries, id)
			count++
		}
	}

	return count, nil
}

func (tx *memoryTx) Fleet(id string) (model.Fleet, error) {
	f, ok := tx.state.fleets[id]
	if !ok {
		return model.Fleet{}, model.ErrFleetNotFound
	}

	return f.Clone(), nil
}

func (tx *memoryTx) FleetsOf(owner string) ([]model.Fleet, error) {
	var out []model.Fleet
	for _, f := range tx.state.fleets {
		if f.Owner == owner {
			out = append(out, f.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

func (tx *memoryTx) SaveFleet(fleet model.Fleet) error {
	if len(fleet.ID) == 0 {
		return model.ErrInvalidIdentifier
	}

	tx.state.fleets[fleet.ID] = fleet.Clone()

	return nil
}

func (tx *memoryTx) DueFleets(now time.Time, limit int) ([]model.Fleet, error) {
	type dueFleet struct {
		fleet model.Fleet
		at    time.Time
	}

	var due []dueFleet
	for _, f := range tx.state.fleets {
		at, ok := f.NextEvent()
		if ok && !at.After(now) {
			due = append(due, dueFleet{fleet: f, at: at})
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].at.Equal(due[j].at) {
			return due[i].at.Before(due[j].at)
		}
		return due[i].fleet.ID < due[j].fleet.ID
	})

	var out []model.Fleet
	for _, d := range due {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, d.fleet.Clone())
	}

	return out, nil
}

func (tx *memoryTx) Report(id string) (model.CombatReport, error) {
	r, ok := tx.state.reports[id]
	if !ok {
		return model.CombatReport{}, model.ErrReportNotFound
	}

	return r, nil
}

func (tx *memoryTx) SaveReport(report model.CombatReport) error {
	if len(report.ID) == 0 {
		return model.ErrInvalidIdentifier
	}

	tx.state.reports[report.ID] = report

	return nil
}

func (tx *memoryTx) Debris(coordinates model.Coordinate) (model.DebrisField, error) {
	d, ok := tx.state.debris[coordinates]
	if !ok {
		return model.DebrisField{}, model.ErrDebrisNotFound
	}

	return d, nil
}

func (tx *memoryTx) SaveDebris(debris model.DebrisField) error {
	if debris.Resources.IsZero() {
		delete(tx.state.debris, debris.Coordinates)
		return nil
	}

	tx.state.debris[debris.Coordinates] = debris

	return nil
}
