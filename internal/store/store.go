package store

import (
	"context"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
)

// Store :
// Persistence port of the engine. Every operation is run
// through `Atomic` which guarantees that the writes of the
// function are either all applied or none of them is, and
// that concurrent transactions do not observe each other
// half-way.
type Store interface {
	// Atomic :
	// Runs the function in a transaction. The transaction is
	// committed if the function returns `nil` and rolled back
	// otherwise, in which case the error is returned as is.
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	// Close :
	// Releases the resources held by the store.
	Close() error
}

// Tx :
// Operations available within a transaction. Point reads
// fail with the not found error of the entity when it does
// not exist. Reads return copies: modifying them has no
// effect until they are saved.
type Tx interface {
	Planet(id string) (model.Planet, error)
	PlanetAt(coordinates model.Coordinate) (model.Planet, error)
	PlanetsOf(owner string) ([]model.Planet, error)
	SavePlanet(planet model.Planet) error

	// StalePlanets :
	// Returns the identifiers of the planets that should be
	// refreshed: the ones of players active since `activeSince`
	// not refreshed since `activeBefore`, and the ones of idle
	// players not refreshed since `idleBefore`.
	StalePlanets(activeSince time.Time, activeBefore time.Time, idleBefore time.Time, limit int) ([]string, error)

	User(id string) (model.User, error)
	SaveUser(user model.User) error

	// UsersWithResearchDue :
	// Returns the identifiers of the players whose research
	// ends at or before `now`, the earliest first.
	UsersWithResearchDue(now time.Time, limit int) ([]string, error)

	QueueEntry(id string) (model.QueueEntry, error)

	// QueueEntries :
	// Returns the entries of the planet for a queue that are
	// not completed, ordered by position and start.
	QueueEntries(planet string, kind model.QueueKind) ([]model.QueueEntry, error)
	SaveQueueEntry(entry model.QueueEntry) error
	DeleteQueueEntry(id string) error

	// DueQueueEntries :
	// Returns the entries not completed with an end at or
	// before `now`, the earliest first.
	DueQueueEntries(now time.Time, limit int) ([]model.QueueEntry, error)

	// PurgeCompletedEntries :
	// Removes the completed entries which ended before the
	// input time and returns how many were removed.
	PurgeCompletedEntries(before time.Time) (int, error)

	Fleet(id string) (model.Fleet, error)
	FleetsOf(owner string) ([]model.Fleet, error)
	SaveFleet(fleet model.Fleet) error

	// DueFleets :
	// Returns the fleets whose next event happens at or
	// before `now`, the earliest first.
	DueFleets(now time.Time, limit int) ([]model.Fleet, error)

	Report(id string) (model.CombatReport, error)
	SaveReport(report model.CombatReport) error

	Debris(coordinates model.Coordinate) (model.DebrisField, error)

	// SaveDebris :
	// Upserts a debris field. A field without resources is
	// removed.
	SaveDebris(debris model.DebrisField) error
}
