package model

import (
	"errors"
	"fmt"
)

// Kinds of failures an operation of the engine can report.
// Every error returned by the engine matches exactly one of
// them through `errors.Is`, which is what the transport uses
// to select a status code.
var (
	// ErrValidation : malformed or out-of-range input, rejected
	// before any state change.
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition : the request is well formed but the state
	// of the world does not allow it.
	ErrPrecondition = errors.New("precondition failed")

	// ErrNotFound : the entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied : the entity exists but belongs to another
	// player.
	ErrAccessDenied = errors.New("access denied")

	// ErrTransient : the storage or another infrastructure piece
	// failed. The operation can be attempted again.
	ErrTransient = errors.New("transient failure")
)

// Error :
// A specific failure attached to one of the kinds above.
//
// The `kind` is one of the kind sentinels.
//
// The `msg` describes the failure.
type Error struct {
	kind error
	msg  string
}

// Error :
// Implementation of the `error` interface.
func (e *Error) Error() string {
	return e.msg
}

// Is :
// Allows `errors.Is` to match the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.kind
}

// Kind :
// Returns the kind sentinel of this error.
func (e *Error) Kind() error {
	return e.kind
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Validation errors.
var (
	ErrUnknownElement     = newError(ErrValidation, "unknown element")
	ErrInvalidElementKind = newError(ErrValidation, "element cannot be used for this operation")
	ErrInvalidAmount      = newError(ErrValidation, "amount is out of range")
	ErrDurationOverflow   = newError(ErrValidation, "construction time is out of range")
	ErrInvalidSpeed       = newError(ErrValidation, "fleet speed must be a multiple of 10 between 10 and 100")
	ErrInvalidCoordinates = newError(ErrValidation, "coordinates are outside of the universe")
	ErrInvalidMission     = newError(ErrValidation, "unknown mission")
	ErrEmptyFleet         = newError(ErrValidation, "fleet does not contain any ship")
	ErrInvalidIdentifier  = newError(ErrValidation, "invalid identifier")
	ErrNegativeCargo      = newError(ErrValidation, "cargo cannot be negative")
)

// Precondition errors.
var (
	ErrNotEnoughResources = newError(ErrPrecondition, "not enough resources")
	ErrTechDepsNotMet     = newError(ErrPrecondition, "requirements are not met")
	ErrLevelCap           = newError(ErrPrecondition, "maximum level reached")
	ErrNoFieldsLeft       = newError(ErrPrecondition, "no fields left on planet")
	ErrConflictingEntry   = newError(ErrPrecondition, "an upgrade of this element is already in progress")
	ErrQueueFull          = newError(ErrPrecondition, "no free slot in the queue")
	ErrResearchInProgress = newError(ErrPrecondition, "a research is already in progress")
	ErrAlreadyCompleted   = newError(ErrPrecondition, "entry is already completed")
	ErrNothingToCancel    = newError(ErrPrecondition, "no research in progress")
	ErrNotEnoughShips     = newError(ErrPrecondition, "not enough ships on planet")
	ErrNotEnoughFuel      = newError(ErrPrecondition, "not enough deuterium to fuel the fleet")
	ErrInsufficientCargo  = newError(ErrPrecondition, "cargo and fuel exceed fleet capacity")
	ErrInvalidTarget      = newError(ErrPrecondition, "target is not valid for this mission")
	ErrFleetNotTraveling  = newError(ErrPrecondition, "fleet is not traveling anymore")
	ErrSlotTaken          = newError(ErrPrecondition, "position is already occupied")
	ErrTooManyPlanets     = newError(ErrPrecondition, "maximum number of planets reached")
)

// Not found errors.
var (
	ErrPlanetNotFound = newError(ErrNotFound, "planet not found")
	ErrUserNotFound   = newError(ErrNotFound, "player not found")
	ErrEntryNotFound  = newError(ErrNotFound, "queue entry not found")
	ErrFleetNotFound  = newError(ErrNotFound, "fleet not found")
	ErrReportNotFound = newError(ErrNotFound, "combat report not found")
	ErrDebrisNotFound = newError(ErrNotFound, "debris field not found")
)

// ErrNotOwner :
// The entity exists but belongs to another player.
var ErrNotOwner = newError(ErrAccessDenied, "entity belongs to another player")

// transientError :
// Wraps an infrastructure failure so that it is reported
// as transient while keeping the original error.
type transientError struct {
	err error
}

// Error :
// Implementation of the `error` interface.
func (e *transientError) Error() string {
	return fmt.Sprintf("%v (err: %v)", ErrTransient, e.err)
}

// Is :
// Matches `ErrTransient`.
func (e *transientError) Is(target error) bool {
	return target == ErrTransient
}

// Unwrap :
// Returns the original failure.
func (e *transientError) Unwrap() error {
	return e.err
}

// Transient :
// Marks the input error as transient. Errors which already
// carry one of the kinds are returned as is, as is `nil`.
func Transient(err error) error {
	if err == nil || KindOf(err) != nil {
		return err
	}

	return &transientError{err: err}
}

// KindOf :
// Returns the kind sentinel matched by the error or `nil`
// when it does not match any.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrPrecondition, ErrNotFound, ErrAccessDenied, ErrTransient} {
		if errors.Is(err, kind) {
			return kind
		}
	}

	return nil
}
