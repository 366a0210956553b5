package model

import "time"

// QueueKind :
// Identifies the queue an entry belongs to.
type QueueKind string

// Available queues.
const (
	BuildingQueue QueueKind = "building"
	ResearchQueue QueueKind = "research"
	ShipQueue     QueueKind = "ship"
)

// QueueEntry :
// Defines an upgrade scheduled on a planet or for a player.
// The cost is debited when the entry is created and the
// effect is applied once `End` has passed.
//
// The `Planet` is the planet the entry belongs to. For a
// research it is the planet whose laboratory is used.
//
// The `Element` is the identifier of the building, tech or
// ship in the catalog.
//
// The `Level` is the level reached upon completion, used by
// buildings and research.
//
// The `Amount` is the number of units produced, used by the
// ship queue.
//
// The `Cost` is the amount that was debited when creating
// the entry, refunded upon cancellation.
//
// The `Position` is the rank of the entry in the ship queue
// of its planet.
//
// The `Completed` is set when the effect has been applied.
type QueueEntry struct {
	ID        string    `json:"id"`
	Kind      QueueKind `json:"kind"`
	Planet    string    `json:"planet"`
	Player    string    `json:"player"`
	Element   string    `json:"element"`
	Level     int       `json:"level,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	Cost      Resources `json:"cost"`
	Position  int       `json:"position"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Completed bool      `json:"completed"`
}

// Duration :
// Returns the time needed to complete the entry.
func (e QueueEntry) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Due :
// Returns `true` if the entry should be completed at `now`.
func (e QueueEntry) Due(now time.Time) bool {
	return !e.Completed && !e.End.After(now)
}
