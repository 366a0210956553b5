package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/pkg/logger"
)

// Kind :
// Type of an event emitted by the engine.
type Kind string

// Events emitted by the engine.
const (
	QueueStarted   Kind = "queue.started"
	QueueCancelled Kind = "queue.cancelled"
	QueueCompleted Kind = "queue.completed"
	FleetSent      Kind = "fleet.sent"
	FleetRecalled  Kind = "fleet.recalled"
	FleetArrived   Kind = "fleet.arrived"
	FleetReturned  Kind = "fleet.returned"
	CombatResolved Kind = "combat.resolved"
)

// Event :
// Notification of a state change. Events are emitted once
// the change is committed and are never retried.
//
// The `Player` is the player concerned by the event.
//
// The `Entity` is the identifier of the queue entry, fleet
// or report the event is about.
//
// The `Element` is the catalog identifier or the mission
// depending on the kind of event.
type Event struct {
	Kind    Kind      `json:"kind"`
	Player  string    `json:"player"`
	Planet  string    `json:"planet,omitempty"`
	Entity  string    `json:"entity"`
	Element string    `json:"element,omitempty"`
	Level   int       `json:"level,omitempty"`
	Amount  int       `json:"amount,omitempty"`
	At      time.Time `json:"at"`
}

// String :
// Implementation of the stringer interface.
func (e Event) String() string {
	return fmt.Sprintf("%s for \"%s\" on \"%s\" (entity: %s, element: %s)", e.Kind, e.Player, e.Planet, e.Entity, e.Element)
}

// Notifier :
// Receives the events of the engine. Implementations must
// not block for long as they are called from the engine's
// routines.
type Notifier interface {
	Notify(event Event)
}

// LogNotifier :
// Writes the events to a logger.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier :
// Creates a notifier tracing events with the `Info` level.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify :
// Implementation of the `Notifier` interface.
func (ln *LogNotifier) Notify(event Event) {
	ln.log.Trace(logger.Info, "notify", event.String())
}

// Bus :
// Forwards each event to a list of notifiers. A notifier
// that panics is logged and does not prevent the others
// from receiving the event.
type Bus struct {
	lock      sync.RWMutex
	notifiers []Notifier
	log       logger.Logger
}

// NewBus :
// Creates a bus forwarding to the input notifiers.
func NewBus(log logger.Logger, notifiers ...Notifier) *Bus {
	return &Bus{
		notifiers: notifiers,
		log:       log,
	}
}

// Subscribe :
// Adds a notifier to the bus.
func (b *Bus) Subscribe(n Notifier) {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.notifiers = append(b.notifiers, n)
}

// Notify :
// Implementation of the `Notifier` interface.
func (b *Bus) Notify(event Event) {
	b.lock.RLock()
	notifiers := b.notifiers
	b.lock.RUnlock()

	for _, n := range notifiers {
		b.safeNotify(n, event)
	}
}

func (b *Bus) safeNotify(n Notifier, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Trace(logger.Error, "notify", fmt.Sprintf("Notifier failed for %s (err: %v)", event.Kind, r))
		}
	}()

	n.Notify(event)
}

// Recorder :
// Keeps the events in memory. Used in tests.
type Recorder struct {
	lock   sync.Mutex
	events []Event
}

// Notify :
// Implementation of the `Notifier` interface.
func (r *Recorder) Notify(event Event) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.events = append(r.events, event)
}

// Events :
// Returns a copy of the events received so far.
func (r *Recorder) Events() []Event {
	r.lock.Lock()
	defer r.lock.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)

	return out
}

// Count :
// Returns the number of events of this kind.
func (r *Recorder) Count(kind Kind) int {
	r.lock.Lock()
	defer r.lock.Unlock()

	count := 0
	for _, e := range r.events {
		if e.Kind == kind {
			count++
		}
	}

	return count
}
