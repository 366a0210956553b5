package model

import "time"

// Mission :
// Describes the objective of a fleet.
type Mission string

// Available missions.
const (
	Attack    Mission = "attack"
	Transport Mission = "transport"
	Deploy    Mission = "deploy"
	Colonize  Mission = "colonize"
	Harvest   Mission = "harvest"
)

// Valid :
// Returns whether the mission is known.
func (m Mission) Valid() bool {
	switch m {
	case Attack, Transport, Deploy, Colonize, Harvest:
		return true
	default:
		return false
	}
}

// FleetStatus :
// Describes the state of a fleet.
type FleetStatus string

// Possible states of a fleet.
const (
	Traveling FleetStatus = "traveling"
	Returning FleetStatus = "returning"
	Completed FleetStatus = "completed"
)

// Fleet :
// Defines a group of ships travelling from a planet of
// its owner to a target location.
//
// The `Origin` is the identifier of the planet the fleet
// was sent from and where it comes back.
//
// The `Ships` is the roster of the fleet.
//
// The `Cargo` holds the resources carried.
//
// The `Fuel` is the deuterium consumed by the trip.
//
// The `Speed` is the throttle of the fleet in percent.
//
// The `Start`, `Arrival` and `Return` define the timeline
// of the trip. `Return` is `nil` when the fleet does not
// come back (deployment, colonization with no ship left).
//
// The `Report` is the identifier of the combat report in
// case the fleet was involved in a fight.
type Fleet struct {
	ID                string         `json:"id"`
	Owner             string         `json:"owner"`
	Origin            string         `json:"origin"`
	OriginCoordinates Coordinate     `json:"origin_coordinates"`
	Target            Coordinate     `json:"target"`
	Mission           Mission        `json:"mission"`
	Ships             map[string]int `json:"ships"`
	Cargo             Resources      `json:"cargo"`
	Fuel              int64          `json:"fuel"`
	Speed             int            `json:"speed"`
	Start             time.Time      `json:"start"`
	Arrival           time.Time      `json:"arrival"`
	Return            *time.Time     `json:"return,omitempty"`
	Status            FleetStatus    `json:"status"`
	Report            string         `json:"report,omitempty"`
}

// NextEvent :
// Returns the instant at which the fleet needs to be
// processed next. The second value is `false` when the
// fleet does not need any processing anymore.
func (f *Fleet) NextEvent() (time.Time, bool) {
	switch f.Status {
	case Traveling:
		return f.Arrival, true
	case Returning:
		if f.Return == nil {
			return time.Time{}, false
		}
		return *f.Return, true
	default:
		return time.Time{}, false
	}
}

// Clone :
// Returns a deep copy of the fleet.
func (f Fleet) Clone() Fleet {
	f.Ships = cloneCounts(f.Ships)
	if f.Return != nil {
		r := *f.Return
		f.Return = &r
	}
	return f
}
