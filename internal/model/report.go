package model

import "time"

// Outcome :
// Result of a battle.
type Outcome string

// Possible outcomes.
const (
	AttackerWin Outcome = "attacker_win"
	DefenderWin Outcome = "defender_win"
	Draw        Outcome = "draw"
)

// RoundLosses :
// Units destroyed during a single round of a battle.
type RoundLosses struct {
	Round    int            `json:"round"`
	Attacker map[string]int `json:"attacker"`
	Defender map[string]int `json:"defender"`
}

// CombatReport :
// Immutable snapshot of a resolved battle.
//
// The `AttackerRoster` and `DefenderRoster` hold the units
// present before the battle. The defender roster mixes the
// ships and the defenses of the planet.
//
// The `Rounds` list the losses of each round. The sum of the
// losses and of the survivors equals the initial rosters.
//
// The `Repaired` lists the defenses restored after the fight.
//
// The `Seed` is the seed of the random generator used to
// resolve the battle, which allows to replay it.
//
// The `Digest` is a fingerprint of the outcome.
type CombatReport struct {
	ID             string         `json:"id"`
	Fleet          string         `json:"fleet"`
	Attacker       string         `json:"attacker"`
	Defender       string         `json:"defender"`
	Planet         string         `json:"planet"`
	Location       Coordinate     `json:"location"`
	AttackerRoster map[string]int `json:"attacker_roster"`
	DefenderRoster map[string]int `json:"defender_roster"`
	Rounds         []RoundLosses  `json:"rounds"`
	Result         Outcome        `json:"result"`
	RoundCount     int            `json:"round_count"`
	Loot           Resources      `json:"loot"`
	Debris         Resources      `json:"debris"`
	Repaired       map[string]int `json:"repaired"`
	Seed           int64          `json:"seed"`
	Digest         string         `json:"digest"`
	CreatedAt      time.Time      `json:"created_at"`
}

// DebrisField :
// Resources floating at a location after a battle. They
// can be collected by a harvesting fleet.
type DebrisField struct {
	Coordinates Coordinate `json:"coordinates"`
	Resources   Resources  `json:"resources"`
}
