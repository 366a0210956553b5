package model

import "time"

// User :
// Defines a player of the game.
//
// The `Technologies` holds the level reached for each of
// the researched technologies. Levels only ever increase.
//
// The `Research` is the research currently in progress if
// any. Research is global to the account so there is at
// most one at any time.
//
// The `LastActive` is the last time the player issued an
// action. It is used to sample idle accounts less often.
type User struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Technologies map[string]int `json:"technologies"`
	Research     *QueueEntry    `json:"research,omitempty"`
	LastActive   time.Time      `json:"last_active"`
}

// Technology :
// Returns the level of the technology, `0` if it was never
// researched.
func (u *User) Technology(id string) int {
	return u.Technologies[id]
}

// Clone :
// Returns a deep copy of the player.
func (u User) Clone() User {
	u.Technologies = cloneCounts(u.Technologies)
	if u.Research != nil {
		r := *u.Research
		u.Research = &r
	}
	return u
}
