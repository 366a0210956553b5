package model

// SweepStats :
// Outcome of a sweep over due entities.
//
// The `Processed` counts the entities advanced.
//
// The `Failed` counts the entities which could not be
// advanced. They are picked again by the next sweep.
type SweepStats struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Add :
// Accumulates the counters of another sweep.
func (s SweepStats) Add(other SweepStats) SweepStats {
	return SweepStats{
		Processed: s.Processed + other.Processed,
		Failed:    s.Failed + other.Failed,
	}
}
