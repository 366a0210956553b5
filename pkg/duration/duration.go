package duration

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

// Duration :
// A wrapper around the standard library duration used in
// the API payloads. It is marshalled as a whole number of
// seconds, which is the resolution of every timer of the
// game, and can be read back either from such a number or
// from a Go duration string (`1h30m`).
type Duration struct {
	time.Duration
}

// ErrInvalidInput :
// Indicates that the value provided as input cannot
// be unmarshalled into a valid duration.
var ErrInvalidInput = errors.New("could not unmarshal value to duration")

// NewDuration :
// Creates a new duration from a base time.Duration.
func NewDuration(t time.Duration) Duration {
	return Duration{t}
}

// Seconds :
// Returns the duration as a whole number of seconds,
// rounded down.
func (d Duration) Seconds() int64 {
	return int64(d.Duration / time.Second)
}

// MarshalJSON :
// Implementation of the marshaller interface.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Seconds())
}

// UnmarshalJSON :
// Reads a number of seconds or a duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return ErrInvalidInput
		}
		d.Duration = time.Duration(value * float64(time.Second))
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return ErrInvalidInput
		}
		d.Duration = parsed
		return nil
	default:
		return ErrInvalidInput
	}
}
