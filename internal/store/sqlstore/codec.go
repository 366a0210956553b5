package sqlstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/enamaryn/XNova-reforged-sub000/internal/model"
	"github.com/pierrec/lz4/v4"
)

// stamp :
// Converts a time into the value stored in the columns.
func stamp(t time.Time) int64 {
	return t.UnixMicro()
}

// optionalStamp :
// Same as `stamp` for a time which may be missing.
func optionalStamp(t *time.Time) *int64 {
	if t == nil {
		return nil
	}

	v := stamp(*t)
	return &v
}

// bound :
// Converts the limit of a listing into a `LIMIT` clause
// value: no limit is expressed with a large one.
func bound(limit int) int {
	if limit <= 0 {
		return math.MaxInt32
	}
	return limit
}

// flag :
// Converts a boolean into the integer stored in the columns.
func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encode(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding document: %w", err)
	}

	return string(raw), nil
}

func decode(data string, v interface{}) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return model.Transient(fmt.Errorf("corrupted document: %w", err))
	}

	return nil
}

// compress :
// Packs the rounds of a report, which are the bulk of its
// content, in a lz4 frame.
func compress(rounds []model.RoundLosses) ([]byte, error) {
	raw, err := json.Marshal(rounds)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// decompress :
// Reverse operation of `compress`.
func decompress(data []byte) ([]model.RoundLosses, error) {
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, model.Transient(fmt.Errorf("corrupted rounds: %w", err))
	}

	var rounds []model.RoundLosses
	if err := json.Unmarshal(raw, &rounds); err != nil {
		return nil, model.Transient(fmt.Errorf("corrupted rounds: %w", err))
	}

	return rounds, nil
}
