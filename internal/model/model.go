package model

import "math"

// DefaultDevice is the device identifier used by the write path and the
// latest-value snapshot when the caller names no device.
const DefaultDevice uint32 = 0

// Scale is the fixed-point factor applied to physical values before storage.
const Scale = 1000

// Reading is one persisted row of the log table.
// Rows are never updated in place; only Repair deletes them.
type Reading struct {
	ID        int64  `json:"id"`
	Device    uint32 `json:"device"`
	Timestamp int64  `json:"timestamp"` // seconds since epoch
	Key       string `json:"key"`
	Value     int64  `json:"value"` // physical value x Scale
}

// Item is a (timestamp, value) pair. It is the cache entry type, the value
// type of a latest-per-key mapping and the element type of a range query.
type Item struct {
	Timestamp int64 `json:"timestamp"`
	Value     int64 `json:"value"`
}

// Float returns the physical value.
func (it Item) Float() float64 { return float64(it.Value) / Scale }

// ToFixed converts a physical value into its stored representation,
// rounding half away from zero.
func ToFixed(v float64) int64 {
	return int64(math.Round(v * Scale))
}
