package utils

import "math"

// DefaultDelta is the relative change, in percent, below which a new reading
// is considered noise and not stored.
const DefaultDelta = 0.5

// PercentChange returns |100 - newVal*100/oldVal|. oldVal must be non-zero.
func PercentChange(newVal, oldVal int64) float64 {
	return math.Abs(100 - (float64(newVal)*100)/float64(oldVal))
}

// ExceedsDelta reports whether newVal differs enough from oldVal to be stored.
// Any move away from a zero oldVal counts as exceeding the threshold.
func ExceedsDelta(newVal, oldVal int64, threshold float64) bool {
	if newVal == oldVal {
		return false
	}
	if oldVal == 0 {
		return true
	}
	return PercentChange(newVal, oldVal) >= threshold
}
