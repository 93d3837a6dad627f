package model

import "sort"

// LatestValue is one entry of a latest-per-key snapshot, flattened for output.
type LatestValue struct {
	Key       string `json:"key"`
	Timestamp int64  `json:"timestamp"`
	Value     int64  `json:"value"`
	Display   string `json:"display"`
}

// SortedLatest flattens a latest-per-key mapping into a slice ordered by key.
func SortedLatest(latest map[string]Item) []LatestValue {
	out := make([]LatestValue, 0, len(latest))
	for k, it := range latest {
		out = append(out, LatestValue{
			Key:       k,
			Timestamp: it.Timestamp,
			Value:     it.Value,
			Display:   FormatValue(k, it.Value),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
