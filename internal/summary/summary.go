// Package summary computes descriptive statistics over a queried series.
package summary

import (
	"fmt"
	"math"

	"github.com/DataDog/sketches-go/ddsketch"

	"power-monitor/internal/model"
)

// relativeAccuracy of the percentile sketch.
const relativeAccuracy = 0.01

// Summary describes a series in physical units.
type Summary struct {
	Key     string  `json:"key"`
	Count   int     `json:"count"`
	FirstTs int64   `json:"first_ts"`
	LastTs  int64   `json:"last_ts"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Mean    float64 `json:"mean"`
	P50     float64 `json:"p50"`
	P95     float64 `json:"p95"`
}

// Summarize folds items, which must be ordered by timestamp, into a Summary.
// An empty series yields a Summary with Count 0.
func Summarize(key string, items []model.Item) (Summary, error) {
	s := Summary{Key: key}
	if len(items) == 0 {
		return s, nil
	}

	sketch, err := ddsketch.NewDefaultDDSketch(relativeAccuracy)
	if err != nil {
		return s, fmt.Errorf("create sketch: %w", err)
	}

	s.Min = math.MaxFloat64
	s.Max = -math.MaxFloat64
	var sum float64
	for _, it := range items {
		v := it.Float()
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		if err := sketch.Add(v); err != nil {
			return s, fmt.Errorf("add to sketch: %w", err)
		}
	}
	s.Count = len(items)
	s.FirstTs = items[0].Timestamp
	s.LastTs = items[len(items)-1].Timestamp
	s.Mean = sum / float64(s.Count)

	if s.P50, err = sketch.GetValueAtQuantile(0.5); err != nil {
		return s, fmt.Errorf("p50: %w", err)
	}
	if s.P95, err = sketch.GetValueAtQuantile(0.95); err != nil {
		return s, fmt.Errorf("p95: %w", err)
	}
	return s, nil
}
