package model

import (
	"fmt"
	"strings"
)

// HistoryInterval is the width of a history graph window in seconds.
type HistoryInterval int64

const (
	Hour  HistoryInterval = 60 * 60
	Day   HistoryInterval = 24 * 60 * 60
	Week  HistoryInterval = 7 * 24 * 60 * 60
	Month HistoryInterval = 30 * 24 * 60 * 60
)

func (h HistoryInterval) String() string {
	switch h {
	case Hour:
		return "hour"
	case Day:
		return "day"
	case Week:
		return "week"
	case Month:
		return "month"
	default:
		return fmt.Sprintf("%ds", int64(h))
	}
}

// ParseHistoryInterval accepts hour, day, week or month.
func ParseHistoryInterval(s string) (HistoryInterval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hour", "1h":
		return Hour, nil
	case "day", "24h":
		return Day, nil
	case "week", "7d":
		return Week, nil
	case "month", "30d":
		return Month, nil
	default:
		return 0, fmt.Errorf("unknown history interval %q", s)
	}
}

// Window returns the inclusive [start, end] range ending at now.
func (h HistoryInterval) Window(now int64) (int64, int64) {
	return now - int64(h), now
}

// GraphPoint is a reading placed relative to now: X is negative seconds in
// the past, Y the physical value.
type GraphPoint struct {
	X int64   `json:"x"`
	Y float64 `json:"y"`
}

// GraphPoints converts a series into points relative to now.
func GraphPoints(items []Item, now int64) []GraphPoint {
	out := make([]GraphPoint, 0, len(items))
	for _, it := range items {
		out = append(out, GraphPoint{X: it.Timestamp - now, Y: it.Float()})
	}
	return out
}
