package summary

import (
	"math"
	"testing"

	"power-monitor/internal/model"
)

func within(got, want, rel float64) bool {
	if want == 0 {
		return math.Abs(got) < 1e-9
	}
	return math.Abs(got-want)/math.Abs(want) <= rel
}

func TestSummarize(t *testing.T) {
	items := make([]model.Item, 0, 100)
	for i := 1; i <= 100; i++ {
		items = append(items, model.Item{Timestamp: int64(1000 + i), Value: int64(i * 1000)})
	}

	s, err := Summarize("AcOutputLoad", items)
	if err != nil {
		t.Fatal(err)
	}
	if s.Key != "AcOutputLoad" || s.Count != 100 {
		t.Fatalf("summary = %+v", s)
	}
	if s.FirstTs != 1001 || s.LastTs != 1100 {
		t.Fatalf("timestamps = %d..%d", s.FirstTs, s.LastTs)
	}
	if s.Min != 1 || s.Max != 100 || s.Mean != 50.5 {
		t.Fatalf("min/max/mean = %v/%v/%v", s.Min, s.Max, s.Mean)
	}
	if !within(s.P50, 50, 0.03) {
		t.Errorf("p50 = %v", s.P50)
	}
	if !within(s.P95, 95, 0.03) {
		t.Errorf("p95 = %v", s.P95)
	}
}

func TestSummarizeNegativeValues(t *testing.T) {
	items := []model.Item{
		{Timestamp: 1, Value: -2000},
		{Timestamp: 2, Value: -1000},
		{Timestamp: 3, Value: 3000},
	}
	s, err := Summarize("BatteryCurrent", items)
	if err != nil {
		t.Fatal(err)
	}
	if s.Min != -2 || s.Max != 3 {
		t.Fatalf("min/max = %v/%v", s.Min, s.Max)
	}
	if !within(s.Mean, 0, 0) {
		t.Fatalf("mean = %v", s.Mean)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s, err := Summarize("BatteryVoltage", nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Count != 0 || s.Key != "BatteryVoltage" || s.Min != 0 || s.Max != 0 {
		t.Fatalf("expected zero summary, got %+v", s)
	}
}
