// Package output renders latest snapshots and series for export.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"power-monitor/internal/model"
)

// WriteLatestJSON writes the snapshot as an indented JSON array ordered by key.
func WriteLatestJSON(w io.Writer, latest map[string]model.Item) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(model.SortedLatest(latest)); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteLatestCSV writes the snapshot ordered by key.
// Columns: key,timestamp,value,display
func WriteLatestCSV(w io.Writer, latest map[string]model.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"key", "timestamp", "value", "display"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, v := range model.SortedLatest(latest) {
		rec := []string{
			v.Key,
			strconv.FormatInt(v.Timestamp, 10),
			strconv.FormatInt(v.Value, 10),
			v.Display,
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSeriesCSV writes one row per item.
// Columns: timestamp,value,physical
func WriteSeriesCSV(w io.Writer, items []model.Item) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "value", "physical"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, it := range items {
		rec := []string{
			strconv.FormatInt(it.Timestamp, 10),
			strconv.FormatInt(it.Value, 10),
			strconv.FormatFloat(it.Float(), 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
