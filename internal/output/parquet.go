package output

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"power-monitor/internal/model"
)

// SeriesRow is the Parquet layout of one series item.
type SeriesRow struct {
	Device    int32   `parquet:"device"`
	Key       string  `parquet:"key,dict,zstd"`
	Timestamp int64   `parquet:"timestamp"`
	Value     int64   `parquet:"value"`
	Physical  float64 `parquet:"physical"`
}

// WriteSeriesParquet writes items of key on device as zstd-compressed Parquet.
func WriteSeriesParquet(w io.Writer, key string, device uint32, items []model.Item) error {
	pw := parquet.NewGenericWriter[SeriesRow](w, parquet.Compression(&parquet.Zstd))

	rows := make([]SeriesRow, len(items))
	for i, it := range items {
		rows[i] = SeriesRow{
			Device:    int32(device),
			Key:       key,
			Timestamp: it.Timestamp,
			Value:     it.Value,
			Physical:  it.Float(),
		}
	}
	if len(rows) > 0 {
		if _, err := pw.Write(rows); err != nil {
			pw.Close()
			return fmt.Errorf("write rows: %w", err)
		}
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// ReadSeriesParquet reads back a file written by WriteSeriesParquet.
func ReadSeriesParquet(path string) ([]SeriesRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	r := parquet.NewGenericReader[SeriesRow](f)
	defer r.Close()

	rows := make([]SeriesRow, r.NumRows())
	n, err := r.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows[:n], nil
}
