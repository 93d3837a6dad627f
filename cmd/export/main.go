package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"power-monitor/internal/db"
	"power-monitor/internal/logging"
	"power-monitor/internal/model"
	"power-monitor/internal/output"
	"power-monitor/internal/summary"
)

type exportOptions struct {
	dbPath   string
	mode     string
	format   string
	out      string
	key      string
	device   uint
	interval string
	from, to int64
}

func main() {
	var o exportOptions
	flag.StringVar(&o.dbPath, "db", "/var/lib/power-monitor/power.db", "path to the database file")
	flag.StringVar(&o.mode, "mode", "latest", "latest, series, graph or summary")
	flag.StringVar(&o.format, "format", "json", "json or csv; parquet for series")
	flag.StringVar(&o.out, "out", "", "output file (default stdout)")
	flag.StringVar(&o.key, "key", "", "reading key for series and summary")
	flag.UintVar(&o.device, "device", uint(model.DefaultDevice), "device number")
	flag.StringVar(&o.interval, "interval", "day", "hour, day, week or month ending now, unless -from/-to are set")
	flag.Int64Var(&o.from, "from", 0, "range start, unix seconds")
	flag.Int64Var(&o.to, "to", 0, "range end, unix seconds")
	flag.Parse()

	logging.InitWriter(os.Stderr, logging.ParseLevel("warn"), false)

	if err := run(o); err != nil {
		log.Fatalf("export: %v", err)
	}
}

func run(o exportOptions) error {
	d := db.New(db.Options{})
	if err := d.SetLocation(o.dbPath); err != nil {
		return err
	}
	if err := d.Open(); err != nil {
		return err
	}
	defer d.Close()

	var w io.Writer = os.Stdout
	if o.out != "" {
		f, err := os.Create(o.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	device := uint32(o.device)
	format := strings.ToLower(o.format)

	o.mode = strings.ToLower(o.mode)
	switch o.mode {
	case "latest":
		latest, err := d.GetLatest(device)
		if err != nil {
			return err
		}
		switch format {
		case "json":
			return output.WriteLatestJSON(w, latest)
		case "csv":
			return output.WriteLatestCSV(w, latest)
		}
	case "series", "graph", "summary":
		if o.key == "" {
			return fmt.Errorf("-key is required for %s", o.mode)
		}
		now := time.Now()
		start, end, err := o.window(now)
		if err != nil {
			return err
		}
		items, err := d.Query(o.key, device, start, end)
		if err != nil {
			return err
		}
		if o.mode == "graph" {
			return json.NewEncoder(w).Encode(model.GraphPoints(items, now.Unix()))
		}
		if o.mode == "summary" {
			s, err := summary.Summarize(o.key, items)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		switch format {
		case "json":
			return json.NewEncoder(w).Encode(items)
		case "csv":
			return output.WriteSeriesCSV(w, items)
		case "parquet":
			return output.WriteSeriesParquet(w, o.key, device, items)
		}
	default:
		return fmt.Errorf("unknown mode %q", o.mode)
	}
	return fmt.Errorf("format %q not supported for mode %s", o.format, o.mode)
}

func (o exportOptions) window(now time.Time) (int64, int64, error) {
	if o.from != 0 || o.to != 0 {
		end := o.to
		if end == 0 {
			end = now.Unix()
		}
		return o.from, end, nil
	}
	h, err := model.ParseHistoryInterval(o.interval)
	if err != nil {
		return 0, 0, err
	}
	start, end := h.Window(now.Unix())
	return start, end, nil
}
