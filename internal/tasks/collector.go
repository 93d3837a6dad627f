package tasks

import (
	"context"
	"fmt"
	"io"
	"os"

	"power-monitor/internal/collector"
	"power-monitor/internal/config"
	"power-monitor/internal/db"
	"power-monitor/internal/logging"
)

// Options overrides values from the YAML file. Zero values keep the file's
// setting. It mirrors the flags of cmd/collector.
type Options struct {
	ConfigPath   string
	Location     string
	RepairOnOpen bool
	Delta        float64
	MaxQueueSize int
	LogLevel     string
	LogJSON      bool

	// LogOutput defaults to os.Stderr.
	LogOutput io.Writer
}

// Apply merges opts into cfg.
func (o Options) Apply(cfg *config.RootConfig) {
	if o.Location != "" {
		cfg.System.Storage.Location = o.Location
	}
	if o.RepairOnOpen {
		cfg.System.Storage.RepairOnOpen = true
	}
	if o.Delta > 0 {
		cfg.System.Storage.Delta = o.Delta
	}
	if o.MaxQueueSize > 0 {
		cfg.System.Processing.MaxQueueSize = o.MaxQueueSize
	}
	if o.LogLevel != "" {
		cfg.System.Log.Level = o.LogLevel
	}
	if o.LogJSON {
		cfg.System.Log.Format = "json"
	}
}

// InitAndRunCollector loads the config, applies overrides, opens storage and
// runs the collector manager until ctx is cancelled.
func InitAndRunCollector(ctx context.Context, opts Options) error {
	cfg, err := config.LoadYAML(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	opts.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logging.InitWriter(out, logging.ParseLevel(cfg.System.Log.Level), cfg.JSONLogs())

	return RunCollector(ctx, cfg)
}

// RunCollector opens the configured database and runs the manager on it.
func RunCollector(ctx context.Context, cfg config.RootConfig) error {
	store := db.New(db.Options{
		RepairOnOpen: cfg.System.Storage.RepairOnOpen,
		Delta:        cfg.System.Storage.Delta,
	})
	if err := store.SetLocation(cfg.System.Storage.Location); err != nil {
		return err
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer store.Close()

	return collector.NewManager(cfg, store).Run(ctx)
}
