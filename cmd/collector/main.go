package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"power-monitor/internal/tasks"
)

func main() {
	var opts tasks.Options
	flag.StringVar(&opts.ConfigPath, "config", "configs/power.yaml", "path to YAML config")
	flag.StringVar(&opts.Location, "db", "", "database file (overrides system.storage.location)")
	flag.BoolVar(&opts.RepairOnOpen, "repair", false, "delete negative values when opening the database")
	flag.Float64Var(&opts.Delta, "delta", 0, "change threshold in percent (overrides system.storage.delta)")
	flag.IntVar(&opts.MaxQueueSize, "queue", 0, "writer queue size (overrides system.processing.max_queue_size)")
	flag.StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error")
	flag.BoolVar(&opts.LogJSON, "log-json", false, "log as JSON")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tasks.InitAndRunCollector(ctx, opts); err != nil {
		log.Fatalf("collector: %v", err)
	}
}
