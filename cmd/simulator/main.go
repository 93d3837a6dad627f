package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"power-monitor/internal/config"
	"power-monitor/internal/logging"
	"power-monitor/internal/simulator"
)

func main() {
	cfgPath := flag.String("config", "configs/power.yaml", "path to YAML config")
	profilePath := flag.String("profile", "", "CSV of point values to replay, header row names point keys")
	interval := flag.Duration("interval", 5*time.Second, "time between profile rows")
	flag.Parse()

	logging.InitWriter(os.Stderr, logging.ParseLevel("info"), false)

	cfg, err := config.LoadYAML(*cfgPath)
	if err != nil {
		log.Fatalf("load yaml config: %v", err)
	}

	var profile simulator.Profile
	if *profilePath != "" {
		if profile, err = simulator.LoadProfile(*profilePath); err != nil {
			log.Fatalf("load profile: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := simulator.NewFleet(cfg, profile, *interval).Run(ctx); err != nil {
		log.Fatalf("simulator: %v", err)
	}
}
