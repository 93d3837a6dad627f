package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"power-monitor/internal/db"
	"power-monitor/internal/logging"
)

func main() {
	dbPath := flag.String("db", "/var/lib/power-monitor/power.db", "path to the database file")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Parse()

	logging.InitWriter(os.Stderr, logging.ParseLevel(*level), false)

	n, err := run(*dbPath)
	if err != nil {
		log.Fatalf("repair %s: %v (%s)", *dbPath, err, db.KindOf(err))
	}
	fmt.Printf("deleted %d rows with negative values\n", n)
}

// run opens path, repairs it and closes it on every path.
func run(path string) (n int64, err error) {
	d := db.New(db.Options{})
	if err := d.SetLocation(path); err != nil {
		return 0, err
	}
	if err := d.Open(); err != nil {
		return 0, err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return d.Repair()
}
