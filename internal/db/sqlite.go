// Package db is the time-series storage engine: an append-only SQLite log of
// (device, key, timestamp, value) readings, fronted by an in-memory cache of
// the latest accepted value per key for the default device.
//
// A DB is meant to be driven from a single goroutine. It does no background
// work and holds no locks; callers that share one must serialize access.
package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"power-monitor/internal/logging"
	"power-monitor/internal/model"
	"power-monitor/internal/utils"
)

// Column names match files written by earlier versions of the daemon.
const createLogTable = `
	CREATE TABLE log (
		id  INTEGER PRIMARY KEY,
		dev INTEGER DEFAULT 0,
		ts  INTEGER DEFAULT (CAST(strftime('%s','now') AS INTEGER)),
		key TEXT DEFAULT NULL,
		val INTEGER
	)`

const createLogIndex = `CREATE INDEX IF NOT EXISTS idx_log_dev_key_ts ON log(dev, key, ts)`

// Writes are not fsync'd; a crash may lose the last unflushed rows but not
// the file's integrity.
const dsnPragmas = "?_pragma=synchronous(OFF)"

// Options tunes the engine.
type Options struct {
	// RepairOnOpen deletes negative-value rows during Open, before the
	// cache is rebuilt.
	RepairOnOpen bool

	// Delta is the relative change in percent below which SaveValue ignores
	// a reading. Zero means utils.DefaultDelta.
	Delta float64
}

// DB owns the SQLite handle and the latest-value cache.
type DB struct {
	location string
	opts     Options

	sql   *sql.DB
	cache *utils.LatestCache

	now func() time.Time
	log *slog.Logger
}

// New returns a closed DB. Call SetLocation and Open before use.
func New(opts Options) *DB {
	if opts.Delta <= 0 {
		opts.Delta = utils.DefaultDelta
	}
	return &DB{
		opts: opts,
		now:  time.Now,
		log:  logging.Component("db"),
	}
}

// SetLocation records the database file path. No I/O is performed.
func (d *DB) SetLocation(path string) error {
	if d.sql != nil {
		return newError(KindAlreadyOpen, "set location", nil)
	}
	d.location = path
	return nil
}

// Location returns the configured database file path.
func (d *DB) Location() string { return d.location }

// IsOpen reports whether Open has succeeded and Close has not been called.
func (d *DB) IsOpen() bool { return d.sql != nil }

// Open creates the parent directory and the schema if needed, then loads the
// latest value of every key of the default device into the cache.
// On failure the DB stays closed and Open may be retried.
func (d *DB) Open() error {
	if d.sql != nil {
		return newError(KindAlreadyOpen, "", nil)
	}
	if d.location == "" {
		return newError(KindNotConfigured, "", nil)
	}

	if err := ensureFileDirectory(d.location); err != nil {
		return newError(KindFilesystem, fmt.Sprintf("failed to create directory for %s", d.location), err)
	}

	d.log.Debug("loading database", "location", d.location)
	h, err := sql.Open("sqlite", d.location+dsnPragmas)
	if err != nil {
		return newError(KindBackend, "can't open database", err)
	}
	h.SetMaxOpenConns(1)
	if err := h.Ping(); err != nil {
		h.Close()
		return newError(KindBackend, "can't open database", err)
	}

	d.sql = h
	d.cache = utils.NewLatestCache()
	if err := d.init(); err != nil {
		h.Close()
		d.sql = nil
		d.cache = nil
		return err
	}

	d.log.Info("database open and ready", "location", d.location, "keys", d.cache.Len())
	return nil
}

func (d *DB) init() error {
	if err := d.ensureSchema(); err != nil {
		return err
	}
	if d.opts.RepairOnOpen {
		if _, err := d.Repair(); err != nil {
			return err
		}
	}
	return d.rebuildCache()
}

// ensureSchema probes the log table and creates it when the probe fails.
func (d *DB) ensureSchema() error {
	var one int
	err := d.sql.QueryRow(`SELECT 1 FROM log LIMIT 1`).Scan(&one)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		d.log.Debug("creating log table", "probe_error", err)
		if _, err := d.sql.Exec(createLogTable); err != nil {
			return newError(KindBackend, "create log table", err)
		}
	}
	if _, err := d.sql.Exec(createLogIndex); err != nil {
		return newError(KindBackend, "create log index", err)
	}
	return nil
}

func (d *DB) rebuildCache() error {
	latest, err := d.GetLatest(model.DefaultDevice)
	if err != nil {
		return err
	}
	d.cache.Reset()
	for key, it := range latest {
		d.cache.Set(key, it)
	}
	return nil
}

// Close releases the handle and discards the cache. Closing a closed DB is a no-op.
func (d *DB) Close() error {
	if d.sql == nil {
		return nil
	}
	err := d.sql.Close()
	d.sql = nil
	d.cache = nil
	if err != nil {
		return newError(KindBackend, "close database", err)
	}
	d.log.Debug("database closed", "location", d.location)
	return nil
}

func ensureFileDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
