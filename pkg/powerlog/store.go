// Package powerlog is the public API of the power monitor's time-series
// store and collector.
//
//	st, err := powerlog.Open("/var/lib/power-monitor/power.db", powerlog.Options{})
//	if err != nil { ... }
//	defer st.Close()
//	latest, err := st.GetLatest(powerlog.DefaultDevice)
package powerlog

import (
	"power-monitor/internal/db"
	"power-monitor/internal/model"
)

// Re-exported value types.
type (
	Item    = model.Item
	Reading = model.Reading
	Options = db.Options
	Kind    = db.Kind
	Error   = db.Error
)

// DefaultDevice is the device SaveValue writes to.
const DefaultDevice = model.DefaultDevice

// Error kinds and their sentinels, for errors.Is.
const (
	KindAlreadyOpen   = db.KindAlreadyOpen
	KindNotConfigured = db.KindNotConfigured
	KindNotOpen       = db.KindNotOpen
	KindFilesystem    = db.KindFilesystem
	KindBackend       = db.KindBackend
)

var (
	ErrAlreadyOpen   = db.ErrAlreadyOpen
	ErrNotConfigured = db.ErrNotConfigured
	ErrNotOpen       = db.ErrNotOpen
	ErrFilesystem    = db.ErrFilesystem
	ErrBackend       = db.ErrBackend
)

// KindOf returns the Kind carried by err.
func KindOf(err error) Kind { return db.KindOf(err) }

// ToFixed converts a physical value to the stored fixed-point form.
func ToFixed(v float64) int64 { return model.ToFixed(v) }

// Store is a handle on one database file. It must be used from a single
// goroutine.
type Store struct{ db *db.DB }

// New returns a closed Store.
func New(opts Options) *Store { return &Store{db: db.New(opts)} }

// Open is New, SetLocation and Open in one call.
func Open(path string, opts Options) (*Store, error) {
	s := New(opts)
	if err := s.SetLocation(path); err != nil {
		return nil, err
	}
	if err := s.Open(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) SetLocation(path string) error { return s.db.SetLocation(path) }
func (s *Store) Location() string              { return s.db.Location() }
func (s *Store) Open() error                   { return s.db.Open() }
func (s *Store) Close() error                  { return s.db.Close() }
func (s *Store) IsOpen() bool                  { return s.db.IsOpen() }

// SaveValue records value for key on DefaultDevice unless it is within the
// configured delta of the last stored value.
func (s *Store) SaveValue(key string, value int64) error { return s.db.SaveValue(key, value) }

// SaveReading appends r unconditionally.
func (s *Store) SaveReading(r *Reading) error { return s.db.SaveReading(r) }

// GetLatest returns the newest reading of every key on device.
func (s *Store) GetLatest(device uint32) (map[string]Item, error) { return s.db.GetLatest(device) }

// Query returns the readings of key on device within [tsStart, tsEnd], oldest first.
func (s *Store) Query(key string, device uint32, tsStart, tsEnd int64) ([]Item, error) {
	return s.db.Query(key, device, tsStart, tsEnd)
}

// Repair deletes negative-value rows and returns how many were removed.
func (s *Store) Repair() (int64, error) { return s.db.Repair() }
