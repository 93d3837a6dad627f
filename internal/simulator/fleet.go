package simulator

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"power-monitor/internal/config"
	"power-monitor/internal/logging"
)

// Profile is a sequence of rows mapping point keys to engineering values.
type Profile []map[string]float64

// LoadProfile reads a CSV whose header names point keys.
func LoadProfile(path string) (Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, errors.New("profile must contain a header and at least one row")
	}

	header := records[0]
	rows := make(Profile, 0, len(records)-1)
	for n, rec := range records[1:] {
		row := make(map[string]float64, len(header))
		for i, key := range header {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %s: %w", n+2, key, err)
			}
			row[strings.TrimSpace(key)] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Fleet serves every enabled Modbus TCP server of a configuration and steps
// all of them through a Profile.
type Fleet struct {
	Cfg      config.RootConfig
	Profile  Profile
	Interval time.Duration

	mu      sync.Mutex
	servers map[string]*Server
	log     *slog.Logger
}

// NewFleet returns a fleet that advances one profile row per interval.
func NewFleet(cfg config.RootConfig, p Profile, interval time.Duration) *Fleet {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Fleet{
		Cfg:      cfg,
		Profile:  p,
		Interval: interval,
		servers:  make(map[string]*Server),
		log:      logging.Component("fleet"),
	}
}

// Run listens on every enabled TCP server and blocks until ctx is cancelled.
func (f *Fleet) Run(ctx context.Context) error {
	for _, srv := range f.Cfg.Servers {
		if !srv.Enabled {
			continue
		}
		proto := strings.ToLower(strings.TrimSpace(srv.Protocol))
		if proto != "modbus-tcp" && proto != "tcp" {
			f.log.Warn("protocol not simulated, skipping", "server", srv.ServerID, "protocol", srv.Protocol)
			continue
		}
		addr := fmt.Sprintf("%s:%d", srv.Connection.Host, srv.Connection.Port)
		s := NewServer()
		if err := s.Listen(addr); err != nil {
			f.closeAll()
			return fmt.Errorf("server %s listen %s: %w", srv.ServerID, addr, err)
		}
		f.mu.Lock()
		f.servers[srv.ServerID] = s
		f.mu.Unlock()
		f.log.Info("simulating server", "server", srv.ServerID, "addr", s.Addr().String())
	}
	defer f.closeAll()

	row := 0
	f.apply(row)
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if len(f.Profile) > 0 {
				row = (row + 1) % len(f.Profile)
				f.apply(row)
			}
		}
	}
}

// apply writes profile row i to every point of every served device.
func (f *Fleet) apply(i int) {
	if len(f.Profile) == 0 {
		return
	}
	values := f.Profile[i]

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, srv := range f.Cfg.Servers {
		s, ok := f.servers[srv.ServerID]
		if !ok {
			continue
		}
		for _, dev := range srv.Devices {
			for _, p := range dev.Points {
				v, ok := values[p.Key]
				if !ok {
					continue
				}
				if err := s.SetPoint(p, v); err != nil {
					f.log.Warn("set point failed", "server", srv.ServerID, "key", p.Key, "error", err)
				}
			}
		}
	}
}

func (f *Fleet) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, s := range f.servers {
		s.Close()
		delete(f.servers, id)
	}
}
