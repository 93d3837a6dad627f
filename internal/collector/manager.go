package collector

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"power-monitor/internal/config"
	"power-monitor/internal/logging"
)

// shutdownGrace bounds how long Run waits for collectors after cancellation.
const shutdownGrace = 5 * time.Second

// Manager runs one Collector per enabled device and funnels every sample
// through a single Writer into Sink.
type Manager struct {
	Cfg  config.RootConfig
	Sink Sink

	// OnSample, if set, sees every sample before it is queued.
	OnSample Handler

	log *slog.Logger
}

// NewManager returns a manager for cfg writing to sink.
func NewManager(cfg config.RootConfig, sink Sink) *Manager {
	return &Manager{Cfg: cfg, Sink: sink, log: logging.Component("manager")}
}

// Run blocks until ctx is cancelled, then waits for collectors and drains
// the writer queue.
func (m *Manager) Run(ctx context.Context) error {
	if m.log == nil {
		m.log = logging.Component("manager")
	}
	if m.Sink == nil {
		return errors.New("collector manager: no sink configured")
	}

	w := NewWriter(m.Sink, m.Cfg.System.Processing.MaxQueueSize)
	handler := m.handler(w)

	maxW := m.Cfg.System.Processing.MaxWorkers
	if maxW <= 0 {
		maxW = config.DefaultMaxWorkers
	}
	sem := make(chan struct{}, maxW)

	var wg sync.WaitGroup
	collectors := m.collectors(handler)
	for _, c := range collectors {
		wg.Add(1)
		go func(c *Collector) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}
			if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.log.Error("collector stopped", "server", c.Server.ServerID, "device", c.Device.DeviceID, "error", err)
			}
		}(c)
	}
	m.log.Info("collectors started", "count", len(collectors), "workers", maxW)

	<-ctx.Done()
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		m.log.Warn("timeout waiting for collectors to stop")
	}
	w.Close()

	st := w.Stats()
	m.log.Info("collectors stopped", "saved", st.Saved, "failed", st.Failed, "dropped", st.Dropped)
	return nil
}

func (m *Manager) handler(w *Writer) Handler {
	if m.OnSample == nil {
		return w.Handle
	}
	tap := m.OnSample
	return func(s Sample) error {
		if err := tap(s); err != nil {
			m.log.Warn("sample hook error", "key", s.Key, "error", err)
		}
		return w.Handle(s)
	}
}

// collectors builds one collector per device of every enabled server,
// applying per-server frequency overrides.
func (m *Manager) collectors(h Handler) []*Collector {
	var out []*Collector
	for _, srv := range m.Cfg.Servers {
		if !srv.Enabled {
			continue
		}
		for _, dev := range srv.Devices {
			if d, ok := m.Cfg.Frequency[srv.ServerID]; ok && d > 0 {
				dev.PollInterval = d
			}
			out = append(out, NewCollector(srv, dev, h))
		}
	}
	return out
}
