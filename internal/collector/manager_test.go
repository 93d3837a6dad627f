package collector

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"power-monitor/internal/config"
	"power-monitor/internal/simulator"
)

func TestManagerCollectorsApplyFrequency(t *testing.T) {
	cfg := config.RootConfig{
		Frequency: map[string]time.Duration{"inv": 2 * time.Second},
		Servers: []config.ServerConfig{
			{ServerID: "inv", Enabled: true, Devices: []config.Device{
				{DeviceID: "a", PollInterval: 10 * time.Second},
				{DeviceID: "b"},
			}},
			{ServerID: "meter", Enabled: true, Devices: []config.Device{
				{DeviceID: "c", PollInterval: 7 * time.Second},
			}},
			{ServerID: "spare", Enabled: false, Devices: []config.Device{{DeviceID: "d"}}},
		},
	}
	m := NewManager(cfg, newRecordingSink())

	cs := m.collectors(nil)
	if len(cs) != 3 {
		t.Fatalf("expected 3 collectors, got %d", len(cs))
	}
	want := map[string]time.Duration{"a": 2 * time.Second, "b": 2 * time.Second, "c": 7 * time.Second}
	for _, c := range cs {
		if c.Device.PollInterval != want[c.Device.DeviceID] {
			t.Errorf("device %s interval = %v", c.Device.DeviceID, c.Device.PollInterval)
		}
	}
}

func TestManagerRequiresSink(t *testing.T) {
	m := NewManager(config.RootConfig{}, nil)
	if err := m.Run(context.Background()); err == nil {
		t.Fatal("expected error without sink")
	}
}

func TestManagerCollectsFromSimulator(t *testing.T) {
	sim := simulator.NewServer()
	if err := sim.Listen("127.0.0.1:0"); err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	points := []config.Point{
		{Key: "BatteryVoltage", Address: 0x100, RegisterType: "input", DataType: "uint16", Scale: 0.1},
		{Key: "AcOutputPower", Address: 0x112, RegisterType: "input", DataType: "uint32", ByteOrder: "CDAB", Scale: 1},
	}
	if err := sim.SetPoint(points[0], 24.5); err != nil {
		t.Fatal(err)
	}
	if err := sim.SetPoint(points[1], 70000); err != nil {
		t.Fatal(err)
	}

	port := sim.Addr().(*net.TCPAddr).Port
	cfg := config.RootConfig{
		System: config.SystemConfig{Processing: config.ProcessingConfig{MaxWorkers: 2, MaxQueueSize: 16}},
		Servers: []config.ServerConfig{{
			ServerID:   "inv",
			Protocol:   "modbus-tcp",
			Enabled:    true,
			Timeout:    time.Second,
			Connection: config.Connection{Host: "127.0.0.1", Port: port},
			Devices: []config.Device{{
				DeviceID:     "main",
				SlaveID:      1,
				PollInterval: 20 * time.Millisecond,
				Points:       points,
			}},
		}},
	}

	sink := newRecordingSink()
	m := NewManager(cfg, sink)
	var seen atomic.Int64
	m.OnSample = func(Sample) error {
		seen.Add(1)
		return errors.New("hook errors are only logged")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for len(sink.get("AcOutputPower")) == 0 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("no samples reached the sink")
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := sink.get("BatteryVoltage"); len(got) == 0 || got[0] != 24500 {
		t.Fatalf("BatteryVoltage = %v", got)
	}
	if got := sink.get("AcOutputPower"); got[0] != 70000000 {
		t.Fatalf("AcOutputPower = %v", got)
	}
	if seen.Load() == 0 {
		t.Fatal("OnSample never called")
	}
}
