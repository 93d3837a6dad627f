// Package config loads the collector daemon's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RootConfig mirrors configs/power.yaml.
type RootConfig struct {
	System    SystemConfig             `yaml:"system"`
	Frequency map[string]time.Duration `yaml:"frequency"`
	Servers   []ServerConfig           `yaml:"servers"`
}

type SystemConfig struct {
	Processing ProcessingConfig `yaml:"processing"`
	Storage    StorageConfig    `yaml:"storage"`
	Log        LogConfig        `yaml:"log"`
}

type ProcessingConfig struct {
	MaxWorkers   int `yaml:"max_workers"`
	MaxQueueSize int `yaml:"max_queue_size"`
}

type StorageConfig struct {
	Location     string  `yaml:"location"`
	RepairOnOpen bool    `yaml:"repair_on_open"`
	Delta        float64 `yaml:"delta"` // percent
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

type ServerConfig struct {
	ServerID   string        `yaml:"server_id"`
	ServerName string        `yaml:"server_name"`
	Protocol   string        `yaml:"protocol"` // modbus-tcp | modbus-rtu
	Connection Connection    `yaml:"connection"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"`
	Enabled    bool          `yaml:"enabled"`
	Devices    []Device      `yaml:"devices"`
}

type Connection struct {
	// TCP
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// RTU
	SerialPort string `yaml:"serial_port"`
	BaudRate   int    `yaml:"baud_rate"`
	DataBits   int    `yaml:"data_bits"`
	StopBits   int    `yaml:"stop_bits"`
	Parity     string `yaml:"parity"`
}

type Device struct {
	DeviceID     string        `yaml:"device_id"`
	Vendor       string        `yaml:"vendor"`
	SlaveID      uint8         `yaml:"slave_id"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Points       []Point       `yaml:"points"`
}

type Point struct {
	Address      uint16  `yaml:"address"`
	Name         string  `yaml:"name"`
	Key          string  `yaml:"key"`           // reading key in the log, defaults to Name
	DataType     string  `yaml:"data_type"`     // uint16 | int16 | uint32 | int32 | float32
	ByteOrder    string  `yaml:"byte_order"`    // ABCD | DCBA | BADC | CDAB
	RegisterType string  `yaml:"register_type"` // holding | input | coil | discrete
	Scale        float64 `yaml:"scale"`
	Offset       float64 `yaml:"offset"`
	Unit         string  `yaml:"unit"`
}

const (
	DefaultMaxWorkers   = 10
	DefaultMaxQueueSize = 1000
	DefaultDelta        = 0.5
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// LoadYAML reads, defaults and validates the configuration at path.
func LoadYAML(path string) (RootConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return RootConfig{}, err
	}
	return Parse(b)
}

// Parse is LoadYAML without the file read.
func Parse(b []byte) (RootConfig, error) {
	var cfg RootConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RootConfig{}, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return RootConfig{}, err
	}
	return cfg, nil
}

func applyDefaults(cfg *RootConfig) {
	if cfg.System.Processing.MaxWorkers <= 0 {
		cfg.System.Processing.MaxWorkers = DefaultMaxWorkers
	}
	if cfg.System.Processing.MaxQueueSize <= 0 {
		cfg.System.Processing.MaxQueueSize = DefaultMaxQueueSize
	}
	if cfg.System.Storage.Delta <= 0 {
		cfg.System.Storage.Delta = DefaultDelta
	}
	if strings.TrimSpace(cfg.System.Log.Level) == "" {
		cfg.System.Log.Level = DefaultLogLevel
	}
	if strings.TrimSpace(cfg.System.Log.Format) == "" {
		cfg.System.Log.Format = DefaultLogFormat
	}
	for i := range cfg.Servers {
		for j := range cfg.Servers[i].Devices {
			pts := cfg.Servers[i].Devices[j].Points
			for k := range pts {
				if pts[k].Key == "" {
					pts[k].Key = pts[k].Name
				}
				if pts[k].Scale == 0 {
					pts[k].Scale = 1
				}
			}
		}
	}
}

// Validate checks the invariants the collector relies on.
func (c RootConfig) Validate() error {
	if strings.TrimSpace(c.System.Storage.Location) == "" {
		return errors.New("system.storage.location must be set")
	}
	if len(c.Servers) == 0 {
		return errors.New("no servers configured")
	}
	switch strings.ToLower(c.System.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.System.Log.Format)
	}
	for _, srv := range c.Servers {
		if !srv.Enabled {
			continue
		}
		for _, dev := range srv.Devices {
			if len(dev.Points) == 0 {
				return fmt.Errorf("server %s device %s: no points configured", srv.ServerID, dev.DeviceID)
			}
			seen := make(map[string]struct{}, len(dev.Points))
			for _, p := range dev.Points {
				if p.Key == "" {
					return fmt.Errorf("server %s device %s: point at address %d has no name or key", srv.ServerID, dev.DeviceID, p.Address)
				}
				if _, dup := seen[p.Key]; dup {
					return fmt.Errorf("server %s device %s: duplicate point key %q", srv.ServerID, dev.DeviceID, p.Key)
				}
				seen[p.Key] = struct{}{}
			}
		}
	}
	return nil
}

// JSONLogs reports whether log output should be JSON.
func (c RootConfig) JSONLogs() bool {
	return strings.EqualFold(c.System.Log.Format, "json")
}
