package collector

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	mb "github.com/goburrow/modbus"

	"power-monitor/internal/config"
	"power-monitor/internal/logging"
)

// Sample is one decoded, scaled point reading.
type Sample struct {
	ServerID  string
	DeviceID  string
	Key       string
	Unit      string
	Value     float64
	Timestamp time.Time
}

// Handler receives samples. A returned error is logged by the collector.
type Handler func(Sample) error

// registerReader is the subset of mb.Client the collector needs.
type registerReader interface {
	ReadCoils(address, quantity uint16) ([]byte, error)
	ReadDiscreteInputs(address, quantity uint16) ([]byte, error)
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

// handlerWithConn is a TCP or RTU client handler with an explicit lifecycle.
type handlerWithConn interface {
	mb.ClientHandler
	Connect() error
	Close() error
}

// Collector polls a single device.
type Collector struct {
	Server  config.ServerConfig
	Device  config.Device
	Handler Handler

	handler  handlerWithConn
	connAddr string
	now      func() time.Time
	log      *slog.Logger
}

// NewCollector returns a collector for dev on srv.
func NewCollector(srv config.ServerConfig, dev config.Device, h Handler) *Collector {
	return &Collector{
		Server:  srv,
		Device:  dev,
		Handler: h,
		now:     time.Now,
		log:     logging.Component("collector").With("server", srv.ServerID, "device", dev.DeviceID),
	}
}

func (c *Collector) newHandler() (handlerWithConn, string, error) {
	proto := strings.ToLower(strings.TrimSpace(c.Server.Protocol))
	timeout := c.Server.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	switch proto {
	case "modbus-tcp", "tcp":
		address := fmt.Sprintf("%s:%d", c.Server.Connection.Host, c.Server.Connection.Port)
		h := mb.NewTCPClientHandler(address)
		h.Timeout = timeout
		h.SlaveId = c.Device.SlaveID
		return h, address, nil
	case "modbus-rtu", "rtu":
		port := strings.TrimSpace(c.Server.Connection.SerialPort)
		if port == "" {
			return nil, "", errors.New("serial_port is required for RTU")
		}
		h := mb.NewRTUClientHandler(port)
		if c.Server.Connection.BaudRate > 0 {
			h.BaudRate = c.Server.Connection.BaudRate
		}
		if c.Server.Connection.DataBits > 0 {
			h.DataBits = c.Server.Connection.DataBits
		}
		if c.Server.Connection.StopBits > 0 {
			h.StopBits = c.Server.Connection.StopBits
		}
		if p := strings.ToUpper(strings.TrimSpace(c.Server.Connection.Parity)); p != "" {
			h.Parity = p
		}
		h.Timeout = timeout
		h.SlaveId = c.Device.SlaveID
		return h, port, nil
	default:
		return nil, "", fmt.Errorf("protocol %s not implemented", c.Server.Protocol)
	}
}

// Run connects, polls every PollInterval until ctx is done, and closes the
// connection. It only returns an error when the device cannot be reached.
func (c *Collector) Run(ctx context.Context) error {
	h, addr, err := c.newHandler()
	if err != nil {
		return err
	}
	c.handler = h
	c.connAddr = addr

	retry := max(c.Server.RetryCount, 0)
	for attempt := 0; ; attempt++ {
		err := h.Connect()
		if err == nil {
			break
		}
		if attempt >= retry {
			return fmt.Errorf("connect %s: %w", addr, err)
		}
		c.log.Warn("connect failed, retrying", "addr", addr, "attempt", attempt+1, "error", err)
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	defer h.Close()
	c.log.Info("connected", "addr", addr, "points", len(c.Device.Points))

	client := mb.NewClient(h)

	interval := c.Device.PollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := c.pollOnce(ctx, client); err != nil {
		c.log.Warn("initial poll failed", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.pollOnce(ctx, client); err != nil {
				c.log.Warn("poll failed", "error", err)
			}
		}
	}
}

// pollOnce reads every point in order. A point that fails twice, with a
// reconnect in between, aborts the cycle.
func (c *Collector) pollOnce(ctx context.Context, r registerReader) error {
	for _, p := range c.Device.Points {
		if err := ctx.Err(); err != nil {
			return err
		}

		s, err := c.readPoint(r, p)
		if err != nil {
			if recErr := c.reconnect(); recErr != nil {
				return fmt.Errorf("read point %s@%d: %w", p.Key, p.Address, err)
			}
			if s, err = c.readPoint(r, p); err != nil {
				return fmt.Errorf("read point %s@%d: %w", p.Key, p.Address, err)
			}
		}
		if c.Handler == nil {
			continue
		}
		if err := c.Handler(s); err != nil {
			c.log.Warn("handler error", "key", p.Key, "error", err)
		}
	}
	return nil
}

func (c *Collector) readPoint(r registerReader, p config.Point) (Sample, error) {
	s := Sample{
		ServerID:  c.Server.ServerID,
		DeviceID:  c.Device.DeviceID,
		Key:       p.Key,
		Unit:      p.Unit,
		Timestamp: c.now(),
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(p.RegisterType) {
	case "holding", "":
		data, err = r.ReadHoldingRegisters(p.Address, registerCount(p.DataType))
	case "input":
		data, err = r.ReadInputRegisters(p.Address, registerCount(p.DataType))
	case "coil":
		data, err = r.ReadCoils(p.Address, 1)
		if err == nil {
			s.Value = boolToFloat(len(data) > 0 && data[0]&0x01 == 0x01)
		}
		return s, err
	case "discrete":
		data, err = r.ReadDiscreteInputs(p.Address, 1)
		if err == nil {
			s.Value = boolToFloat(len(data) > 0 && data[0]&0x01 == 0x01)
		}
		return s, err
	default:
		return s, fmt.Errorf("unsupported register type: %s", p.RegisterType)
	}
	if err != nil {
		return s, err
	}

	raw, err := decodeRegisters(data, p.DataType, p.ByteOrder)
	if err != nil {
		return s, err
	}
	s.Value = raw*p.Scale + p.Offset
	return s, nil
}

func registerCount(dataType string) uint16 {
	switch strings.ToLower(dataType) {
	case "float32", "uint32", "int32":
		return 2
	default:
		return 1
	}
}

// decodeRegisters converts big-endian register bytes into a number.
func decodeRegisters(data []byte, dataType, byteOrder string) (float64, error) {
	dt := strings.ToLower(dataType)
	if dt == "" {
		dt = "uint16"
	}
	if len(data) < 2*int(registerCount(dt)) {
		return 0, fmt.Errorf("insufficient data for %s", dt)
	}

	switch dt {
	case "uint16":
		return float64(binary.BigEndian.Uint16(data[:2])), nil
	case "int16":
		return float64(int16(binary.BigEndian.Uint16(data[:2]))), nil
	case "uint32":
		return float64(binary.BigEndian.Uint32(reorder32(data[:4], byteOrder))), nil
	case "int32":
		return float64(int32(binary.BigEndian.Uint32(reorder32(data[:4], byteOrder)))), nil
	case "float32":
		return float64(math.Float32frombits(binary.BigEndian.Uint32(reorder32(data[:4], byteOrder)))), nil
	default:
		return 0, fmt.Errorf("unsupported data type: %s", dataType)
	}
}

// reorder32 maps the wire order of a 32-bit value onto ABCD.
// Supported orders: ABCD (default), DCBA, BADC (byte swap within words), CDAB (word swap).
func reorder32(in []byte, order string) []byte {
	var out [4]byte
	switch strings.ToUpper(strings.TrimSpace(order)) {
	case "DCBA":
		out[0], out[1], out[2], out[3] = in[3], in[2], in[1], in[0]
	case "BADC":
		out[0], out[1], out[2], out[3] = in[1], in[0], in[3], in[2]
	case "CDAB":
		out[0], out[1], out[2], out[3] = in[2], in[3], in[0], in[1]
	default:
		copy(out[:], in[:4])
	}
	return out[:]
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func (c *Collector) reconnect() error {
	if c.handler == nil {
		return errors.New("no handler")
	}
	c.handler.Close()
	time.Sleep(200 * time.Millisecond)
	return c.handler.Connect()
}
