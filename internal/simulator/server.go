// Package simulator serves configured inverter points over Modbus TCP so the
// collector can be exercised without hardware.
package simulator

import (
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"power-monitor/internal/logging"
)

const (
	fnReadCoils          = 0x01
	fnReadDiscreteInputs = 0x02
	fnReadHoldingRegs    = 0x03
	fnReadInputRegs      = 0x04

	exIllegalFunction = 0x01
	exIllegalDataAddr = 0x02
	exIllegalDataVal  = 0x03

	tableSize = 65536
)

var (
	errOutOfRange    = errors.New("out of range")
	errInvalidQty    = errors.New("invalid quantity")
	errInvalidPDULen = errors.New("invalid pdu length")
)

// Server is a read-only Modbus TCP slave backed by in-memory tables.
type Server struct {
	listener  net.Listener
	wg        sync.WaitGroup
	quit      chan struct{}
	closeOnce sync.Once

	mu       sync.RWMutex
	holding  []uint16
	input    []uint16
	coils    []bool
	discrete []bool

	log *slog.Logger
}

// NewServer returns a server with all tables zeroed.
func NewServer() *Server {
	return &Server{
		holding:  make([]uint16, tableSize),
		input:    make([]uint16, tableSize),
		coils:    make([]bool, tableSize),
		discrete: make([]bool, tableSize),
		quit:     make(chan struct{}),
		log:      logging.Component("simulator"),
	}
}

// Listen starts accepting connections on address. Use ":0" and Addr to pick
// a free port.
func (s *Server) Listen(address string) error {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.listener = l
	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the listening address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
			}
			s.log.Debug("accept failed", "error", err)
			continue
		}
		s.wg.Add(1)
		go s.serve(conn)
	}
}

// serve answers MBAP-framed requests on conn until it closes.
func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	header := make([]byte, 7)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		length := int(binary.BigEndian.Uint16(header[4:6]))
		if length <= 1 {
			continue
		}
		pdu := make([]byte, length-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		resp := s.handlePDU(pdu)
		// Transaction id (header[0:2]) and unit id (header[6]) are echoed.
		binary.BigEndian.PutUint16(header[2:4], 0)
		binary.BigEndian.PutUint16(header[4:6], uint16(len(resp)+1))
		frame := append(header[:7:7], resp...)
		if _, err := conn.Write(frame); err != nil {
			return
		}
	}
}

func (s *Server) handlePDU(pdu []byte) []byte {
	if len(pdu) == 0 {
		return exception(0, exIllegalFunction)
	}
	fn := pdu[0]

	var (
		data []byte
		err  error
	)
	switch fn {
	case fnReadCoils:
		data, err = s.readBits(s.coils, pdu)
	case fnReadDiscreteInputs:
		data, err = s.readBits(s.discrete, pdu)
	case fnReadHoldingRegs:
		data, err = s.readRegisters(s.holding, pdu)
	case fnReadInputRegs:
		data, err = s.readRegisters(s.input, pdu)
	default:
		return exception(fn, exIllegalFunction)
	}
	if err != nil {
		return exception(fn, exceptionCode(err))
	}
	return append([]byte{fn, byte(len(data))}, data...)
}

func parseRange(pdu []byte, maxQty uint16) (start, qty int, err error) {
	if len(pdu) < 5 {
		return 0, 0, errInvalidPDULen
	}
	start = int(binary.BigEndian.Uint16(pdu[1:3]))
	q := binary.BigEndian.Uint16(pdu[3:5])
	if q == 0 || q > maxQty {
		return 0, 0, errInvalidQty
	}
	if start+int(q) > tableSize {
		return 0, 0, errOutOfRange
	}
	return start, int(q), nil
}

func (s *Server) readBits(table []bool, pdu []byte) ([]byte, error) {
	start, qty, err := parseRange(pdu, 2000)
	if err != nil {
		return nil, err
	}
	out := make([]byte, (qty+7)/8)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := 0; i < qty; i++ {
		if table[start+i] {
			out[i/8] |= 1 << (uint(i) % 8)
		}
	}
	return out, nil
}

func (s *Server) readRegisters(table []uint16, pdu []byte) ([]byte, error) {
	start, qty, err := parseRange(pdu, 125)
	if err != nil {
		return nil, err
	}
	out := make([]byte, qty*2)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := 0; i < qty; i++ {
		binary.BigEndian.PutUint16(out[i*2:], table[start+i])
	}
	return out, nil
}

func exception(fn, code byte) []byte {
	return []byte{fn | 0x80, code}
}

func exceptionCode(err error) byte {
	switch {
	case errors.Is(err, errOutOfRange):
		return exIllegalDataAddr
	case errors.Is(err, errInvalidQty), errors.Is(err, errInvalidPDULen):
		return exIllegalDataVal
	default:
		return exIllegalFunction
	}
}

// Close stops the listener and waits for open connections to finish.
func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.quit)
		if s.listener != nil {
			s.listener.Close()
		}
	})
	s.wg.Wait()
}

// SetRegisters writes consecutive words starting at address into the holding
// or input table.
func (s *Server) SetRegisters(input bool, address uint16, words ...uint16) error {
	if int(address)+len(words) > tableSize {
		return errOutOfRange
	}
	table := s.holding
	if input {
		table = s.input
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(table[address:], words)
	return nil
}

// SetBit writes a coil or, when discrete is set, a discrete input.
func (s *Server) SetBit(discrete bool, address uint16, v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if discrete {
		s.discrete[address] = v
	} else {
		s.coils[address] = v
	}
}
