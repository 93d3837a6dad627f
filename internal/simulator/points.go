package simulator

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"power-monitor/internal/config"
)

// SetPoint stores the engineering value v for p, undoing the point's scale,
// offset, data type and byte order so a collector reads v back.
func (s *Server) SetPoint(p config.Point, v float64) error {
	switch rt := strings.ToLower(p.RegisterType); rt {
	case "coil", "discrete":
		s.SetBit(rt == "discrete", p.Address, v != 0)
		return nil
	case "holding", "", "input":
		words, err := encode(p, v)
		if err != nil {
			return err
		}
		return s.SetRegisters(rt == "input", p.Address, words...)
	default:
		return fmt.Errorf("unsupported register type: %s", p.RegisterType)
	}
}

func encode(p config.Point, v float64) ([]uint16, error) {
	scale := p.Scale
	if scale == 0 {
		scale = 1
	}
	raw := (v - p.Offset) / scale

	var b [4]byte
	switch dt := strings.ToLower(p.DataType); dt {
	case "uint16", "":
		return []uint16{uint16(math.Round(raw))}, nil
	case "int16":
		return []uint16{uint16(int16(math.Round(raw)))}, nil
	case "uint32":
		binary.BigEndian.PutUint32(b[:], uint32(math.Round(raw)))
	case "int32":
		binary.BigEndian.PutUint32(b[:], uint32(int32(math.Round(raw))))
	case "float32":
		binary.BigEndian.PutUint32(b[:], math.Float32bits(float32(raw)))
	default:
		return nil, fmt.Errorf("unsupported data type: %s", p.DataType)
	}

	w := wireOrder(b, p.ByteOrder)
	return []uint16{
		binary.BigEndian.Uint16(w[0:2]),
		binary.BigEndian.Uint16(w[2:4]),
	}, nil
}

// wireOrder lays out an ABCD value in the given byte order. Every supported
// order is its own inverse.
func wireOrder(in [4]byte, order string) [4]byte {
	switch strings.ToUpper(strings.TrimSpace(order)) {
	case "DCBA":
		return [4]byte{in[3], in[2], in[1], in[0]}
	case "BADC":
		return [4]byte{in[1], in[0], in[3], in[2]}
	case "CDAB":
		return [4]byte{in[2], in[3], in[0], in[1]}
	default:
		return in
	}
}
