package muse

import (
	"errors"
	"fmt"
)

var (
	// ErrFormatMismatch is returned when a packet's length does not match
	// the bit layout declared for its source.
	ErrFormatMismatch = errors.New("packet length does not match format")
	// ErrUnknownSource is returned for notifications on a handle with no
	// stream mapping.
	ErrUnknownSource = errors.New("unknown notification source")
	// ErrIncompleteCycle marks a chunk cycle closing with empty channel
	// slots.  The chunk is held, never emitted partial.
	ErrIncompleteCycle = errors.New("eeg chunk cycle incomplete")
)

// Field is one bit-level field in a packet layout.
type Field struct {
	Bits   int
	Signed bool
}

// Format declares the fixed bit layout of one source's packets.  Fields are
// extracted MSB first in declaration order.  The first field is the running
// sample index by convention; the rest are payload values.
type Format struct {
	Fields []Field
}

// repeated returns a format of n repetitions of width-bit fields, optionally
// preceded by a 16-bit unsigned sample index.
func repeated(index bool, n, width int, signed bool) Format {
	f := Format{}
	if index {
		f.Fields = append(f.Fields, Field{Bits: 16})
	}
	for i := 0; i < n; i++ {
		f.Fields = append(f.Fields, Field{Bits: width, Signed: signed})
	}
	return f
}

// TotalBits returns the sum of all field widths.
func (f Format) TotalBits() int {
	var n int
	for _, field := range f.Fields {
		n += field.Bits
	}
	return n
}

// Decode splits raw into one integer per declared field.  The raw buffer must
// be exactly TotalBits()/8 bytes; anything else fails with ErrFormatMismatch
// and no other effect.
func (f Format) Decode(raw []byte) ([]int64, error) {
	if len(raw)*8 != f.TotalBits() {
		return nil, fmt.Errorf("%w: got %d bytes, format wants %d bits", ErrFormatMismatch, len(raw), f.TotalBits())
	}

	out := make([]int64, len(f.Fields))
	bitPos := 0
	for i, field := range f.Fields {
		var v uint64
		for b := 0; b < field.Bits; b++ {
			byteIdx := bitPos >> 3
			bit := (raw[byteIdx] >> (7 - uint(bitPos&7))) & 1
			v = v<<1 | uint64(bit)
			bitPos++
		}
		if field.Signed && v&(1<<uint(field.Bits-1)) != 0 {
			// two's complement sign extension
			v |= ^uint64(0) << uint(field.Bits)
		}
		out[i] = int64(v)
	}
	return out, nil
}
