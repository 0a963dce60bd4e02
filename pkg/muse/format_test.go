package muse

import (
	"errors"
	"reflect"
	"testing"
)

// packBits packs values MSB-first into a byte buffer per the given widths.
// Mirrors what the headband firmware does on the wire.
func packBits(widths []int, values []int64) []byte {
	var bits []byte
	for i, w := range widths {
		for b := w - 1; b >= 0; b-- {
			bits = append(bits, byte(uint64(values[i])>>uint(b)&1))
		}
	}
	out := make([]byte, len(bits)/8)
	for i, bit := range bits {
		out[i/8] |= bit << (7 - uint(i%8))
	}
	return out
}

func fieldWidths(f Format) []int {
	widths := make([]int, len(f.Fields))
	for i, field := range f.Fields {
		widths[i] = field.Bits
	}
	return widths
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		values []int64
	}{{
		"eeg index and 12 counts",
		repeated(true, 12, 12, false),
		[]int64{513, 0, 1, 2047, 2048, 2049, 4095, 1024, 3000, 12, 7, 99, 2048},
	}, {
		"imu signed 16-bit",
		repeated(true, 9, 16, true),
		[]int64{65535, -1, -32768, 32767, 0, 1, -2, 1000, -1000, 512},
	}, {
		"telemetry unsigned 16-bit",
		repeated(true, 4, 16, false),
		[]int64{7, 512, 100, 3, 22},
	}, {
		"status bytes",
		repeated(false, 20, 8, false),
		[]int64{9, '{', '"', 'a', '"', ':', ' ', '1', '}', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := packBits(fieldWidths(tt.format), tt.values)
			if len(raw)*8 != tt.format.TotalBits() {
				t.Fatalf("test payload is %d bytes, format wants %d bits", len(raw), tt.format.TotalBits())
			}
			got, err := tt.format.Decode(raw)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.values) {
				t.Errorf("Decode() = %v, want %v", got, tt.values)
			}
		})
	}
}

func TestDecodeRange(t *testing.T) {
	// Any correctly sized buffer decodes, and every field lands inside the
	// numeric range its width and signedness imply.
	format := repeated(true, 12, 12, false)
	raw := make([]byte, format.TotalBits()/8)
	for i := range raw {
		raw[i] = byte(i*37 + 11)
	}

	got, err := format.Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got) != len(format.Fields) {
		t.Fatalf("Decode() returned %d fields, want %d", len(got), len(format.Fields))
	}
	for i, v := range got {
		max := int64(1)<<uint(format.Fields[i].Bits) - 1
		if v < 0 || v > max {
			t.Errorf("field %d = %d, outside [0, %d]", i, v, max)
		}
	}
}

func TestDecodeLengthMismatch(t *testing.T) {
	format := repeated(true, 4, 16, false)

	for _, n := range []int{0, 1, 9, 11, 20} {
		if _, err := format.Decode(make([]byte, n)); !errors.Is(err, ErrFormatMismatch) {
			t.Errorf("Decode(%d bytes) error = %v, want ErrFormatMismatch", n, err)
		}
	}
}
