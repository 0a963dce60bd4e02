package muse

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func matEqual(a, b *mat.Dense, epsilon float64) bool {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		return false
	}
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			if math.Abs(a.At(i, j)-b.At(i, j)) > epsilon {
				return false
			}
		}
	}
	return true
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name   string
		rule   ConvertRule
		fields []int64
		want   *mat.Dense
	}{{
		"eeg midpoint and extremes",
		ConvertEEG,
		[]int64{2048, 0, 4095, 2048, 2048, 2048, 2048, 2048, 2048, 2048, 2048, 2048},
		mat.NewDense(1, 12, []float64{
			0, 0.48828125 * -2048, 0.48828125 * 2047, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		}),
	}, {
		"accelerometer reshape",
		ConvertIMUAccel,
		[]int64{16384, -16384, 0, 1, -1, 2, 3, -3, 32767},
		mat.NewDense(3, 3, []float64{
			0.0000610352 * 16384, 0.0000610352 * -16384, 0,
			0.0000610352, -0.0000610352, 0.0000610352 * 2,
			0.0000610352 * 3, 0.0000610352 * -3, 0.0000610352 * 32767,
		}),
	}, {
		"gyroscope reshape",
		ConvertIMUGyro,
		[]int64{100, -100, 0, 50, -50, 25, -25, 1, -1},
		mat.NewDense(3, 3, []float64{
			0.74768, -0.74768, 0,
			0.37384, -0.37384, 0.18692,
			-0.18692, 0.0074768, -0.0074768,
		}),
	}, {
		"telemetry per-field rules",
		ConvertTelemetry,
		[]int64{512, 100, 3, 22},
		mat.NewDense(4, 1, []float64{1.0, 220, 3, 22}),
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convert(tt.rule, tt.fields)
			if !matEqual(got, tt.want, 1e-9) {
				t.Errorf("convert() = %v, want %v", mat.Formatted(got), mat.Formatted(tt.want))
			}
		})
	}
}

func TestConvertNone(t *testing.T) {
	if got := convert(ConvertNone, []int64{1, 2, 3}); got != nil {
		t.Errorf("convert(ConvertNone) = %v, want nil", got)
	}
}
