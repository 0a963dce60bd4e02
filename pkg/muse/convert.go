package muse

import "gonum.org/v1/gonum/mat"

// ConvertRule selects the fixed scaling applied to one stream's decoded
// values.  The set is closed; rules are bound to streams in the parameter
// table, never looked up through mutable state.
type ConvertRule int

const (
	ConvertNone ConvertRule = iota
	ConvertEEG
	ConvertIMUAccel
	ConvertIMUGyro
	ConvertTelemetry
)

// Scale constants for the Muse 2016.  EEG values are 12-bit ADC counts
// centered on 2048; IMU values are 16-bit two's complement.
const (
	eegMicrovoltsPerCount = 0.48828125
	accelGPerCount        = 0.0000610352
	gyroDegPerCount       = 0.0074768
	batteryDivisor        = 512
	fuelGaugeScale        = 2.2
)

// convert maps the payload fields of one packet (sample index already
// stripped) to a channels-by-chunk matrix in physical units.  Pure; it
// assumes the field count matches the rule's declared shape.
func convert(rule ConvertRule, fields []int64) *mat.Dense {
	switch rule {
	case ConvertEEG:
		// One EEG notification carries a single channel's chunk.
		data := make([]float64, len(fields))
		for i, v := range fields {
			data[i] = eegMicrovoltsPerCount * (float64(v) - 2048)
		}
		return mat.NewDense(1, len(fields), data)

	case ConvertIMUAccel:
		return scaled(fields, 3, 3, accelGPerCount)

	case ConvertIMUGyro:
		return scaled(fields, 3, 3, gyroDegPerCount)

	case ConvertTelemetry:
		// Battery fraction, fuel gauge mV, ADC volts, temperature.
		return mat.NewDense(4, 1, []float64{
			float64(fields[0]) / batteryDivisor,
			fuelGaugeScale * float64(fields[1]),
			float64(fields[2]),
			float64(fields[3]),
		})

	default:
		return nil
	}
}

// scaled applies a uniform factor and reshapes row-major into rows x cols.
func scaled(fields []int64, rows, cols int, factor float64) *mat.Dense {
	data := make([]float64, len(fields))
	for i, v := range fields {
		data[i] = factor * float64(v)
	}
	return mat.NewDense(rows, cols, data)
}
