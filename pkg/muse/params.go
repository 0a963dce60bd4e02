package muse

// GATT value handles the Muse 2016 delivers notifications on.  These are the
// source identifiers used throughout the decode path.
const (
	SourceStatus        uint16 = 14
	SourceGyroscope     uint16 = 20
	SourceAccelerometer uint16 = 23
	SourceTelemetry     uint16 = 26
	SourceEEGTP9        uint16 = 32
	SourceEEGAF7        uint16 = 35
	SourceEEGAF8        uint16 = 38
	SourceEEGTP10       uint16 = 41
	SourceEEGRightAux   uint16 = 44
)

// statusPayloadChars is the number of character-code fields per status
// packet, following the length byte.
const statusPayloadChars = 19

// StreamConfig describes one stream's shape and scaling.
type StreamConfig struct {
	ChannelCount int
	ChunkSize    int
	NominalRate  float64
	ChannelNames []string
	Units        []string
	Format       Format
	Rule         ConvertRule
}

// SourceConfig maps a notification source to its owning stream.  Slot is the
// channel slot the source fills for split-channel streams, -1 otherwise.
type SourceConfig struct {
	Stream Stream
	Slot   int
}

// Characteristic pairs a GATT characteristic UUID with the value handle its
// notifications carry as source identifier.
type Characteristic struct {
	UUID   string
	Source uint16
}

// Params is the full device parameter table: stream shapes, packet layouts,
// source routing, and the BLE profile.  Built once and passed by reference;
// nothing in it is mutated after construction.
type Params struct {
	Manufacturer string
	Name         string

	Streams map[Stream]StreamConfig
	Sources map[uint16]SourceConfig

	// CycleOrder is the order EEG sources complete one chunk cycle; the
	// last entry closes the cycle.
	CycleOrder []uint16

	Service         string
	Characteristics []Characteristic
	ControlUUID     string
	StreamOn        []byte
	StreamOff       []byte
}

// Muse2016 returns the parameter table for the 2016 Muse headband.
func Muse2016() *Params {
	return &Params{
		Manufacturer: "Interaxon",
		Name:         "Muse",

		Streams: map[Stream]StreamConfig{
			StreamEEG: {
				ChannelCount: 5,
				ChunkSize:    12,
				NominalRate:  256,
				ChannelNames: []string{"TP9", "AF7", "AF8", "TP10", "Right AUX"},
				Units:        []string{"uV", "uV", "uV", "uV", "uV"},
				Format:       repeated(true, 12, 12, false),
				Rule:         ConvertEEG,
			},
			StreamAccelerometer: {
				ChannelCount: 3,
				ChunkSize:    3,
				NominalRate:  52,
				ChannelNames: []string{"x", "y", "z"},
				Units:        []string{"milli-g", "milli-g", "milli-g"},
				Format:       repeated(true, 9, 16, true),
				Rule:         ConvertIMUAccel,
			},
			StreamGyroscope: {
				ChannelCount: 3,
				ChunkSize:    3,
				NominalRate:  52,
				ChannelNames: []string{"x", "y", "z"},
				Units:        []string{"deg/s", "deg/s", "deg/s"},
				Format:       repeated(true, 9, 16, true),
				Rule:         ConvertIMUGyro,
			},
			StreamTelemetry: {
				ChannelCount: 4,
				ChunkSize:    1,
				NominalRate:  0.1,
				ChannelNames: []string{"battery", "fuel_gauge", "adc_volt", "temperature"},
				Units:        []string{"%", "?/mV", "?/mV", "C"},
				Format:       repeated(true, 4, 16, false),
				Rule:         ConvertTelemetry,
			},
			StreamStatus: {
				ChannelCount: 1,
				ChunkSize:    1,
				Format:       repeated(false, statusPayloadChars+1, 8, false),
				Rule:         ConvertNone,
			},
		},

		Sources: map[uint16]SourceConfig{
			SourceStatus:        {Stream: StreamStatus, Slot: -1},
			SourceGyroscope:     {Stream: StreamGyroscope, Slot: -1},
			SourceAccelerometer: {Stream: StreamAccelerometer, Slot: -1},
			SourceTelemetry:     {Stream: StreamTelemetry, Slot: -1},
			SourceEEGTP9:        {Stream: StreamEEG, Slot: 0},
			SourceEEGAF7:        {Stream: StreamEEG, Slot: 1},
			SourceEEGAF8:        {Stream: StreamEEG, Slot: 2},
			SourceEEGTP10:       {Stream: StreamEEG, Slot: 3},
			SourceEEGRightAux:   {Stream: StreamEEG, Slot: 4},
		},

		CycleOrder: []uint16{
			SourceEEGRightAux,
			SourceEEGTP10,
			SourceEEGAF8,
			SourceEEGTP9,
			SourceEEGAF7,
		},

		Service: "0000fe8d-0000-1000-8000-00805f9b34fb",
		Characteristics: []Characteristic{
			{UUID: "273e0001-4c4d-454d-96be-f03bac821358", Source: SourceStatus},
			{UUID: "273e0009-4c4d-454d-96be-f03bac821358", Source: SourceGyroscope},
			{UUID: "273e000a-4c4d-454d-96be-f03bac821358", Source: SourceAccelerometer},
			{UUID: "273e000b-4c4d-454d-96be-f03bac821358", Source: SourceTelemetry},
			{UUID: "273e0003-4c4d-454d-96be-f03bac821358", Source: SourceEEGTP9},
			{UUID: "273e0004-4c4d-454d-96be-f03bac821358", Source: SourceEEGAF7},
			{UUID: "273e0005-4c4d-454d-96be-f03bac821358", Source: SourceEEGAF8},
			{UUID: "273e0006-4c4d-454d-96be-f03bac821358", Source: SourceEEGTP10},
			{UUID: "273e0007-4c4d-454d-96be-f03bac821358", Source: SourceEEGRightAux},
		},
		ControlUUID: "273e0001-4c4d-454d-96be-f03bac821358",
		StreamOn:    []byte{0x02, 0x64, 0x0a},
		StreamOff:   []byte{0x02, 0x68, 0x0a},
	}
}

// Source resolves a notification handle to its stream routing.
func (p *Params) Source(handle uint16) (SourceConfig, bool) {
	cfg, ok := p.Sources[handle]
	return cfg, ok
}

// StreamFor returns the characteristics belonging to one stream, in table
// order.
func (p *Params) StreamFor(stream Stream) []Characteristic {
	var out []Characteristic
	for _, c := range p.Characteristics {
		if src, ok := p.Sources[c.Source]; ok && src.Stream == stream {
			out = append(out, c)
		}
	}
	return out
}
