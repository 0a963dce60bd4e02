package muse

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/auricle-labs/auricle/pkg/util"
)

func newTestHandler(t *testing.T, subs ...Stream) (*PacketHandler, chan *Sample) {
	t.Helper()
	if len(subs) == 0 {
		subs = []Stream{StreamEEG, StreamAccelerometer, StreamGyroscope, StreamTelemetry, StreamStatus}
	}
	ch := make(chan *Sample, 16)
	h := NewPacketHandler(context.Background(), Muse2016(), subs, ch, &util.MockWriteAPI{}, zerolog.Nop())
	return h, ch
}

// eegPayload builds one EEG notification: 16-bit sample index followed by
// twelve 12-bit counts, all set to the same value.
func eegPayload(index int, count int64) []byte {
	values := []int64{int64(index)}
	widths := []int{16}
	for i := 0; i < 12; i++ {
		values = append(values, count)
		widths = append(widths, 12)
	}
	return packBits(widths, values)
}

func imuPayload(index int, counts [9]int64) []byte {
	values := []int64{int64(index)}
	widths := []int{16}
	for _, c := range counts {
		values = append(values, c)
		widths = append(widths, 16)
	}
	return packBits(widths, values)
}

func telemetryPayload(index int, counts [4]int64) []byte {
	values := []int64{int64(index)}
	widths := []int{16}
	for _, c := range counts {
		values = append(values, c)
		widths = append(widths, 16)
	}
	return packBits(widths, values)
}

func drain(ch chan *Sample) []*Sample {
	var out []*Sample
	for {
		select {
		case s := <-ch:
			out = append(out, s)
		default:
			return out
		}
	}
}

func TestEEGFullCycleEmitsOneChunk(t *testing.T) {
	h, ch := newTestHandler(t)
	params := Muse2016()

	for i, source := range params.CycleOrder {
		h.Handle(Notification{Source: source, Payload: eegPayload(100+i, 2048)})
	}

	samples := drain(ch)
	if len(samples) != 1 {
		t.Fatalf("got %d emissions, want 1", len(samples))
	}
	s := samples[0]
	if s.Stream != StreamEEG {
		t.Errorf("stream = %s, want eeg", s.Stream)
	}
	// Index follows the cycle-final source's reported sample index.
	if s.Index != 100+len(params.CycleOrder)-1 {
		t.Errorf("index = %d, want %d", s.Index, 100+len(params.CycleOrder)-1)
	}
	r, c := s.Data.Dims()
	if r != 5 || c != 12 {
		t.Errorf("chunk dims = %dx%d, want 5x12", r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if s.Data.At(i, j) != 0 {
				t.Fatalf("chunk[%d,%d] = %f, want 0 (count 2048)", i, j, s.Data.At(i, j))
			}
		}
	}
	if h.FilledSlots() != 0 {
		t.Errorf("filled slots after emission = %d, want 0", h.FilledSlots())
	}
}

func TestEEGSubsetNeverEmits(t *testing.T) {
	h, ch := newTestHandler(t)
	params := Muse2016()

	// All but one slot, including the cycle-final source.
	for _, source := range params.CycleOrder[1:] {
		h.Handle(Notification{Source: source, Payload: eegPayload(7, 2048)})
	}

	if samples := drain(ch); len(samples) != 0 {
		t.Fatalf("got %d emissions, want 0", len(samples))
	}
	if h.FilledSlots() != len(params.CycleOrder)-1 {
		t.Errorf("filled slots = %d, want %d", h.FilledSlots(), len(params.CycleOrder)-1)
	}
}

func TestEEGCycleRepeats(t *testing.T) {
	h, ch := newTestHandler(t)
	params := Muse2016()

	for cycle := 0; cycle < 3; cycle++ {
		for _, source := range params.CycleOrder {
			h.Handle(Notification{Source: source, Payload: eegPayload(cycle, 4095)})
		}
	}

	samples := drain(ch)
	if len(samples) != 3 {
		t.Fatalf("got %d emissions, want 3", len(samples))
	}
	want := 0.48828125 * 2047
	for _, s := range samples {
		if got := s.Data.At(0, 0); got != want {
			t.Errorf("chunk[0,0] = %f, want %f", got, want)
		}
	}
}

func TestFormatMismatchLeavesBuffersUnchanged(t *testing.T) {
	h, ch := newTestHandler(t)
	params := Muse2016()

	h.Handle(Notification{Source: params.CycleOrder[0], Payload: eegPayload(1, 2048)})
	before := h.FilledSlots()

	h.Handle(Notification{Source: params.CycleOrder[1], Payload: []byte{1, 2, 3}})

	if got := h.FilledSlots(); got != before {
		t.Errorf("filled slots = %d, want %d (unchanged)", got, before)
	}

	h.Handle(Notification{Source: SourceStatus, Payload: statusPayload(`{"a": 1`)})
	pending := h.PendingStatusBytes()

	h.Handle(Notification{Source: SourceStatus, Payload: []byte{4, 'x'}})

	if got := h.PendingStatusBytes(); got != pending {
		t.Errorf("pending status bytes = %d, want %d (unchanged)", got, pending)
	}
	if samples := drain(ch); len(samples) != 0 {
		t.Fatalf("got %d emissions, want 0", len(samples))
	}
}

func TestUnknownSourceDropped(t *testing.T) {
	h, ch := newTestHandler(t)

	h.Handle(Notification{Source: 99, Payload: eegPayload(1, 2048)})

	if samples := drain(ch); len(samples) != 0 {
		t.Fatalf("got %d emissions, want 0", len(samples))
	}
}

func TestUnsubscribedStreamNotEmitted(t *testing.T) {
	h, ch := newTestHandler(t, StreamTelemetry)

	h.Handle(Notification{Source: SourceAccelerometer, Payload: imuPayload(1, [9]int64{})})
	h.Handle(Notification{Source: SourceTelemetry, Payload: telemetryPayload(1, [4]int64{512, 0, 0, 20})})

	samples := drain(ch)
	if len(samples) != 1 {
		t.Fatalf("got %d emissions, want 1", len(samples))
	}
	if samples[0].Stream != StreamTelemetry {
		t.Errorf("stream = %s, want telemetry", samples[0].Stream)
	}
}

func TestTelemetryEmitsImmediately(t *testing.T) {
	h, ch := newTestHandler(t)

	h.Handle(Notification{Source: SourceTelemetry, Payload: telemetryPayload(42, [4]int64{256, 1500, 3, 21})})

	samples := drain(ch)
	if len(samples) != 1 {
		t.Fatalf("got %d emissions, want 1", len(samples))
	}
	s := samples[0]
	if s.Index != 42 {
		t.Errorf("index = %d, want 42", s.Index)
	}
	want := mat.NewDense(4, 1, []float64{0.5, 2.2 * 1500, 3, 21})
	if !matEqual(s.Data, want, 1e-9) {
		t.Errorf("telemetry = %v, want %v", mat.Formatted(s.Data), mat.Formatted(want))
	}
}

func TestIMUEmitsImmediately(t *testing.T) {
	h, ch := newTestHandler(t)

	h.Handle(Notification{Source: SourceGyroscope, Payload: imuPayload(9, [9]int64{100, -100, 0, 0, 0, 0, 0, 0, 0})})
	h.Handle(Notification{Source: SourceAccelerometer, Payload: imuPayload(10, [9]int64{16384, 0, 0, 0, 0, 0, 0, 0, 0})})

	samples := drain(ch)
	if len(samples) != 2 {
		t.Fatalf("got %d emissions, want 2", len(samples))
	}
	if samples[0].Stream != StreamGyroscope || samples[1].Stream != StreamAccelerometer {
		t.Fatalf("streams = %s, %s", samples[0].Stream, samples[1].Stream)
	}
	r, c := samples[0].Data.Dims()
	if r != 3 || c != 3 {
		t.Errorf("gyro dims = %dx%d, want 3x3", r, c)
	}
}
