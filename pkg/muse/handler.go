package muse

import (
	"context"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/auricle-labs/auricle/pkg/util"
)

// PacketHandler reassembles one headband connection's notifications into
// emitted samples.  It owns all mutable decode state for the connection: the
// EEG chunk under assembly and the status accumulator.  Handle is safe to
// call from concurrent notification callbacks; everything else about the
// handler is single-connection.
type PacketHandler struct {
	params *Params
	subs   map[Stream]bool

	// EEG chunk cycle state.  One notification per channel slot; the chunk
	// is emitted only once every slot has been written.
	chunk     *mat.Dense
	slotIndex []int
	filled    uint32
	fullMask  uint32
	lastEEG   uint16

	status statusAssembler

	outputChan chan<- *Sample
	writeAPI   api.WriteAPI
	logger     zerolog.Logger
	ctx        context.Context
	mu         sync.Mutex
}

// NewPacketHandler returns a handler emitting decoded samples for the
// subscribed streams on ch.  Notifications for unsubscribed streams are still
// decoded but produce no emission.
func NewPacketHandler(ctx context.Context, params *Params, subscriptions []Stream, ch chan<- *Sample, writeAPI api.WriteAPI, logger zerolog.Logger) *PacketHandler {
	eeg := params.Streams[StreamEEG]
	subs := make(map[Stream]bool, len(subscriptions))
	for _, s := range subscriptions {
		subs[s] = true
	}

	return &PacketHandler{
		params:     params,
		subs:       subs,
		chunk:      mat.NewDense(eeg.ChannelCount, eeg.ChunkSize, nil),
		slotIndex:  make([]int, eeg.ChannelCount),
		fullMask:   1<<uint(eeg.ChannelCount) - 1,
		lastEEG:    params.CycleOrder[len(params.CycleOrder)-1],
		outputChan: ch,
		writeAPI:   writeAPI,
		logger:     logger,
		ctx:        ctx,
	}
}

// Handle decodes one notification and routes it to the owning stream.  All
// failures are per-event and recoverable: the packet is dropped, logged, and
// no buffered state is touched.
func (h *PacketHandler) Handle(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	src, ok := h.params.Source(n.Source)
	if !ok {
		h.logger.Warn().Uint16("source", n.Source).Err(ErrUnknownSource).Msg("dropping notification")
		return
	}
	cfg := h.params.Streams[src.Stream]

	var fields []int64
	var err error
	decodeMicros := util.TimeOperationMicroseconds(func() {
		fields, err = cfg.Format.Decode(n.Payload)
	})
	if err != nil {
		h.logger.Warn().
			Uint16("source", n.Source).
			Str("stream", string(src.Stream)).
			Int("bytes", len(n.Payload)).
			Err(err).
			Msg("dropping notification")
		return
	}

	if !h.subs[src.Stream] {
		return
	}

	ts := n.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	switch src.Stream {
	case StreamStatus:
		h.handleStatus(fields, ts)
	case StreamEEG:
		h.handleEEG(n.Source, src.Slot, fields, ts, decodeMicros)
	default:
		h.emit(&Sample{
			Stream:    src.Stream,
			Index:     int(fields[0]),
			Data:      convert(cfg.Rule, fields[1:]),
			Timestamp: ts,
		}, decodeMicros)
	}
}

func (h *PacketHandler) handleEEG(source uint16, slot int, fields []int64, ts time.Time, decodeMicros int64) {
	if h.filled&(1<<uint(slot)) != 0 {
		// A slot written twice before the cycle completed means a missed
		// notification somewhere; keep the newer column.
		h.logger.Warn().
			Uint16("source", source).
			Int("slot", slot).
			Int("sample_index", int(fields[0])).
			Msg("eeg slot overwritten before cycle completed")
	}

	row := convert(ConvertEEG, fields[1:])
	h.chunk.SetRow(slot, row.RawRowView(0))
	h.slotIndex[slot] = int(fields[0])
	h.filled |= 1 << uint(slot)

	if source != h.lastEEG {
		return
	}
	if h.filled != h.fullMask {
		h.logger.Warn().
			Uint32("filled", h.filled).
			Err(ErrIncompleteCycle).
			Msg("holding chunk at final source")
		return
	}

	out := mat.DenseCopyOf(h.chunk)
	h.filled = 0
	h.emit(&Sample{
		Stream:    StreamEEG,
		Index:     h.slotIndex[h.params.Sources[h.lastEEG].Slot],
		Data:      out,
		Timestamp: ts,
	}, decodeMicros)
}

func (h *PacketHandler) handleStatus(fields []int64, ts time.Time) {
	record, done, err := h.status.push(fields)
	if err != nil {
		h.logger.Warn().Err(err).Msg("discarding status buffer")
		return
	}
	if !done {
		return
	}
	h.emit(&Sample{
		Stream:    StreamStatus,
		Index:     -1,
		Record:    record,
		Timestamp: ts,
	}, 0)
}

func (h *PacketHandler) emit(sample *Sample, decodeMicros int64) {
	select {
	case <-h.ctx.Done():
		return
	case h.outputChan <- sample:
	}

	go h.writeAPI.WritePoint(influxdb2.NewPoint("muse.sample.emitted",
		map[string]string{
			"stream": string(sample.Stream),
		},
		map[string]interface{}{
			"sample_index": sample.Index,
			"decode_us":    decodeMicros,
		}, time.Now()))
}

// PendingStatusBytes reports the size of the partially assembled status
// record, for the monitor endpoints.
func (h *PacketHandler) PendingStatusBytes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status.pending()
}

// FilledSlots reports how many EEG channel slots are written in the current
// cycle.
func (h *PacketHandler) FilledSlots() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for mask := h.filled; mask != 0; mask &= mask - 1 {
		n++
	}
	return n
}
