package device

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/auricle-labs/auricle/pkg/muse"
)

// Device is a source of raw headband notifications.  Implementations push
// one Notification per received value notification, in arrival order.
type Device interface {
	Start(ctx context.Context, notifications chan<- muse.Notification) error
	Stop() error
}

// Recorder wraps a Device and tees every notification to a log file that the
// replay device can play back.  One line per notification: the source handle
// and the hex payload.
type Recorder struct {
	inner  Device
	logger zerolog.Logger

	mu      sync.Mutex
	outFile *os.File
}

func NewRecorder(inner Device, location string, logger zerolog.Logger) (*Recorder, error) {
	f, err := os.Create(location)
	if err != nil {
		return nil, err
	}
	return &Recorder{inner: inner, outFile: f, logger: logger}, nil
}

func (r *Recorder) Start(ctx context.Context, notifications chan<- muse.Notification) error {
	tee := make(chan muse.Notification, 8)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-tee:
				r.record(n)

				select {
				case <-ctx.Done():
					return
				case notifications <- n:
				}
			}
		}
	}()

	return r.inner.Start(ctx, tee)
}

func (r *Recorder) record(n muse.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outFile == nil {
		return
	}
	if _, err := fmt.Fprintf(r.outFile, "%d %s\n", n.Source, hex.EncodeToString(n.Payload)); err != nil {
		r.logger.Warn().Err(err).Uint16("source", n.Source).Msg("failed to record notification")
	}
}

// Stop closes the record file before stopping the wrapped device.  The tee
// drops anything arriving after close rather than writing to a closed file.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if r.outFile != nil {
		if err := r.outFile.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("failed to close record file")
		}
		r.outFile = nil
	}
	r.mu.Unlock()
	return r.inner.Stop()
}
