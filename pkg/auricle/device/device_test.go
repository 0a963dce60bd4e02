package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/auricle-labs/auricle/pkg/muse"
)

type nopDevice struct{}

func (nopDevice) Start(ctx context.Context, _ chan<- muse.Notification) error {
	<-ctx.Done()
	return ctx.Err()
}

func (nopDevice) Stop() error { return nil }

func TestRecorderStopClosesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.log")
	r, err := NewRecorder(nopDevice{}, path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	r.record(muse.Notification{Source: 32, Payload: []byte{0x01, 0xff}})

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	// Notifications landing after Stop are dropped, never written to the
	// closed file.
	r.record(muse.Notification{Source: 26, Payload: []byte{0x02}})

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading record file: %v", err)
	}
	if got, want := string(data), "32 01ff\n"; got != want {
		t.Errorf("recorded %q, want %q", got, want)
	}
}
