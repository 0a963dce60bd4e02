// Package replay plays back a recorded notification log, pacing delivery so
// the rest of the pipeline behaves as it would against a live headband.
package replay

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/auricle-labs/auricle/pkg/muse"
)

type ReplayDevice struct {
	readFile    *os.File
	timeBetween time.Duration
}

func NewReplayDevice(file string, timeBetween time.Duration) (*ReplayDevice, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	return &ReplayDevice{
		readFile:    f,
		timeBetween: timeBetween,
	}, nil
}

func (r *ReplayDevice) Start(ctx context.Context, notifications chan<- muse.Notification) error {
	tick := time.NewTicker(r.timeBetween)
	defer tick.Stop()

	scanner := bufio.NewScanner(r.readFile)
	for scanner.Scan() {
		n, err := ParseLine(scanner.Text())
		if err != nil {
			return err
		}
		if n == nil {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}

		n.Timestamp = time.Now().UTC()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case notifications <- *n:
		}
	}
	return scanner.Err()
}

func (r *ReplayDevice) Stop() error {
	return r.readFile.Close()
}

// ParseLine parses one recorded log line ("<source> <hex payload>").  Blank
// lines yield nil.
func ParseLine(line string) (*muse.Notification, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, nil
	}
	parts := strings.Fields(line)
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed log line %q", line)
	}
	source, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("bad source in log line %q: %w", line, err)
	}
	payload, err := hex.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("bad payload in log line %q: %w", line, err)
	}
	return &muse.Notification{Source: uint16(source), Payload: payload}, nil
}
