package muse

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Stream identifies one of the data streams the headband exposes over BLE.
type Stream string

const (
	StreamEEG           Stream = "eeg"
	StreamAccelerometer Stream = "accelerometer"
	StreamGyroscope     Stream = "gyroscope"
	StreamTelemetry     Stream = "telemetry"
	StreamStatus        Stream = "status"
)

// Notification is one raw BLE value notification: the GATT value handle it
// arrived on plus the packet bytes.
type Notification struct {
	Source    uint16
	Payload   []byte
	Timestamp time.Time
}

// StatusRecord is a parsed status message from the headband, e.g. hardware
// and firmware versions, battery state.
type StatusRecord map[string]interface{}

// Sample is one decoded emission: either a channels-by-chunk matrix of
// physically scaled values, or a status record with Index -1.
type Sample struct {
	Stream    Stream
	Index     int
	Data      *mat.Dense
	Record    StatusRecord
	Timestamp time.Time
}
