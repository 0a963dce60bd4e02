package util

import "github.com/influxdata/influxdb-client-go/api/write"

// MockWriteAPI is the metrics sink used when no InfluxDB client is
// configured.  Every write is a no-op; it exists so the decode path never
// has to nil-check its metrics handle.
type MockWriteAPI struct{}

func (m *MockWriteAPI) WriteRecord(line string) {}

func (m *MockWriteAPI) WritePoint(point *write.Point) {}

// Flush forces all pending writes from the buffer to be sent
func (m *MockWriteAPI) Flush() {}

// Flushes all pending writes and stop async processes. After this the Write client cannot be used
func (m *MockWriteAPI) Close() {}

// Errors returns a channel for reading errors which occurs during async writes.
// Must be called before performing any writes for errors to be collected.
// The chan is unbuffered and must be drained or the writer will block.
func (m *MockWriteAPI) Errors() <-chan error { return nil }
