package output

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"

	"github.com/auricle-labs/auricle/pkg/muse"
)

// TelemetryInfluxOutput writes telemetry samples and status records to
// InfluxDB.  High-rate streams (EEG, IMU) pass through untouched; they belong
// on the UDP outputs.
type TelemetryInfluxOutput struct {
	recvChan chan *muse.Sample
	writeAPI api.WriteAPI
}

func NewTelemetryInfluxOutput(writeAPI api.WriteAPI) *TelemetryInfluxOutput {
	return &TelemetryInfluxOutput{
		recvChan: make(chan *muse.Sample, receiveChannels),
		writeAPI: writeAPI,
	}
}

func (o *TelemetryInfluxOutput) Receive() chan<- *muse.Sample {
	return o.recvChan
}

func (o *TelemetryInfluxOutput) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample := <-o.recvChan:
			switch sample.Stream {
			case muse.StreamTelemetry:
				o.writeAPI.WritePoint(influxdb2.NewPoint("muse.telemetry",
					map[string]string{"stream": string(sample.Stream)},
					map[string]interface{}{
						"battery":      sample.Data.At(0, 0),
						"fuel_gauge":   sample.Data.At(1, 0),
						"adc_volt":     sample.Data.At(2, 0),
						"temperature":  sample.Data.At(3, 0),
						"sample_index": sample.Index,
					}, sample.Timestamp))

			case muse.StreamStatus:
				fields := make(map[string]interface{}, len(sample.Record))
				for k, v := range sample.Record {
					switch v.(type) {
					case string, bool, int, float64:
						fields[k] = v
					default:
						fields[k] = fmt.Sprint(v)
					}
				}
				if len(fields) == 0 {
					continue
				}
				o.writeAPI.WritePoint(influxdb2.NewPoint("muse.status",
					map[string]string{"stream": string(sample.Stream)},
					fields, time.Now()))
			}
		}
	}
}
