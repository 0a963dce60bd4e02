package output

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog/log"

	"github.com/auricle-labs/auricle/pkg/auricle/config"
	"github.com/auricle-labs/auricle/pkg/muse"
)

const receiveChannels = 8

// SampleUDPOutput streams decoded samples as length-prefixed JSON frames to
// one or more UDP destinations.
type SampleUDPOutput struct {
	dests    []config.OutputDestination
	recvChan chan *muse.Sample
	metrics  api.WriteAPI
}

func NewSampleUDPOutput(dests []config.OutputDestination, metrics api.WriteAPI) *SampleUDPOutput {
	return &SampleUDPOutput{
		dests:    dests,
		recvChan: make(chan *muse.Sample, receiveChannels),
		metrics:  metrics,
	}
}

func (s *SampleUDPOutput) Receive() chan<- *muse.Sample {
	return s.recvChan
}

// sampleFrame is the wire shape of one sample.
type sampleFrame struct {
	Stream    muse.Stream       `json:"stream"`
	Index     int               `json:"sample_index"`
	Timestamp time.Time         `json:"timestamp"`
	Data      [][]float64       `json:"data,omitempty"`
	Record    muse.StatusRecord `json:"record,omitempty"`
}

// encodeFrame renders a sample as a little-endian uint16 length prefix
// followed by the JSON body.
func encodeFrame(sample *muse.Sample) ([]byte, error) {
	frame := sampleFrame{
		Stream:    sample.Stream,
		Index:     sample.Index,
		Timestamp: sample.Timestamp,
		Record:    sample.Record,
	}
	if sample.Data != nil {
		rows, cols := sample.Data.Dims()
		frame.Data = make([][]float64, rows)
		for i := 0; i < rows; i++ {
			frame.Data[i] = make([]float64, cols)
			copy(frame.Data[i], sample.Data.RawRowView(i))
		}
	}

	encoded, err := json.Marshal(frame)
	if err != nil {
		return nil, err
	}

	var msgBuf bytes.Buffer
	if err := binary.Write(&msgBuf, binary.LittleEndian, uint16(len(encoded))); err != nil {
		return nil, err
	}
	if _, err := msgBuf.Write(encoded); err != nil {
		return nil, err
	}
	return msgBuf.Bytes(), nil
}

func (s *SampleUDPOutput) Start(ctx context.Context) error {
	destAddrs := make([]*net.UDPAddr, 0, len(s.dests))
	for _, dest := range s.dests {
		ips, err := net.LookupIP(dest.Host)
		if err != nil {
			return err
		}
		if len(ips) == 0 {
			return fmt.Errorf("no IPs returned for %s", dest.Host)
		}

		destAddr := &net.UDPAddr{IP: ips[0], Port: dest.Port}
		destAddrs = append(destAddrs, destAddr)
		log.Info().IPAddr("dest_ip", destAddr.IP).Int("port", dest.Port).Msg("sample output starting")
	}

	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample := <-s.recvChan:
			msg, err := encodeFrame(sample)
			if err != nil {
				log.Warn().Err(err).Msg("error encoding sample frame")
				continue
			}

			success := true
			var bytesWritten int
			for _, destAddr := range destAddrs {
				bytesWritten, err = conn.WriteToUDP(msg, destAddr)
				if err != nil {
					log.Error().Err(err).Msg("error writing")
					success = false
				}
			}

			go s.metrics.WritePoint(influxdb2.NewPoint("sample.sent_frame",
				map[string]string{
					"stream": string(sample.Stream),
				},
				map[string]interface{}{
					"bytes_written": bytesWritten,
					"frame_length":  len(msg),
					"sent": func() int {
						if success {
							return 1
						}
						return 0
					}(),
					"dropped": func() int {
						if success {
							return 0
						}
						return 1
					}(),
				}, time.Now()))
		}
	}
}
