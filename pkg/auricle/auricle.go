// Package auricle wires a headband device, the packet decode pipeline, and
// the configured sample outputs into one running unit.
package auricle

import (
	"context"
	"fmt"

	"github.com/influxdata/influxdb-client-go/api"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/auricle-labs/auricle/pkg/auricle/device"
	"github.com/auricle-labs/auricle/pkg/auricle/monitor"
	"github.com/auricle-labs/auricle/pkg/muse"
	"github.com/auricle-labs/auricle/pkg/util"
)

type Options struct {
	Subscriptions []muse.Stream
	Outputs       []SampleOutput
}

type Auricle struct {
	device   device.Device
	params   *muse.Params
	opts     Options
	writeAPI api.WriteAPI
	monitor  *monitor.Server
	logger   zerolog.Logger

	notifChan  chan muse.Notification
	sampleChan chan *muse.Sample

	cancel context.CancelFunc
	ctx    context.Context
}

type AuricleOption func(a *Auricle) error

func WithInfluxDB(influxClient api.WriteAPI) AuricleOption {
	return func(a *Auricle) error {
		a.writeAPI = influxClient
		return nil
	}
}

func WithMonitor(server *monitor.Server) AuricleOption {
	return func(a *Auricle) error {
		a.monitor = server
		return nil
	}
}

func WithLogger(logger zerolog.Logger) AuricleOption {
	return func(a *Auricle) error {
		a.logger = logger
		return nil
	}
}

func New(dev device.Device, params *muse.Params, options Options, opts ...AuricleOption) (*Auricle, error) {
	a := &Auricle{
		device:     dev,
		params:     params,
		opts:       options,
		writeAPI:   &util.MockWriteAPI{}, // overwritten with option
		notifChan:  make(chan muse.Notification, 32),
		sampleChan: make(chan *muse.Sample, 32),
		logger:     log.Logger,
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if params == nil {
		return nil, fmt.Errorf("must specify device parameters")
	}
	if len(a.opts.Subscriptions) == 0 {
		return nil, fmt.Errorf("must subscribe to at least one stream")
	}
	for _, s := range a.opts.Subscriptions {
		if _, ok := params.Streams[s]; !ok {
			return nil, fmt.Errorf("unknown stream %q", s)
		}
	}

	return a, nil
}

func (a *Auricle) Stop() error {
	a.cancel()
	if a.monitor != nil {
		a.monitor.Stop(context.TODO())
	}
	return a.device.Stop()
}

func (a *Auricle) Start(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	a.ctx, a.cancel = context.WithCancel(ctx)

	handler := muse.NewPacketHandler(a.ctx, a.params, a.opts.Subscriptions, a.sampleChan, a.writeAPI, a.logger)

	eg.Go(func() error {
		return a.device.Start(a.ctx, a.notifChan)
	})

	eg.Go(func() error {
		for {
			select {
			case <-a.ctx.Done():
				return a.ctx.Err()
			case n := <-a.notifChan:
				handler.Handle(n)
			}
		}
	})

	eg.Go(func() error {
		for {
			select {
			case <-a.ctx.Done():
				return a.ctx.Err()
			case sample := <-a.sampleChan:
				if a.monitor != nil {
					a.monitor.Observe(sample)
				}
				for _, out := range a.opts.Outputs {
					select {
					case <-a.ctx.Done():
						return a.ctx.Err()
					case out.Receive() <- sample:
					}
				}
			}
		}
	})

	for _, out := range a.opts.Outputs {
		out := out
		eg.Go(func() error {
			return out.Start(a.ctx)
		})
	}

	if a.monitor != nil {
		eg.Go(func() error {
			return a.monitor.Run(a.ctx)
		})
	}

	return eg.Wait()
}
