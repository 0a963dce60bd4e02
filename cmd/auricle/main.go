package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"

	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/auricle-labs/auricle/pkg/auricle"
	"github.com/auricle-labs/auricle/pkg/auricle/config"
	"github.com/auricle-labs/auricle/pkg/auricle/device"
	bleDevice "github.com/auricle-labs/auricle/pkg/auricle/device/ble"
	"github.com/auricle-labs/auricle/pkg/auricle/device/replay"
	"github.com/auricle-labs/auricle/pkg/auricle/monitor"
	"github.com/auricle-labs/auricle/pkg/auricle/output"
	"github.com/auricle-labs/auricle/pkg/muse"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	configFile := flag.String("config", "auricle.yaml", "YAML config file")

	flag.Parse()
	if configFile == nil {
		flag.Usage()
		os.Exit(1)
	}

	configContents, err := os.ReadFile(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("error reading config file")
	}
	var opts config.Config
	if err := yaml.Unmarshal(configContents, &opts); err != nil {
		log.Fatal().Err(err).Msg("error unmarshaling yaml file")
	}

	params := muse.Muse2016()
	subscriptions := opts.Streams()

	var dev device.Device

	if opts.PlaybackLocation != "" {
		opts.Device = "replay"
	}

	switch opts.Device {
	case "replay":
		log.Info().Str("device", "replay").Str("file", opts.PlaybackLocation).Msg("initializing device...")
		dev, err = replay.NewReplayDevice(opts.PlaybackLocation, opts.PlaybackDelay())
		if err != nil {
			log.Fatal().Str("device", "replay").Err(err).Msg("failed to open playback file")
		}
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	default:
		log.Info().Str("device", "ble").Msg("initializing device...")
		dev, err = bleDevice.NewBLEDevice(params, opts.Address, opts.DeviceName, subscriptions, log.Logger)
		if err != nil {
			log.Fatal().Str("device", "ble").Err(err).Msg("failed to initialize BLE adapter")
		}

		if opts.RecordLocation != "" {
			dev, err = device.NewRecorder(dev, opts.RecordLocation, log.Logger)
			if err != nil {
				log.Fatal().Str("device", "ble").Err(err).Msg("failed to create notification recording file")
			}
		}
	}

	influxWriteAPI := influxdb2.NewClient(opts.InfluxDB.Host, "").WriteAPI(opts.InfluxDB.Organization, opts.InfluxDB.Bucket)

	monitorServer := monitor.NewServer(params, opts.Monitor.Port, opts.Monitor.TraceLength)

	outputs := []auricle.SampleOutput{
		output.NewTelemetryInfluxOutput(influxWriteAPI),
	}
	if len(opts.OutputDestinations) > 0 {
		outputs = append(outputs, output.NewSampleUDPOutput(opts.OutputDestinations, influxWriteAPI))
	}

	receiver, err := auricle.New(dev, params,
		auricle.Options{
			Subscriptions: subscriptions,
			Outputs:       outputs,
		},
		auricle.WithInfluxDB(influxWriteAPI),
		auricle.WithMonitor(monitorServer),
		auricle.WithLogger(log.Logger))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create receiver")
	}

	eg, ctx := errgroup.WithContext(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	eg.Go(func() error {

		select {
		case <-sigChan:
		case <-ctx.Done():
		}

		return receiver.Stop()
	})

	eg.Go(func() error {
		return receiver.Start(ctx)
	})

	if err := eg.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("exited program")
	}
}
