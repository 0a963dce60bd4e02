// Package ble connects to a Muse headband over Bluetooth LE and forwards its
// value notifications to the decode pipeline.
package ble

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/bluetooth"

	"github.com/auricle-labs/auricle/pkg/muse"
)

type BLEDevice struct {
	adapter *bluetooth.Adapter
	params  *muse.Params
	address string
	name    string
	subs    map[muse.Stream]bool
	logger  zerolog.Logger

	dev     *bluetooth.Device
	control *bluetooth.DeviceCharacteristic
}

// NewBLEDevice prepares a connection to the headband at the given address, or
// to the first advertiser matching name when the address is empty.  Only
// characteristics belonging to subscribed streams get notifications enabled;
// the rest never reach the radio.
func NewBLEDevice(params *muse.Params, address, name string, subscriptions []muse.Stream, logger zerolog.Logger) (*BLEDevice, error) {
	adapter := bluetooth.DefaultAdapter
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enabling BLE adapter: %w", err)
	}

	subs := make(map[muse.Stream]bool, len(subscriptions))
	for _, s := range subscriptions {
		subs[s] = true
	}

	return &BLEDevice{
		adapter: adapter,
		params:  params,
		address: address,
		name:    name,
		subs:    subs,
		logger:  logger,
	}, nil
}

func (b *BLEDevice) Start(ctx context.Context, notifications chan<- muse.Notification) error {
	addr, err := b.scan(ctx)
	if err != nil {
		return err
	}

	dev, err := b.adapter.Connect(addr, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr.String(), err)
	}
	b.dev = dev
	b.logger.Info().Str("address", addr.String()).Msg("connected to headband")

	serviceUUID, err := bluetooth.ParseUUID(b.params.Service)
	if err != nil {
		return err
	}
	services, err := dev.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		return fmt.Errorf("discovering headband service: %w", err)
	}
	if len(services) == 0 {
		return fmt.Errorf("headband service %s not found", b.params.Service)
	}

	chars, err := services[0].DiscoverCharacteristics(nil)
	if err != nil {
		return fmt.Errorf("discovering characteristics: %w", err)
	}

	byUUID := make(map[string]bluetooth.DeviceCharacteristic, len(chars))
	for _, c := range chars {
		byUUID[c.UUID().String()] = c
	}

	control, ok := byUUID[b.params.ControlUUID]
	if !ok {
		return fmt.Errorf("control characteristic %s not found", b.params.ControlUUID)
	}
	b.control = &control

	for _, c := range b.params.Characteristics {
		src, _ := b.params.Source(c.Source)
		if !b.subs[src.Stream] {
			continue
		}
		char, ok := byUUID[c.UUID]
		if !ok {
			return fmt.Errorf("characteristic %s (source %d) not found", c.UUID, c.Source)
		}

		source := c.Source
		err := char.EnableNotifications(func(buf []byte) {
			payload := make([]byte, len(buf))
			copy(payload, buf)
			select {
			case <-ctx.Done():
			case notifications <- muse.Notification{
				Source:    source,
				Payload:   payload,
				Timestamp: time.Now().UTC(),
			}:
			}
		})
		if err != nil {
			return fmt.Errorf("enabling notifications on source %d: %w", c.Source, err)
		}
		b.logger.Debug().Uint16("source", c.Source).Str("stream", string(src.Stream)).Msg("notifications enabled")
	}

	if _, err := b.control.WriteWithoutResponse(b.params.StreamOn); err != nil {
		return fmt.Errorf("starting stream: %w", err)
	}
	b.logger.Info().Msg("streaming started")

	<-ctx.Done()
	return ctx.Err()
}

func (b *BLEDevice) scan(ctx context.Context) (bluetooth.Address, error) {
	var found bluetooth.Address
	matched := false

	go func() {
		<-ctx.Done()
		b.adapter.StopScan()
	}()

	err := b.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		switch {
		case b.address != "" && result.Address.String() == b.address:
		case b.address == "" && b.name != "" && result.LocalName() == b.name:
		default:
			return
		}
		found = result.Address
		matched = true
		adapter.StopScan()
	})
	if err != nil {
		return found, fmt.Errorf("scanning: %w", err)
	}
	if !matched {
		return found, fmt.Errorf("scan ended without finding headband (address %q, name %q)", b.address, b.name)
	}
	b.logger.Info().Str("address", found.String()).Msg("found headband")
	return found, nil
}

func (b *BLEDevice) Stop() error {
	if b.control != nil {
		if _, err := b.control.WriteWithoutResponse(b.params.StreamOff); err != nil {
			b.logger.Warn().Err(err).Msg("failed to send stream-off")
		}
	}
	if b.dev == nil {
		return nil
	}
	return b.dev.Disconnect()
}
