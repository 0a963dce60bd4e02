package config

import (
	"time"

	"github.com/auricle-labs/auricle/pkg/muse"
)

type Config struct {
	Device        string        `yaml:"device"`
	Address       string        `yaml:"address"`
	DeviceName    string        `yaml:"device_name"`
	Subscriptions []muse.Stream `yaml:"subscriptions,flow"`

	RecordLocation   string `yaml:"record_location"`
	PlaybackLocation string `yaml:"playback_location"`
	PlaybackDelayMS  int    `yaml:"playback_delay_ms"`

	OutputDestinations []OutputDestination `yaml:"output_destinations"`

	Monitor struct {
		Port        int `yaml:"port"`
		TraceLength int `yaml:"trace_length"`
	} `yaml:"monitor"`

	InfluxDB struct {
		Host         string `yaml:"host"`
		Organization string `yaml:"organization"`
		Bucket       string `yaml:"bucket"`
	}
}

type OutputDestination struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// PlaybackDelay is the pacing between replayed notifications.
func (c *Config) PlaybackDelay() time.Duration {
	if c.PlaybackDelayMS <= 0 {
		return 4 * time.Millisecond
	}
	return time.Duration(c.PlaybackDelayMS) * time.Millisecond
}

// Streams defaults to every stream the headband offers when the config
// leaves subscriptions empty.
func (c *Config) Streams() []muse.Stream {
	if len(c.Subscriptions) > 0 {
		return c.Subscriptions
	}
	return []muse.Stream{
		muse.StreamEEG,
		muse.StreamAccelerometer,
		muse.StreamGyroscope,
		muse.StreamTelemetry,
		muse.StreamStatus,
	}
}
