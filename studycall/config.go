// Package studycall runs the call core as a headless client: signaling, peer
// sessions, local media, call cues, remote audio and the control API.
package studycall

import (
	"errors"
	"fmt"

	"studycall/control"
	"studycall/coordinator"
	"studycall/database"
	"studycall/media"
	"studycall/metric"
	"studycall/peer"
	"studycall/signal"
)

// ErrInvalidConfig is returned when the audio outputs are misconfigured.
var ErrInvalidConfig = errors.New("invalid config")

// Audio defines where call cues and remote audio are played.
type Audio struct {
	// CueOut is the raw PCM file call cues are written to, "-" for stdout.
	// Empty discards them.
	CueOut string

	// PlaybackDir receives one Ogg file per remote audio track. Empty
	// discards remote audio.
	PlaybackDir string

	// Autoplay starts remote audio without waiting for a user gesture.
	Autoplay bool
}

// Config contains the configuration of the client.
type Config struct {
	Signal      signal.Config
	Peer        peer.Config
	Media       media.Config
	Coordinator coordinator.Config
	Database    database.Config
	Metrics     metric.Config
	Control     control.Config
	Audio       Audio
}

// DefaultConfig returns the configuration used when no flag overrides it.
func DefaultConfig() Config {
	return Config{
		Signal:      signal.DefaultConfig(),
		Peer:        peer.DefaultConfig(),
		Media:       media.DefaultConfig(),
		Coordinator: coordinator.DefaultConfig(),
		Metrics: metric.Config{
			Port:     metric.DefaultMetricsPort,
			Path:     metric.DefaultMetricsPath,
			Interval: metric.DefaultMetricsInterval,
		},
		Control: control.Config{
			Port: control.DefaultPort,
		},
	}
}

// Validate validates every part of the configuration.
func (c Config) Validate() error {
	if err := c.Signal.Validate(); err != nil {
		return fmt.Errorf("signal: %w", err)
	}
	if err := c.Peer.Validate(); err != nil {
		return fmt.Errorf("peer: %w", err)
	}
	if err := c.Media.Validate(); err != nil {
		return fmt.Errorf("media: %w", err)
	}
	if err := c.Coordinator.Validate(); err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	if err := c.Control.Validate(); err != nil {
		return fmt.Errorf("control: %w", err)
	}
	if c.Control.Port != 0 && c.Control.Port == c.Metrics.Port {
		return fmt.Errorf("control and metrics share port %d: %w", c.Control.Port, ErrInvalidConfig)
	}
	return nil
}
