// Package peer manages one WebRTC session per remote participant of a call.
package peer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
)

const (
	// DefaultSTUNServer is used when no ICE server is configured.
	DefaultSTUNServer = "stun:stun.l.google.com:19302"

	// DefaultDisconnectedTimeout is how long ICE may stay silent before the
	// connection is reported disconnected.
	DefaultDisconnectedTimeout = 30 * time.Second

	// DefaultFailedTimeout is how long a disconnected connection may take to
	// recover before it is reported failed.
	DefaultFailedTimeout = 60 * time.Second

	// DefaultKeepAliveInterval is the ICE keepalive period.
	DefaultKeepAliveInterval = 2 * time.Second
)

// ErrInvalidConfig is returned when the peer configuration is unusable.
var ErrInvalidConfig = errors.New("invalid peer config")

// Config defines the ICE settings of every session.
type Config struct {
	ICEServers []string

	// MinPort and MaxPort bound the local UDP ports. Zero leaves the range to
	// the operating system.
	MinPort uint16
	MaxPort uint16

	DisconnectedTimeout time.Duration
	FailedTimeout       time.Duration
	KeepAliveInterval   time.Duration
}

// DefaultConfig returns the ICE settings used by the CLI.
func DefaultConfig() Config {
	return Config{
		ICEServers:          []string{DefaultSTUNServer},
		DisconnectedTimeout: DefaultDisconnectedTimeout,
		FailedTimeout:       DefaultFailedTimeout,
		KeepAliveInterval:   DefaultKeepAliveInterval,
	}
}

// Validate checks the ICE server urls, the port range and the timeouts.
func (c Config) Validate() error {
	for _, s := range c.ICEServers {
		if !strings.HasPrefix(s, "stun:") && !strings.HasPrefix(s, "turn:") && !strings.HasPrefix(s, "turns:") {
			return fmt.Errorf("ice server %q: %w", s, ErrInvalidConfig)
		}
	}
	if c.MinPort > c.MaxPort {
		return fmt.Errorf("invalid port range: MinPort (%d) > MaxPort (%d): %w", c.MinPort, c.MaxPort, ErrInvalidConfig)
	}
	if c.DisconnectedTimeout < 0 || c.FailedTimeout < 0 || c.KeepAliveInterval < 0 {
		return fmt.Errorf("negative ice timeout: %w", ErrInvalidConfig)
	}
	return nil
}

// WebRTCConfiguration returns the pion configuration for new connections.
func (c Config) WebRTCConfiguration() webrtc.Configuration {
	if len(c.ICEServers) == 0 {
		return webrtc.Configuration{}
	}
	return webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{
				URLs: c.ICEServers,
			},
		},
	}
}

// SetPortRange sets the ephemeral UDP port range for WebRTC.
func (c Config) SetPortRange(s *webrtc.SettingEngine) error {
	if c.MinPort == 0 && c.MaxPort == 0 {
		return nil
	}
	if err := s.SetEphemeralUDPPortRange(c.MinPort, c.MaxPort); err != nil {
		return fmt.Errorf("failed to set ephemeral UDP port range: %w", err)
	}
	return nil
}

// SetTimeouts applies the ICE timeouts to the setting engine.
func (c Config) SetTimeouts(s *webrtc.SettingEngine) {
	if c.DisconnectedTimeout == 0 && c.FailedTimeout == 0 && c.KeepAliveInterval == 0 {
		return
	}
	s.SetICETimeouts(c.DisconnectedTimeout, c.FailedTimeout, c.KeepAliveInterval)
}
