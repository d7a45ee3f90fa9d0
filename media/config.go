// Package media owns the local capture tracks of a call: microphone, camera and
// screen, and decides which of them are sent.
package media

import (
	"errors"
	"fmt"
)

const (
	// DefaultMaxWidth caps the camera resolution.
	DefaultMaxWidth = 640

	// DefaultMaxHeight caps the camera resolution.
	DefaultMaxHeight = 480

	// DefaultVideoBitRate is the VP8 target bit rate in bits per second.
	DefaultVideoBitRate = 1_500_000
)

// ErrInvalidConfig is returned when the capture configuration is unusable.
var ErrInvalidConfig = errors.New("invalid media config")

// Config defines the capture settings of device sources.
type Config struct {
	MaxWidth     int
	MaxHeight    int
	VideoBitRate int
}

// DefaultConfig returns the capture settings used by the CLI.
func DefaultConfig() Config {
	return Config{
		MaxWidth:     DefaultMaxWidth,
		MaxHeight:    DefaultMaxHeight,
		VideoBitRate: DefaultVideoBitRate,
	}
}

// Validate checks the resolution cap and the bit rate.
func (c Config) Validate() error {
	if c.MaxWidth <= 0 || c.MaxHeight <= 0 {
		return fmt.Errorf("resolution %dx%d: %w", c.MaxWidth, c.MaxHeight, ErrInvalidConfig)
	}
	if c.VideoBitRate <= 0 {
		return fmt.Errorf("bit rate %d: %w", c.VideoBitRate, ErrInvalidConfig)
	}
	return nil
}
