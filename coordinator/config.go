package coordinator

import (
	"errors"
	"fmt"
	"time"
)

// Default values for the coordinator. If the values are not set, these values are used.
const (
	DefaultRingTimeout  = 30 * time.Second
	DefaultEndWhenAlone = true
)

// ErrInvalidConfig is returned when the configuration is not valid.
var ErrInvalidConfig = errors.New("invalid coordinator config")

// Config contains the configuration for the coordinator.
type Config struct {
	// UserID is the id of the local user. It breaks ties between peers.
	UserID string

	// Token authenticates the signaling channel.
	Token string

	// RingTimeout bounds how long a call may ring on either side.
	RingTimeout time.Duration

	// EndWhenAlone ends a group call once no remote participant is left.
	EndWhenAlone bool
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		RingTimeout:  DefaultRingTimeout,
		EndWhenAlone: DefaultEndWhenAlone,
	}
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("user id is required: %w", ErrInvalidConfig)
	}
	if c.RingTimeout <= 0 {
		return fmt.Errorf("ring timeout %s must be positive: %w", c.RingTimeout, ErrInvalidConfig)
	}
	return nil
}
