package control

import (
	"errors"
	"fmt"
)

// DefaultPort is the port of the control API.
const DefaultPort = 8090

// ErrInvalidConfig is returned when the control configuration is unusable.
var ErrInvalidConfig = errors.New("invalid control config")

// Config defines the control API server.
type Config struct {
	// Port is the listening port. Zero disables the control API.
	Port int

	// Token is the bearer token required on every request when set.
	Token string
}

// Validate validates the port.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, given %d: %w", c.Port, ErrInvalidConfig)
	}
	return nil
}
