package metric

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines the configuration for the metrics server.
type Config struct {
	Port     int           // Port for metrics server, 0 disables it
	Path     string        // Path for metrics endpoint
	Interval time.Duration // Interval between system metric samples
}

// Default values for metrics configuration.
const (
	DefaultMetricsPort     = 9090
	DefaultMetricsPath     = "/metrics"
	DefaultMetricsInterval = 5 * time.Second
)

// ErrInvalidConfig is returned when the metrics configuration is unusable.
var ErrInvalidConfig = errors.New("invalid metrics config")

// Validate checks the port and path.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, given %d: %w", c.Port, ErrInvalidConfig)
	}
	if c.Port != 0 && !strings.HasPrefix(c.Path, "/") {
		return fmt.Errorf("path must start with /, given %q: %w", c.Path, ErrInvalidConfig)
	}
	return nil
}
