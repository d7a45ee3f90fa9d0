package signal

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultURL is the signaling endpoint of a local backend.
	DefaultURL = "ws://localhost:5000/ws"

	// DefaultRequestTimeout bounds the wait for an acknowledgement.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultHandshakeTimeout bounds the WebSocket opening handshake.
	DefaultHandshakeTimeout = 5 * time.Second
)

// Below is the Error message for the configuration.
var (
	ErrInvalidURL     = errors.New("invalid signaling url")
	ErrInvalidTimeout = errors.New("invalid timeout")
)

// Config is the configuration for creating a Client instance.
type Config struct {
	URL              string
	RequestTimeout   time.Duration
	HandshakeTimeout time.Duration
}

// DefaultConfig returns the configuration used when no flag overrides it.
func DefaultConfig() Config {
	return Config{
		URL:              DefaultURL,
		RequestTimeout:   DefaultRequestTimeout,
		HandshakeTimeout: DefaultHandshakeTimeout,
	}
}

// Validate validates the endpoint and the timeouts.
func (c Config) Validate() error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%s: %w", err, ErrInvalidURL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("scheme must be ws or wss, given %q: %w", u.Scheme, ErrInvalidURL)
	}
	if u.Host == "" {
		return fmt.Errorf("host is empty: %w", ErrInvalidURL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, given %s: %w", c.RequestTimeout, ErrInvalidTimeout)
	}
	if c.HandshakeTimeout < 0 {
		return fmt.Errorf("handshake timeout must not be negative, given %s: %w", c.HandshakeTimeout, ErrInvalidTimeout)
	}
	return nil
}
