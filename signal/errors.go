package signal

import (
	"errors"
	"fmt"
)

// Below are the failures a caller of the client can observe.
var (
	// ErrAuth is returned when the server rejects the session token.
	ErrAuth = errors.New("authentication rejected")

	// ErrTransport is returned on network failure or when the channel is not connected.
	ErrTransport = errors.New("signaling transport failure")

	// ErrNotConnected is returned when a command is sent without a channel.
	ErrNotConnected = fmt.Errorf("not connected: %w", ErrTransport)

	// ErrTimeout is returned when no acknowledgement arrives in time.
	ErrTimeout = errors.New("signaling request timed out")

	// ErrCancelled is returned for requests abandoned by disconnect or by the caller.
	ErrCancelled = errors.New("signaling request cancelled")
)

// ServerError is an acknowledgement that reports a failure.
type ServerError struct {
	Kind    string
	Message string
}

func (e *ServerError) Error() string {
	if e.Kind == "" {
		return "server error: " + e.Message
	}
	return fmt.Sprintf("server error (%s): %s", e.Kind, e.Message)
}
