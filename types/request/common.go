// Package request defines the commands the client sends over the signaling channel.
package request

import "encoding/json"

// Common represents a generic request structure used in WebSocket communication.
// RequestID is zero for commands that expect no acknowledgement.
type Common struct {
	RequestID int             `json:"request_id,omitempty"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}
