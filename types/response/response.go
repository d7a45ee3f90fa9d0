// Package response provides data types for frames the server sends to the client.
package response

import (
	"encoding/json"

	"studycall/types/call"
)

// Frame is the envelope of every inbound message. Acknowledgements carry the
// RequestID of the command they answer; pushed events carry Event instead.
type Frame struct {
	RequestID int             `json:"request_id,omitempty"`
	Event     string          `json:"event,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     *Error          `json:"error,omitempty"`
}

// IsEvent reports whether the frame is a server-pushed event.
func (f Frame) IsEvent() bool {
	return f.Event != ""
}

// Error is the failure body of an acknowledgement.
type Error struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Initiate is the acknowledgement of call:initiate.
type Initiate struct {
	Success bool      `json:"success"`
	Call    call.Call `json:"call"`
}

// Accept is the acknowledgement of call:accept.
type Accept struct {
	Success     bool             `json:"success"`
	Participant call.Participant `json:"participant"`
}

// Success is the acknowledgement of commands that return nothing else.
type Success struct {
	Success bool `json:"success"`
}
