// Package request contains the request bodies of the control API.
package request

import "studycall/types/call"

// InitiateCall is data type for placing a call.
type InitiateCall struct {
	CallType    call.Type        `json:"call_type"`
	ContextType call.ContextType `json:"context_type"`
	ContextID   string           `json:"context_id"`
}

// Minimized is data type for minimizing or restoring the call view.
type Minimized struct {
	IsMinimized bool `json:"is_minimized"`
}

// BubblePosition is data type for moving the call bubble.
type BubblePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}
