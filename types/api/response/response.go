// Package response provides data types for control API responses.
package response

import (
	"time"

	"studycall/types/call"
)

// Error is data type for a failed command.
type Error struct {
	StatusCode int    `json:"status_code"`
	Kind       string `json:"kind,omitempty"`
	Message    string `json:"message"`
}

// State is data type for the observable call state. Remote streams are
// reported by the ids of the users they come from.
type State struct {
	ActiveCall      *call.Call `json:"active_call"`
	IncomingCall    *call.Call `json:"incoming_call"`
	RemoteUserIDs   []string   `json:"remote_user_ids"`
	IsMuted         bool       `json:"is_muted"`
	IsVideoOff      bool       `json:"is_video_off"`
	IsScreenSharing bool       `json:"is_screen_sharing"`
	CallDuration    int64      `json:"call_duration"`
	IsMinimized     bool       `json:"is_minimized"`
	Error           string     `json:"error,omitempty"`
}

// BubblePosition is data type for the call bubble position.
type BubblePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// CallRecord is data type for one finished call.
type CallRecord struct {
	ID          string           `json:"id"`
	CallType    call.Type        `json:"call_type"`
	ContextType call.ContextType `json:"context_type"`
	ContextID   string           `json:"context_id"`
	InitiatorID string           `json:"initiator_id"`
	Outcome     string           `json:"outcome"`
	StartedAt   time.Time        `json:"started_at"`
	EndedAt     time.Time        `json:"ended_at"`
	Duration    int64            `json:"duration"`
}

// History is data type for the call history.
type History struct {
	Records []CallRecord `json:"records"`
}
