// Package request defines the commands the client sends over the signaling channel.
package request

import (
	"github.com/pion/webrtc/v4"

	"studycall/types/call"
)

// Constants for call commands. InitiateCall, AcceptCall, DeclineCall and EndCall are
// acknowledged by the server; the rest are relayed without an acknowledgement.
const (
	InitiateCall     = "call:initiate"
	AcceptCall       = "call:accept"
	DeclineCall      = "call:decline"
	EndCall          = "call:end"
	SendOffer        = "call:offer"
	SendAnswer       = "call:answer"
	SendIceCandidate = "call:ice-candidate"
	UpdateMediaState = "call:media-state"
)

// Constants for chat and presence commands.
const (
	JoinChat       = "chat:join"
	LeaveChat      = "chat:leave"
	SendMessage    = "chat:message"
	SendTyping     = "chat:typing"
	MarkRead       = "chat:read"
	PresenceStatus = "presence:status"
)

// Initiate is data type for placing a call.
type Initiate struct {
	CallType    call.Type        `json:"callType"`
	ContextType call.ContextType `json:"contextType"`
	ContextID   string           `json:"contextId"`
}

// CallRef is data type for commands addressing a call by id only.
type CallRef struct {
	CallID string `json:"callId"`
}

// Offer is data type for relaying an SDP offer to one participant.
type Offer struct {
	CallID   string                    `json:"callId"`
	ToUserID string                    `json:"toUserId"`
	Offer    webrtc.SessionDescription `json:"offer"`
}

// Answer is data type for relaying an SDP answer to one participant.
type Answer struct {
	CallID   string                    `json:"callId"`
	ToUserID string                    `json:"toUserId"`
	Answer   webrtc.SessionDescription `json:"answer"`
}

// IceCandidate is data type for relaying a locally gathered candidate.
type IceCandidate struct {
	CallID    string                  `json:"callId"`
	ToUserID  string                  `json:"toUserId"`
	Candidate webrtc.ICECandidateInit `json:"candidate"`
}

// MediaState is data type for announcing the local media flags.
type MediaState struct {
	CallID string `json:"callId"`
	call.MediaFlags
}

// Chat is data type for joining or leaving a chat room.
type Chat struct {
	ChatType string `json:"chatType"`
	ChatID   string `json:"chatId"`
}

// Message is data type for posting a chat message.
type Message struct {
	ChatType string `json:"chatType"`
	ChatID   string `json:"chatId"`
	Content  string `json:"content"`
}

// Typing is data type for the typing indicator.
type Typing struct {
	ChatType string `json:"chatType"`
	ChatID   string `json:"chatId"`
	IsTyping bool   `json:"isTyping"`
}

// Read is data type for read receipts.
type Read struct {
	ChatType  string `json:"chatType"`
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
}

// Presence is data type for changing the announced presence status.
type Presence struct {
	Status string `json:"status"`
}
