// Package event defines the server-pushed events as a closed set of variants.
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"

	"studycall/types/call"
)

// Kind is the variant tag of an event. It equals the event name on the wire.
type Kind string

// Below are the call events.
const (
	KindRing         Kind = "call:ring"
	KindAccepted     Kind = "call:accepted"
	KindDeclined     Kind = "call:declined"
	KindEnded        Kind = "call:ended"
	KindOffer        Kind = "call:offer"
	KindAnswer       Kind = "call:answer"
	KindIceCandidate Kind = "call:ice-candidate"
	KindMediaState   Kind = "call:media-state"
)

// Below are the presence and chat events.
const (
	KindPresenceOnline  Kind = "presence:online"
	KindPresenceOffline Kind = "presence:offline"
	KindPresenceStatus  Kind = "presence:status"
	KindChatMessage     Kind = "chat:message"
	KindChatTyping      Kind = "chat:typing"
	KindChatRead        Kind = "chat:read"
)

// KindDisconnected is raised locally when the signaling transport is lost. It never
// appears on the wire.
const KindDisconnected Kind = "disconnected"

// ErrUnknownEvent is returned when decoding an event name outside the known set.
var ErrUnknownEvent = errors.New("unknown event")

// Event is a server-pushed event.
type Event interface {
	Kind() Kind
}

// CallEvent is an event that addresses one call.
type CallEvent interface {
	Event
	Target() string
}

// Ring announces an incoming call. The payload is the call itself.
type Ring struct {
	Call call.Call
}

// Accepted tells that a participant joined the call.
type Accepted struct {
	CallID   string `json:"callId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// Declined tells that a participant declined the call.
type Declined struct {
	CallID string `json:"callId"`
	UserID string `json:"userId"`
}

// Ended tells that the call was ended for everyone.
type Ended struct {
	CallID  string `json:"callId"`
	EndedBy string `json:"endedBy"`
	Reason  string `json:"reason"`
}

// Offer relays an SDP offer from another participant.
type Offer struct {
	CallID     string                    `json:"callId"`
	FromUserID string                    `json:"fromUserId"`
	Offer      webrtc.SessionDescription `json:"offer"`
}

// Answer relays an SDP answer from another participant.
type Answer struct {
	CallID     string                    `json:"callId"`
	FromUserID string                    `json:"fromUserId"`
	Answer     webrtc.SessionDescription `json:"answer"`
}

// IceCandidate relays a remote ICE candidate.
type IceCandidate struct {
	CallID     string                  `json:"callId"`
	FromUserID string                  `json:"fromUserId"`
	Candidate  webrtc.ICECandidateInit `json:"candidate"`
}

// MediaState relays the media flags of a participant.
type MediaState struct {
	CallID string `json:"callId"`
	UserID string `json:"userId"`
	call.MediaFlags
}

// PresenceOnline tells that a friend came online.
type PresenceOnline struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// PresenceOffline tells that a friend went offline.
type PresenceOffline struct {
	UserID   string         `json:"userId"`
	LastSeen call.Timestamp `json:"lastSeen"`
}

// PresenceStatus tells that a friend changed status.
type PresenceStatus struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// ChatMessage carries a new chat message.
type ChatMessage struct {
	ID        string         `json:"id"`
	ChatType  string         `json:"chatType"`
	ChatID    string         `json:"chatId"`
	SenderID  string         `json:"senderId"`
	Content   string         `json:"content"`
	CreatedAt call.Timestamp `json:"createdAt"`
}

// ChatTyping carries a typing indicator.
type ChatTyping struct {
	ChatID   string `json:"chatId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// ChatRead carries a read receipt.
type ChatRead struct {
	ChatID    string `json:"chatId"`
	UserID    string `json:"userId"`
	MessageID string `json:"messageId"`
}

// Disconnected tells that the signaling channel is gone. Err is nil when the
// client disconnected on purpose.
type Disconnected struct {
	Err error
}

func (Ring) Kind() Kind            { return KindRing }
func (Accepted) Kind() Kind        { return KindAccepted }
func (Declined) Kind() Kind        { return KindDeclined }
func (Ended) Kind() Kind           { return KindEnded }
func (Offer) Kind() Kind           { return KindOffer }
func (Answer) Kind() Kind          { return KindAnswer }
func (IceCandidate) Kind() Kind    { return KindIceCandidate }
func (MediaState) Kind() Kind      { return KindMediaState }
func (PresenceOnline) Kind() Kind  { return KindPresenceOnline }
func (PresenceOffline) Kind() Kind { return KindPresenceOffline }
func (PresenceStatus) Kind() Kind  { return KindPresenceStatus }
func (ChatMessage) Kind() Kind     { return KindChatMessage }
func (ChatTyping) Kind() Kind      { return KindChatTyping }
func (ChatRead) Kind() Kind        { return KindChatRead }
func (Disconnected) Kind() Kind    { return KindDisconnected }

func (e Ring) Target() string         { return e.Call.ID }
func (e Accepted) Target() string     { return e.CallID }
func (e Declined) Target() string     { return e.CallID }
func (e Ended) Target() string        { return e.CallID }
func (e Offer) Target() string        { return e.CallID }
func (e Answer) Target() string       { return e.CallID }
func (e IceCandidate) Target() string { return e.CallID }
func (e MediaState) Target() string   { return e.CallID }

// Decode turns a wire event into its variant.
func Decode(name string, payload json.RawMessage) (Event, error) {
	var ev Event
	var err error
	switch Kind(name) {
	case KindRing:
		var c call.Call
		err = json.Unmarshal(payload, &c)
		ev = Ring{Call: c}
	case KindAccepted:
		ev, err = decode[Accepted](payload)
	case KindDeclined:
		ev, err = decode[Declined](payload)
	case KindEnded:
		ev, err = decode[Ended](payload)
	case KindOffer:
		ev, err = decode[Offer](payload)
	case KindAnswer:
		ev, err = decode[Answer](payload)
	case KindIceCandidate:
		ev, err = decode[IceCandidate](payload)
	case KindMediaState:
		ev, err = decode[MediaState](payload)
	case KindPresenceOnline:
		ev, err = decode[PresenceOnline](payload)
	case KindPresenceOffline:
		ev, err = decode[PresenceOffline](payload)
	case KindPresenceStatus:
		ev, err = decode[PresenceStatus](payload)
	case KindChatMessage:
		ev, err = decode[ChatMessage](payload)
	case KindChatTyping:
		ev, err = decode[ChatTyping](payload)
	case KindChatRead:
		ev, err = decode[ChatRead](payload)
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownEvent)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return ev, nil
}

func decode[T Event](payload json.RawMessage) (Event, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, err
	}
	return v, nil
}
