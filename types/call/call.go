// Package call defines the call and participant records shared by the signaling
// client, the coordinator and the history store.
package call

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type is the media type of a call.
type Type string

// Below are the call types.
const (
	Voice Type = "voice"
	Video Type = "video"
)

// ContextType tells whether a call belongs to a direct chat or a study group.
type ContextType string

// Below are the call contexts.
const (
	Direct ContextType = "direct"
	Group  ContextType = "group"
)

// Status is the lifecycle status of a call.
type Status string

// Below are the call statuses. Missed and Declined are only reported by the server
// for calls that never became active.
const (
	Ringing  Status = "ringing"
	Active   Status = "active"
	Ended    Status = "ended"
	Missed   Status = "missed"
	Declined Status = "declined"
)

// ParticipantStatus is the status of one participant within a call.
type ParticipantStatus string

// Below are the participant statuses.
const (
	ParticipantInvited  ParticipantStatus = "invited"
	ParticipantRinging  ParticipantStatus = "ringing"
	ParticipantJoined   ParticipantStatus = "joined"
	ParticipantDeclined ParticipantStatus = "declined"
	ParticipantLeft     ParticipantStatus = "left"
)

// MediaFlags is the media state a participant announces to the others.
type MediaFlags struct {
	IsMuted         bool `json:"isMuted"`
	IsVideoOff      bool `json:"isVideoOff"`
	IsScreenSharing bool `json:"isScreenSharing"`
}

// Participant is a user attached to a call.
type Participant struct {
	UserID   string            `json:"userId"`
	UserName string            `json:"userName"`
	Status   ParticipantStatus `json:"status"`
	MediaFlags
}

// Call is an in-progress or ringing conversation.
type Call struct {
	ID            string        `json:"id"`
	CallType      Type          `json:"callType"`
	ContextType   ContextType   `json:"contextType"`
	ContextID     string        `json:"contextId"`
	InitiatorID   string        `json:"initiatorId"`
	InitiatorName string        `json:"initiatorName"`
	Status        Status        `json:"status"`
	Participants  []Participant `json:"participants"`
	StartedAt     Timestamp     `json:"startedAt"`
	AnsweredAt    Timestamp     `json:"answeredAt"`
	EndedAt       Timestamp     `json:"endedAt"`

	// IsInitiator is true on the side that placed the call. It is never sent on the wire.
	IsInitiator bool `json:"-"`
}

// DeepCopy creates a deep copy of the given Call.
func (c *Call) DeepCopy() *Call {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Participants = make([]Participant, len(c.Participants))
	copy(cp.Participants, c.Participants)
	return &cp
}

// Participant returns the participant with the given user id.
func (c *Call) Participant(userID string) (*Participant, bool) {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i], true
		}
	}
	return nil, false
}

// UpsertParticipant updates the status of a participant, adding it when unknown.
func (c *Call) UpsertParticipant(userID, userName string, status ParticipantStatus) *Participant {
	if p, ok := c.Participant(userID); ok {
		p.Status = status
		if userName != "" {
			p.UserName = userName
		}
		return p
	}
	c.Participants = append(c.Participants, Participant{
		UserID:   userID,
		UserName: userName,
		Status:   status,
	})
	return &c.Participants[len(c.Participants)-1]
}

// Remotes returns the ids of every participant except the given local user, in order.
func (c *Call) Remotes(localUserID string) []string {
	var ids []string
	seen := map[string]bool{localUserID: true}
	if c.InitiatorID != "" && !seen[c.InitiatorID] {
		ids = append(ids, c.InitiatorID)
		seen[c.InitiatorID] = true
	}
	for _, p := range c.Participants {
		if seen[p.UserID] {
			continue
		}
		seen[p.UserID] = true
		ids = append(ids, p.UserID)
	}
	return ids
}

// Remaining reports whether any remote participant is still ringing or joined.
func (c *Call) Remaining(localUserID string) bool {
	for _, p := range c.Participants {
		if p.UserID == localUserID {
			continue
		}
		switch p.Status {
		case ParticipantInvited, ParticipantRinging, ParticipantJoined:
			return true
		}
	}
	return false
}

// Duration is the time between the answer and the end of the call, or zero when
// the call was never answered.
func (c *Call) Duration() time.Duration {
	if c.AnsweredAt.IsZero() || c.EndedAt.IsZero() {
		return 0
	}
	return c.EndedAt.Sub(c.AnsweredAt.Time)
}

// naiveISO is the layout the backend uses for timestamps without a zone.
const naiveISO = "2006-01-02T15:04:05.999999"

// Timestamp is a time that decodes both RFC 3339 and zone-less ISO-8601 values.
// Zone-less values are read as UTC.
type Timestamp struct {
	time.Time
}

// At wraps t into a Timestamp.
func At(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// MarshalJSON encodes the timestamp as RFC 3339, or null when zero.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON decodes RFC 3339, naive ISO-8601 or null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp %s: %w", raw, err)
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	parsed, err := time.ParseInLocation(naiveISO, s, time.UTC)
	if err != nil {
		return fmt.Errorf("timestamp %s: %w", s, err)
	}
	t.Time = parsed
	return nil
}
