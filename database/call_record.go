package database

import (
	"time"

	"studycall/types/call"
)

// Outcome tells how a call finished from the local user's point of view.
type Outcome string

// Below are the call outcomes.
const (
	// Completed calls were answered.
	Completed Outcome = "completed"

	// Cancelled calls were ended by the local caller before anyone answered.
	Cancelled Outcome = "cancelled"

	// Unanswered calls rang out on the caller side.
	Unanswered Outcome = "unanswered"

	// Declined calls were refused by the callee.
	Declined Outcome = "declined"

	// Missed calls rang out on the callee side.
	Missed Outcome = "missed"

	// Failed calls lost their media connection.
	Failed Outcome = "failed"
)

// CallRecord is one finished call in the local history.
type CallRecord struct {
	ID          string
	CallType    call.Type
	ContextType call.ContextType
	ContextID   string
	InitiatorID string
	Outcome     Outcome
	StartedAt   time.Time
	AnsweredAt  time.Time
	EndedAt     time.Time
}

// NewCallRecord creates the record of c finishing with outcome.
func NewCallRecord(c *call.Call, outcome Outcome) *CallRecord {
	return &CallRecord{
		ID:          c.ID,
		CallType:    c.CallType,
		ContextType: c.ContextType,
		ContextID:   c.ContextID,
		InitiatorID: c.InitiatorID,
		Outcome:     outcome,
		StartedAt:   c.StartedAt.Time,
		AnsweredAt:  c.AnsweredAt.Time,
		EndedAt:     c.EndedAt.Time,
	}
}

// Duration is the answered length of the call.
func (r *CallRecord) Duration() time.Duration {
	if r.AnsweredAt.IsZero() || r.EndedAt.Before(r.AnsweredAt) {
		return 0
	}
	return r.EndedAt.Sub(r.AnsweredAt)
}

// DeepCopy creates a deep copy of the given CallRecord.
func (r *CallRecord) DeepCopy() *CallRecord {
	cp := *r
	return &cp
}
