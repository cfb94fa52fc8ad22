package models

import "time"

// CallOutcome is how an archived call ended.
type CallOutcome string

const (
	CallOutcomeCompleted CallOutcome = "completed"
	CallOutcomeRejected  CallOutcome = "rejected"
	CallOutcomeMissed    CallOutcome = "missed"
	CallOutcomeFailed    CallOutcome = "failed"
)

// CallRecord is the archived trace of one voice call in PostgreSQL,
// written when the live CallSession reaches a terminal state.
type CallRecord struct {
	// CallID is the unique identifier for the call (UUID).
	CallID string `gorm:"primaryKey"`
	// CallerUserID is the user id of the initiating party.
	CallerUserID string
	// CalleeUserID is the user id of the called party.
	CalleeUserID string
	// CallType is the media kind; only "audio" is issued today.
	CallType string
	// Outcome records how the call ended.
	Outcome CallOutcome
	// StartedAt is when the call was initiated (ringing began).
	StartedAt time.Time
	// ConnectedAt is when both sides reached connected; nil if never.
	ConnectedAt *time.Time
	// EndedAt is when the call reached a terminal state.
	EndedAt time.Time
	// DurationSeconds counts connected time only, not ringing.
	DurationSeconds int
}
