package models

import "time"

// RoomRecord is the persisted trace of a chat/call room in PostgreSQL.
// The live membership state stays in the hub; this record exists so the
// admin tooling and recovery path can see which rooms were open.
type RoomRecord struct {
	// RoomID is the unique identifier for the room (UUID).
	RoomID string `gorm:"primaryKey"`
	// InitiatorID is the user id of the party the room was created for.
	InitiatorID string
	// InviteeID is the user id of the matched or called party.
	InviteeID string
	// Kind is "chat" for matched help requests, "call" for voice sessions.
	Kind string
	// IsActive indicates whether the room is currently open.
	IsActive bool
	// StartedAt is the timestamp when the room was created.
	StartedAt time.Time
	// EndedAt is the timestamp when the last member left.
	EndedAt time.Time
}
