package models

import "time"

// RequestStatus is the lifecycle state of a HelpRequest.
type RequestStatus string

const (
	RequestPending     RequestStatus = "pending"
	RequestMatched     RequestStatus = "matched"
	RequestUnavailable RequestStatus = "unavailable"
	RequestExpired     RequestStatus = "expired"
	RequestCancelled   RequestStatus = "cancelled"
)

// HelpRequest is a pending ask for live human contact. It is created when a
// user requests support, fanned out to eligible staff connections, and
// resolved by the first acceptance, a timeout, a cancellation, or the
// requester disconnecting.
type HelpRequest struct {
	RequestID     string
	RequesterConn string
	RequesterID   string
	RequesterName string
	Reason        string
	PreferredType Role
	Status        RequestStatus
	CreatedAt     time.Time

	// Notified holds the connection ids of every staff member that received
	// the fan-out, so a later resolution can invalidate their pending UIs.
	Notified []string
}

// ChatMessage is a single chat utterance relayed through a room. Durable
// persistence is the REST collaborator's job; the hub only stamps identity
// and forwards in real time.
type ChatMessage struct {
	MessageID  string    `json:"message_id"`
	RoomID     string    `json:"room_id"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	SenderType string    `json:"sender_type"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
