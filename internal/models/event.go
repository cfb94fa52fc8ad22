package models

import (
	"encoding/json"
	"log"
	"time"
)

// Event is the envelope for every frame on the websocket, in both
// directions: a named event plus an opaque JSON payload.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names. These are the wire contract and must not change.
const (
	EvRegister         = "register"
	EvUpdateStatus     = "update_status"
	EvRequestHumanChat = "request_human_chat"
	EvCancelHumanChat  = "cancel_human_chat"
	EvAcceptHumanChat  = "accept_human_chat"
	EvJoinChatRoom     = "join_chat_room"
	EvLeaveChatRoom    = "leave_chat_room"
	EvChatMessage      = "chat_message"
	EvTypingStart      = "typing_start"
	EvTypingStop       = "typing_stop"
	EvCallInitiate     = "call_initiate"
	EvCallAccept       = "call_accept"
	EvCallReject       = "call_reject"
	EvCallEnd          = "call_end"
	EvCallHold         = "call_hold"
	EvCallResume       = "call_resume"
)

// Outbound event names.
const (
	EvRegistered           = "registered"
	EvHumanChatPending     = "human_chat_pending"
	EvHumanChatUnavailable = "human_chat_unavailable"
	EvHumanChatAccepted    = "human_chat_accepted"
	EvHumanChatRequest     = "human_chat_request"
	EvHumanChatTaken       = "human_chat_taken"
	EvHumanChatExpired     = "human_chat_expired"
	EvHumanChatCancelled   = "human_chat_cancelled"
	EvNewChatMessage       = "new_chat_message"
	EvUserJoinedChat       = "user_joined_chat"
	EvUserTyping           = "user_typing"
	EvUserLeftChat         = "user_left_chat"
	EvIncomingCall         = "incoming_call"
	EvCallAccepted         = "call_accepted"
	EvCallConnected        = "call_connected"
	EvCallRejected         = "call_rejected"
	EvCallEnded            = "call_ended"
	EvCallFailed           = "call_failed"
	EvCallHeld             = "call_held"
	EvCallResumed          = "call_resumed"
	EvError                = "error"
)

// Signaling event names are identical inbound and outbound: the relay
// forwards the payload verbatim to the other call party.
const (
	EvWebRTCOffer        = "webrtc_offer"
	EvWebRTCAnswer       = "webrtc_answer"
	EvWebRTCIceCandidate = "webrtc_ice_candidate"
)

// NewEvent builds an envelope, marshalling the payload. Payload types are
// our own structs, so a marshal failure is a programming error; it is
// logged and an empty payload sent rather than dropping the event.
func NewEvent(name string, payload interface{}) Event {
	if payload == nil {
		return Event{Event: name}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: failed to encode %s payload: %v", name, err)
		return Event{Event: name}
	}
	return Event{Event: name, Data: data}
}

// --- Inbound payloads ---

type RegisterPayload struct {
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	Name     string `json:"name"`
	Status   string `json:"status"`
}

type UpdateStatusPayload struct {
	Status string `json:"status"`
}

type RequestHumanChatPayload struct {
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	Reason        string `json:"reason"`
	PreferredType string `json:"preferred_type"`
}

type CancelHumanChatPayload struct {
	RequestID string `json:"request_id"`
}

type AcceptHumanChatPayload struct {
	RequestID string `json:"request_id"`
}

type JoinChatRoomPayload struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	UserType string `json:"user_type"`
	Name     string `json:"name"`
}

type LeaveChatRoomPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type ChatMessagePayload struct {
	RoomID     string `json:"room_id"`
	Message    string `json:"message"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	SenderType string `json:"sender_type"`
}

type TypingPayload struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

type CallInitiatePayload struct {
	TargetUserID string `json:"target_user_id"`
	CallerName   string `json:"caller_name"`
	CallType     string `json:"call_type"`
}

type CallAcceptPayload struct {
	CallID string `json:"call_id"`
}

type CallRejectPayload struct {
	CallID string `json:"call_id"`
	Reason string `json:"reason"`
}

type CallEndPayload struct {
	CallID string `json:"call_id"`
}

type CallHoldPayload struct {
	CallID string `json:"call_id"`
}

// Signaling payloads carry SDP/ICE bodies as raw JSON. The relay never
// parses them; end-to-end media privacy depends on that.

type OfferPayload struct {
	CallID string          `json:"call_id"`
	Offer  json.RawMessage `json:"offer"`
}

type AnswerPayload struct {
	CallID string          `json:"call_id"`
	Answer json.RawMessage `json:"answer"`
}

type IceCandidatePayload struct {
	CallID    string          `json:"call_id"`
	Candidate json.RawMessage `json:"candidate"`
}

// --- Outbound payloads ---

type RegisteredPayload struct {
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
}

type HumanChatPendingPayload struct {
	RequestID      string `json:"request_id"`
	AvailableCount int    `json:"available_count"`
}

type HumanChatUnavailablePayload struct {
	RequestID      string `json:"request_id"`
	AvailableCount int    `json:"available_count"`
	Message        string `json:"message"`
}

type HumanChatRequestPayload struct {
	RequestID     string `json:"request_id"`
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	Reason        string `json:"reason"`
	PreferredType string `json:"preferred_type"`
}

type HumanChatAcceptedPayload struct {
	RequestID string `json:"request_id"`
	RoomID    string `json:"room_id"`
	StaffName string `json:"staff_name"`
	StaffType string `json:"staff_type"`
}

type HumanChatTakenPayload struct {
	RequestID string `json:"request_id"`
	StaffName string `json:"staff_name"`
}

type HumanChatExpiredPayload struct {
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
}

type HumanChatCancelledPayload struct {
	RequestID string `json:"request_id"`
}

type NewChatMessagePayload struct {
	MessageID  string    `json:"message_id"`
	RoomID     string    `json:"room_id"`
	Message    string    `json:"message"`
	SenderID   string    `json:"sender_id"`
	SenderName string    `json:"sender_name"`
	Timestamp  time.Time `json:"timestamp"`
}

type UserJoinedChatPayload struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}

type UserTypingPayload struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	IsTyping bool   `json:"is_typing"`
}

type UserLeftChatPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

type IncomingCallPayload struct {
	CallID     string `json:"call_id"`
	CallerName string `json:"caller_name"`
	CallType   string `json:"call_type"`
}

type CallAcceptedPayload struct {
	CallID   string `json:"call_id"`
	IsCallee bool   `json:"is_callee"`
}

type CallConnectedPayload struct {
	CallID   string `json:"call_id"`
	RoomID   string `json:"room_id"`
	PeerName string `json:"peer_name"`
}

type CallRejectedPayload struct {
	CallID string `json:"call_id"`
	Reason string `json:"reason"`
}

type CallEndedPayload struct {
	CallID string `json:"call_id"`
}

type CallFailedPayload struct {
	CallID  string `json:"call_id"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
