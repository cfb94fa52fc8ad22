package chathub

import "errors"

// Error taxonomy for hub operations. Everything here is recovered at the
// dispatch boundary and translated into a typed outbound event; nothing
// crosses the signaling boundary as a bare failure.
var (
	// ErrRoomNotFound: unknown room id, or the room was already torn down.
	ErrRoomNotFound = errors.New("chat room not found")
	// ErrRoomFull: both primary seats are taken and observers are off.
	ErrRoomFull = errors.New("chat room is full")
	// ErrNotRoomMember: sender is not a joined member of the room.
	ErrNotRoomMember = errors.New("not a member of this room")
	// ErrAlreadyMatched: a late acceptance lost the race.
	ErrAlreadyMatched = errors.New("request already matched")
	// ErrAlreadyEngaged: the connection is a primary member of an active
	// room or call and cannot take new work.
	ErrAlreadyEngaged = errors.New("connection already engaged")
	// ErrNotCandidate: an acceptance from a connection that was never part
	// of the request's fan-out, the requester included.
	ErrNotCandidate = errors.New("not a notified candidate")
	// ErrCallNotFound: unknown call id.
	ErrCallNotFound = errors.New("call session not found")
	// ErrCallTerminal: the call already reached ended/failed; late frames
	// are dropped.
	ErrCallTerminal = errors.New("call session already terminated")
	// ErrUnknownConnection: the connection never registered.
	ErrUnknownConnection = errors.New("connection not registered")
)

// errorCode maps a hub error onto the wire code clients branch on. The
// codes distinguish "someone else took this" (conflict) from "something
// broke" (not_found) per the client UX contract.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrCallNotFound), errors.Is(err, ErrUnknownConnection):
		return "not_found"
	case errors.Is(err, ErrRoomFull), errors.Is(err, ErrAlreadyEngaged), errors.Is(err, ErrNotCandidate):
		return "conflict"
	case errors.Is(err, ErrAlreadyMatched):
		return "already_matched"
	case errors.Is(err, ErrCallTerminal):
		return "call_terminal"
	default:
		return "internal"
	}
}
