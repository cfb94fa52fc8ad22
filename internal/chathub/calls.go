package chathub

import (
	"encoding/json"
	"log"
	"time"

	"vetline/backend/internal/callstate"
	"vetline/backend/internal/messages"
	"vetline/backend/internal/metrics"
	"vetline/backend/internal/models"

	"github.com/google/uuid"
)

// callSession is one live voice-call negotiation. Each party carries its
// own state machine; the session is terminal as soon as either machine is,
// and every signaling frame after that is dropped.
type callSession struct {
	ID       string
	CallType string

	CallerConn string
	CalleeConn string
	CallerUser string
	CalleeUser string
	CallerName string
	CalleeName string

	Caller *callstate.Machine
	Callee *callstate.Machine

	StartedAt time.Time
	RoomID    string
}

func (s *callSession) terminal() bool {
	return s.Caller.Terminal() || s.Callee.Terminal()
}

// otherParty returns the connection id of the party opposite connID, or ""
// if connID is not part of the session.
func (s *callSession) otherParty(connID string) string {
	switch connID {
	case s.CallerConn:
		return s.CalleeConn
	case s.CalleeConn:
		return s.CallerConn
	}
	return ""
}

func (s *callSession) peerName(connID string) string {
	if connID == s.CallerConn {
		return s.CalleeName
	}
	return s.CallerName
}

// endedRetention is how long a terminal call id is remembered so that late
// frames for it are dropped silently instead of answered with errors.
const endedRetention = 2 * time.Minute

// CallManager owns live call sessions and the signaling relay. Owned by
// the hub dispatch goroutine.
type CallManager struct {
	hub   *Hub
	calls map[string]*callSession
	msgs  *messages.Catalog

	// ended remembers recently terminated call ids. Late signaling or
	// control frames for them must be dropped, not reprocessed; entries
	// are pruned lazily as newer calls finish.
	ended map[string]time.Time
}

// NewCallManager wires a manager to its hub.
func NewCallManager(hub *Hub, msgs *messages.Catalog) *CallManager {
	return &CallManager{
		hub:   hub,
		calls: make(map[string]*callSession),
		msgs:  msgs,
		ended: make(map[string]time.Time),
	}
}

// Initiate starts an outgoing call to the target user's last-registered
// connection. An unreachable or engaged target fails the call
// synchronously; the caller never hangs waiting.
func (cm *CallManager) Initiate(connID string, p models.CallInitiatePayload) {
	caller := cm.hub.Presence.Get(connID)
	if caller == nil {
		cm.hub.sendError(connID, ErrUnknownConnection, "register before calling")
		return
	}

	target := cm.hub.Presence.FindNewestForUser(p.TargetUserID)
	if target == nil || target.Status == models.StatusOffline {
		cm.hub.send(connID, models.NewEvent(models.EvCallFailed, models.CallFailedPayload{
			Message: cm.msgs.Get(messages.KeyCallUnreachable),
		}))
		return
	}
	if cm.IsEngaged(target.ConnectionID) || cm.hub.Rooms.IsPrimaryMember(target.ConnectionID) {
		cm.hub.send(connID, models.NewEvent(models.EvCallFailed, models.CallFailedPayload{
			Message: cm.msgs.Get(messages.KeyCallDeclined),
		}))
		return
	}

	callType := p.CallType
	if callType == "" {
		callType = "audio"
	}
	callerName := p.CallerName
	if callerName == "" {
		callerName = caller.Name
	}

	s := &callSession{
		ID:         uuid.New().String(),
		CallType:   callType,
		CallerConn: caller.ConnectionID,
		CalleeConn: target.ConnectionID,
		CallerUser: caller.UserID,
		CalleeUser: target.UserID,
		CallerName: callerName,
		CalleeName: target.Name,
		Caller:     callstate.New(),
		Callee:     callstate.New(),
		StartedAt:  time.Now(),
	}
	s.Caller.Fire(callstate.InputInitiate)
	s.Callee.Fire(callstate.InputInitiate)
	cm.calls[s.ID] = s
	metrics.ActiveCalls.Inc()

	cm.hub.send(target.ConnectionID, models.NewEvent(models.EvIncomingCall, models.IncomingCallPayload{
		CallID:     s.ID,
		CallerName: s.CallerName,
		CallType:   s.CallType,
	}))

	// Both sides are now awaiting the callee's decision.
	s.Caller.Fire(callstate.InputRinging)
	s.Callee.Fire(callstate.InputRinging)
}

// Accept connects the call: both machines move to connected, a backing
// chat room is created for in-call text, and both parties learn the room
// and each other's names.
func (cm *CallManager) Accept(connID string, callID string) {
	s, err := cm.liveSession(connID, callID)
	if err != nil {
		return
	}
	if connID != s.CalleeConn {
		cm.hub.sendError(connID, ErrNotRoomMember, "only the called party can accept")
		return
	}

	if _, err := s.Callee.Fire(callstate.InputAccept); err != nil {
		log.Printf("WARNING: accept for call %s in state %s dropped: %v", s.ID, s.Callee.State(), err)
		return
	}
	s.Caller.Fire(callstate.InputAccept)

	callerConn := cm.hub.Presence.Get(s.CallerConn)
	calleeConn := cm.hub.Presence.Get(s.CalleeConn)
	if callerConn != nil && calleeConn != nil {
		r := cm.hub.Rooms.CreateRoom(callerConn, calleeConn, "call")
		s.RoomID = r.ID
	}

	cm.hub.send(s.CalleeConn, models.NewEvent(models.EvCallAccepted, models.CallAcceptedPayload{CallID: s.ID, IsCallee: true}))
	cm.hub.send(s.CallerConn, models.NewEvent(models.EvCallAccepted, models.CallAcceptedPayload{CallID: s.ID, IsCallee: false}))

	for _, connID := range []string{s.CallerConn, s.CalleeConn} {
		cm.hub.send(connID, models.NewEvent(models.EvCallConnected, models.CallConnectedPayload{
			CallID:   s.ID,
			RoomID:   s.RoomID,
			PeerName: s.peerName(connID),
		}))
	}
}

// Reject declines a ringing call on behalf of the callee.
func (cm *CallManager) Reject(connID string, p models.CallRejectPayload) {
	s, err := cm.liveSession(connID, p.CallID)
	if err != nil {
		return
	}

	s.Caller.Fire(callstate.InputReject)
	s.Callee.Fire(callstate.InputReject)

	reason := p.Reason
	if reason == "" {
		reason = cm.msgs.Get(messages.KeyCallDeclined)
	}
	cm.hub.send(s.otherParty(connID), models.NewEvent(models.EvCallRejected, models.CallRejectedPayload{
		CallID: s.ID,
		Reason: reason,
	}))
	cm.finish(s, models.CallOutcomeRejected)
}

// End hangs up on behalf of either party.
func (cm *CallManager) End(connID string, callID string) {
	s, err := cm.liveSession(connID, callID)
	if err != nil {
		return
	}

	connected := !s.Caller.ConnectedAt().IsZero()
	s.Caller.Fire(callstate.InputHangup)
	s.Callee.Fire(callstate.InputHangup)

	cm.hub.send(s.otherParty(connID), models.NewEvent(models.EvCallEnded, models.CallEndedPayload{CallID: s.ID}))

	outcome := models.CallOutcomeCompleted
	if !connected {
		outcome = models.CallOutcomeMissed
	}
	cm.finish(s, outcome)
}

// Hold and Resume relay a hold toggle to the peer; both machines track the
// state regardless of which side issued it.
func (cm *CallManager) Hold(connID string, callID string) {
	cm.holdToggle(connID, callID, callstate.InputHold, models.EvCallHeld)
}

func (cm *CallManager) Resume(connID string, callID string) {
	cm.holdToggle(connID, callID, callstate.InputResume, models.EvCallResumed)
}

func (cm *CallManager) holdToggle(connID, callID string, in callstate.Input, outEvent string) {
	s, err := cm.liveSession(connID, callID)
	if err != nil {
		return
	}
	if _, err := s.Caller.Fire(in); err != nil {
		log.Printf("WARNING: %s for call %s in state %s dropped", in, s.ID, s.Caller.State())
		return
	}
	s.Callee.Fire(in)
	cm.hub.send(s.otherParty(connID), models.NewEvent(outEvent, models.CallHoldPayload{CallID: s.ID}))
}

// signalPeek extracts only the call id from a signaling payload; the
// SDP/ICE body is never inspected.
type signalPeek struct {
	CallID string `json:"call_id"`
}

// RelaySignal forwards a webrtc_offer/answer/ice_candidate frame verbatim
// to the other call party. The envelope is passed through untouched to
// preserve end-to-end media privacy. Unknown sessions and departed peers
// fail the call back to the sender; frames for terminal sessions are
// silently dropped.
func (cm *CallManager) RelaySignal(connID string, ev models.Event) {
	var peek signalPeek
	if err := json.Unmarshal(ev.Data, &peek); err != nil || peek.CallID == "" {
		cm.hub.sendError(connID, ErrCallNotFound, "signaling frame missing call_id")
		return
	}

	s, ok := cm.calls[peek.CallID]
	if !ok {
		if _, done := cm.ended[peek.CallID]; done {
			// Late frame after hangup; drop, never reprocess.
			return
		}
		cm.hub.send(connID, models.NewEvent(models.EvCallFailed, models.CallFailedPayload{
			CallID:  peek.CallID,
			Message: cm.msgs.Get(messages.KeyCallFailed),
		}))
		return
	}
	if s.terminal() {
		return
	}

	other := s.otherParty(connID)
	if other == "" {
		cm.hub.sendError(connID, ErrNotRoomMember, "not a party to this call")
		return
	}
	if cm.hub.Presence.Get(other) == nil {
		// The peer is gone; the session cannot recover.
		s.Caller.Fire(callstate.InputMediaError)
		s.Callee.Fire(callstate.InputMediaError)
		cm.hub.send(connID, models.NewEvent(models.EvCallFailed, models.CallFailedPayload{
			CallID:  s.ID,
			Message: cm.msgs.Get(messages.KeyConnectionLost),
		}))
		cm.finish(s, models.CallOutcomeFailed)
		return
	}

	metrics.SignalingFrames.WithLabelValues(ev.Event).Inc()
	cm.hub.send(other, ev)
}

// IsEngaged reports whether a connection is party to a non-terminal call.
func (cm *CallManager) IsEngaged(connID string) bool {
	for _, s := range cm.calls {
		if s.terminal() {
			continue
		}
		if s.CallerConn == connID || s.CalleeConn == connID {
			return true
		}
	}
	return false
}

// HandleDisconnect treats a transport drop as an implicit hangup for every
// session the connection was party to. The surviving peer is told within
// this dispatch tick; a dropped transport must never leave a session stuck
// in connected.
func (cm *CallManager) HandleDisconnect(connID string) {
	for _, s := range cm.calls {
		if s.terminal() {
			continue
		}
		if s.CallerConn != connID && s.CalleeConn != connID {
			continue
		}

		connected := !s.Caller.ConnectedAt().IsZero()
		s.Caller.Fire(callstate.InputDisconnect)
		s.Callee.Fire(callstate.InputDisconnect)

		cm.hub.send(s.otherParty(connID), models.NewEvent(models.EvCallEnded, models.CallEndedPayload{CallID: s.ID}))

		outcome := models.CallOutcomeCompleted
		if !connected {
			outcome = models.CallOutcomeMissed
		}
		cm.finish(s, outcome)
	}
}

// liveSession resolves a call id to a non-terminal session the connection
// is party to, emitting the appropriate failure event otherwise.
func (cm *CallManager) liveSession(connID, callID string) (*callSession, error) {
	s, ok := cm.calls[callID]
	if !ok {
		if _, done := cm.ended[callID]; done {
			return nil, ErrCallTerminal
		}
		cm.hub.sendError(connID, ErrCallNotFound, "unknown call")
		return nil, ErrCallNotFound
	}
	if s.terminal() {
		// Idempotent-terminal: late control frames are dropped silently.
		return nil, ErrCallTerminal
	}
	if s.CallerConn != connID && s.CalleeConn != connID {
		cm.hub.sendError(connID, ErrNotRoomMember, "not a party to this call")
		return nil, ErrNotRoomMember
	}
	return s, nil
}

// finish archives a terminal session and forgets it. The record write
// happens off the dispatch loop.
func (cm *CallManager) finish(s *callSession, outcome models.CallOutcome) {
	delete(cm.calls, s.ID)
	cm.ended[s.ID] = time.Now()
	for id, at := range cm.ended {
		if time.Since(at) > endedRetention {
			delete(cm.ended, id)
		}
	}
	metrics.ActiveCalls.Dec()

	rec := &models.CallRecord{
		CallID:          s.ID,
		CallerUserID:    s.CallerUser,
		CalleeUserID:    s.CalleeUser,
		CallType:        s.CallType,
		Outcome:         outcome,
		StartedAt:       s.StartedAt,
		EndedAt:         time.Now(),
		DurationSeconds: int(s.Caller.Duration().Seconds()),
	}
	if t := s.Caller.ConnectedAt(); !t.IsZero() {
		connectedAt := t
		rec.ConnectedAt = &connectedAt
	}
	go func() {
		if err := cm.hub.Storage.SaveCallRecord(rec); err != nil {
			log.Printf("ERROR: failed to archive call %s: %v", s.ID, err)
		}
	}()
}
