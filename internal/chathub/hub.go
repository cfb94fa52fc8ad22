package chathub

import (
	"encoding/json"
	"log"
	"time"

	"vetline/backend/internal/config"
	"vetline/backend/internal/messages"
	"vetline/backend/internal/metrics"
	"vetline/backend/internal/models"
	"vetline/backend/internal/notify"
	"vetline/backend/internal/storage"
)

// MessageSink receives relayed chat messages for durable storage. The
// implementation must return immediately; persistence is best-effort and
// must never delay the dispatch loop.
type MessageSink interface {
	PersistMessage(msg models.ChatMessage)
}

// Hub is the single owner of all shared signaling state: the presence
// registry, the matcher's pending-request table, the room table, and the
// call table. One goroutine runs the dispatch loop; registrations,
// inbound frames, disconnects, match expiries, and cross-node deliveries
// all arrive on channels, so every mutation is serialized and races like
// accept-vs-disconnect resolve deterministically (disconnect wins).
type Hub struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	IncomingCh   chan Frame

	// expiryCh re-enters matcher timer callbacks onto the loop.
	expiryCh chan string
	// bridgeCh carries events published by other nodes for connections
	// hosted here.
	bridgeCh chan Frame

	Presence *PresenceRegistry
	Matcher  *Matcher
	Rooms    *RoomManager
	Calls    *CallManager

	Storage  storage.Storage
	Sink     MessageSink
	Notifier notify.Notifier
	Cfg      *config.Config
}

// New assembles a hub with its sub-managers.
func New(s storage.Storage, sink MessageSink, notifier notify.Notifier, msgs *messages.Catalog, cfg *config.Config) *Hub {
	h := &Hub{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		IncomingCh:   make(chan Frame),
		expiryCh:     make(chan string, 64),
		bridgeCh:     make(chan Frame, 64),
		Presence:     NewPresenceRegistry(),
		Storage:      s,
		Sink:         sink,
		Notifier:     notifier,
		Cfg:          cfg,
	}
	h.Matcher = NewMatcher(h, msgs)
	h.Rooms = NewRoomManager(h)
	h.Calls = NewCallManager(h, msgs)
	return h
}

// Run is the dispatch loop. It must be the only goroutine touching hub
// state after startup.
func (h *Hub) Run() {
	log.Println("Hub dispatch loop started.")
	h.startBridge()
	h.closeOrphanedRooms()

	for {
		select {
		case client := <-h.RegisterCh:
			h.Clients[client.GetConnectionID()] = client

		case client := <-h.UnregisterCh:
			h.handleDisconnect(client)

		case frame := <-h.IncomingCh:
			h.Dispatch(frame.ConnectionID, frame.Event)

		case requestID := <-h.expiryCh:
			h.Matcher.HandleExpiry(requestID)

		case frame := <-h.bridgeCh:
			h.deliverLocal(frame.ConnectionID, frame.Event)
		}
	}
}

// Dispatch routes one inbound frame to its handler. A malformed or
// unknown frame is answered with an error event and never takes the loop
// down; one bad client must not affect other rooms.
func (h *Hub) Dispatch(connID string, ev models.Event) {
	metrics.EventsDispatched.WithLabelValues(ev.Event).Inc()

	switch ev.Event {
	case models.EvRegister:
		var p models.RegisterPayload
		if h.decode(connID, ev, &p) {
			h.handleRegister(connID, p)
		}
	case models.EvUpdateStatus:
		var p models.UpdateStatusPayload
		if h.decode(connID, ev, &p) {
			h.Presence.UpdateStatus(connID, models.Availability(p.Status))
		}
	case models.EvRequestHumanChat:
		var p models.RequestHumanChatPayload
		if h.decode(connID, ev, &p) {
			h.Matcher.HandleRequest(connID, p)
		}
	case models.EvCancelHumanChat:
		var p models.CancelHumanChatPayload
		if h.decode(connID, ev, &p) {
			h.Matcher.HandleCancel(connID, p)
		}
	case models.EvAcceptHumanChat:
		var p models.AcceptHumanChatPayload
		if h.decode(connID, ev, &p) {
			h.Matcher.HandleAccept(connID, p)
		}
	case models.EvJoinChatRoom:
		var p models.JoinChatRoomPayload
		if h.decode(connID, ev, &p) {
			if err := h.Rooms.Join(connID, p); err != nil {
				h.sendError(connID, err, roomErrorMessage(h, err))
			}
		}
	case models.EvLeaveChatRoom:
		var p models.LeaveChatRoomPayload
		if h.decode(connID, ev, &p) {
			if err := h.Rooms.Leave(connID, p.RoomID); err != nil {
				log.Printf("WARNING: leave room %s by %s: %v", p.RoomID, connID, err)
			}
		}
	case models.EvChatMessage:
		var p models.ChatMessagePayload
		if h.decode(connID, ev, &p) {
			if err := h.Rooms.RelayMessage(connID, p); err != nil {
				h.sendError(connID, err, roomErrorMessage(h, err))
			}
		}
	case models.EvTypingStart, models.EvTypingStop:
		var p models.TypingPayload
		if h.decode(connID, ev, &p) {
			if err := h.Rooms.RelayTyping(connID, p.RoomID, ev.Event == models.EvTypingStart); err != nil {
				log.Printf("WARNING: typing relay in %s by %s: %v", p.RoomID, connID, err)
			}
		}
	case models.EvCallInitiate:
		var p models.CallInitiatePayload
		if h.decode(connID, ev, &p) {
			h.Calls.Initiate(connID, p)
		}
	case models.EvCallAccept:
		var p models.CallAcceptPayload
		if h.decode(connID, ev, &p) {
			h.Calls.Accept(connID, p.CallID)
		}
	case models.EvCallReject:
		var p models.CallRejectPayload
		if h.decode(connID, ev, &p) {
			h.Calls.Reject(connID, p)
		}
	case models.EvCallEnd:
		var p models.CallEndPayload
		if h.decode(connID, ev, &p) {
			h.Calls.End(connID, p.CallID)
		}
	case models.EvCallHold:
		var p models.CallHoldPayload
		if h.decode(connID, ev, &p) {
			h.Calls.Hold(connID, p.CallID)
		}
	case models.EvCallResume:
		var p models.CallHoldPayload
		if h.decode(connID, ev, &p) {
			h.Calls.Resume(connID, p.CallID)
		}
	case models.EvWebRTCOffer, models.EvWebRTCAnswer, models.EvWebRTCIceCandidate:
		h.Calls.RelaySignal(connID, ev)
	default:
		h.send(connID, models.NewEvent(models.EvError, models.ErrorPayload{
			Code:    "unknown_event",
			Message: "unrecognized event: " + ev.Event,
		}))
	}
}

// handleRegister upserts presence, refreshes the staff directory for
// counsellors and peers, and acknowledges.
func (h *Hub) handleRegister(connID string, p models.RegisterPayload) {
	role := models.Role(p.UserType)
	if role != models.RoleCounsellor && role != models.RolePeer {
		role = models.RoleUser
	}
	status := models.Availability(p.Status)
	switch status {
	case models.StatusAvailable, models.StatusBusy, models.StatusOffline:
	default:
		status = models.StatusAvailable
	}

	// Re-registration is an upsert, not a new connection; keep the gauge
	// balanced, including across a role change.
	if prev := h.Presence.Get(connID); prev != nil {
		metrics.ActiveConnections.WithLabelValues(string(prev.Role)).Dec()
	}
	h.Presence.Register(connID, p.UserID, role, p.Name, status)
	metrics.ActiveConnections.WithLabelValues(string(role)).Inc()

	if role.IsStaff() {
		profile := &models.StaffProfile{
			UserID:     p.UserID,
			Name:       p.Name,
			Role:       string(role),
			LastSeenAt: time.Now(),
		}
		go func() {
			if err := h.Storage.UpsertStaffProfile(profile); err != nil {
				log.Printf("ERROR: failed to refresh staff profile %s: %v", p.UserID, err)
			}
		}()
	}

	h.send(connID, models.NewEvent(models.EvRegistered, models.RegisteredPayload{
		ConnectionID: connID,
		UserID:       p.UserID,
	}))
}

// handleDisconnect cascades a transport drop through every component:
// presence, pending matches, rooms, and calls, in that order. All of it
// happens in one dispatch tick, so the remaining party of a room or call
// learns immediately.
func (h *Hub) handleDisconnect(client Client) {
	connID := client.GetConnectionID()
	if _, ok := h.Clients[connID]; !ok {
		return
	}
	delete(h.Clients, connID)

	conn := h.Presence.Remove(connID)
	if conn != nil {
		metrics.ActiveConnections.WithLabelValues(string(conn.Role)).Dec()
	}

	h.Matcher.HandleDisconnect(connID)
	h.Rooms.HandleDisconnect(connID)
	h.Calls.HandleDisconnect(connID)

	client.Close()
}

// send delivers an event to a connection: directly when the client is
// hosted here, via the Redis bridge otherwise. A full local send buffer
// drops the frame rather than blocking the loop; the write pump's
// deadlines will reap a genuinely dead client.
func (h *Hub) send(connID string, ev models.Event) {
	if client, ok := h.Clients[connID]; ok {
		select {
		case client.GetSendChannel() <- ev:
		default:
			log.Printf("WARNING: send buffer full for %s, dropping %s", connID, ev.Event)
		}
		return
	}
	if err := h.Storage.PublishEvent(connID, ev); err != nil {
		log.Printf("ERROR: failed to bridge %s to %s: %v", ev.Event, connID, err)
	}
}

// sendError translates a hub error into the typed error event.
func (h *Hub) sendError(connID string, err error, msg string) {
	h.send(connID, models.NewEvent(models.EvError, models.ErrorPayload{
		Code:    errorCode(err),
		Message: msg,
	}))
}

// expire is called from matcher timers on their own goroutines; it only
// posts the id back onto the loop.
func (h *Hub) expire(requestID string) {
	select {
	case h.expiryCh <- requestID:
	default:
		log.Printf("WARNING: expiry channel full, request %s will linger", requestID)
	}
}

// deliverLocal hands a bridged event to a locally hosted client.
func (h *Hub) deliverLocal(connID string, ev models.Event) {
	client, ok := h.Clients[connID]
	if !ok {
		// The connection moved or dropped since the publish; nothing to do.
		return
	}
	select {
	case client.GetSendChannel() <- ev:
	default:
		log.Printf("WARNING: send buffer full for %s, dropping bridged %s", connID, ev.Event)
	}
}

// closeOrphanedRooms marks rooms left active by a previous crash as closed.
func (h *Hub) closeOrphanedRooms() {
	go func() {
		roomIDs, err := h.Storage.GetActiveRoomIDs()
		if err != nil {
			log.Printf("ERROR: failed to list orphaned rooms: %v", err)
			return
		}
		for _, roomID := range roomIDs {
			if err := h.Storage.CloseRoomRecord(roomID); err != nil {
				log.Printf("ERROR: failed to close orphaned room %s: %v", roomID, err)
			}
		}
		if len(roomIDs) > 0 {
			log.Printf("Closed %d rooms orphaned by previous shutdown.", len(roomIDs))
		}
	}()
}

func (h *Hub) decode(connID string, ev models.Event, out interface{}) bool {
	if err := json.Unmarshal(ev.Data, out); err != nil {
		log.Printf("WARNING: malformed %s payload from %s: %v", ev.Event, connID, err)
		h.send(connID, models.NewEvent(models.EvError, models.ErrorPayload{
			Code:    "bad_payload",
			Message: "malformed payload for event: " + ev.Event,
		}))
		return false
	}
	return true
}

func roomErrorMessage(h *Hub, err error) string {
	switch {
	case err == ErrRoomFull:
		return h.Matcher.msgs.Get(messages.KeyRoomFull)
	case err == ErrRoomNotFound:
		return h.Matcher.msgs.Get(messages.KeyRoomNotFound)
	default:
		return err.Error()
	}
}
