package chathub

import (
	"log"
	"time"

	"vetline/backend/internal/config"
	"vetline/backend/internal/metrics"
	"vetline/backend/internal/models"

	"github.com/google/uuid"
)

// member is one participant of a live room.
type member struct {
	UserID   string
	Name     string
	Role     string
	Primary  bool
	Joined   bool
	JoinedAt time.Time

	// lastTyping enforces the per-sender typing throttle.
	lastTyping time.Time
}

// room is the live state of one conversation. The persisted RoomRecord is
// a separate, best-effort archive.
type room struct {
	ID        string
	Kind      string // "chat" or "call"
	CreatedAt time.Time
	// members is keyed by connection id. Intended members are pre-seeded
	// with Joined=false when the room is created; they claim their seat
	// with join_chat_room.
	members map[string]*member
}

func (r *room) primaries() int {
	n := 0
	for _, m := range r.members {
		if m.Joined && m.Primary {
			n++
		}
	}
	return n
}

func (r *room) joined() int {
	n := 0
	for _, m := range r.members {
		if m.Joined {
			n++
		}
	}
	return n
}

// RoomManager creates, tracks, and tears down rooms, and broadcasts
// join/leave/message/typing events to room members. Owned by the hub
// dispatch goroutine.
type RoomManager struct {
	hub   *Hub
	rooms map[string]*room
}

// NewRoomManager wires a manager to its hub.
func NewRoomManager(hub *Hub) *RoomManager {
	return &RoomManager{hub: hub, rooms: make(map[string]*room)}
}

// CreateRoom allocates a room with two intended primary members. Neither
// has joined yet; each claims its seat via join_chat_room. The persisted
// record is written off the dispatch loop.
func (rm *RoomManager) CreateRoom(initiator, invitee *models.Connection, kind string) *room {
	r := &room{
		ID:        uuid.New().String(),
		Kind:      kind,
		CreatedAt: time.Now(),
		members: map[string]*member{
			initiator.ConnectionID: {UserID: initiator.UserID, Name: initiator.Name, Role: string(initiator.Role), Primary: true},
			invitee.ConnectionID:   {UserID: invitee.UserID, Name: invitee.Name, Role: string(invitee.Role), Primary: true},
		},
	}
	rm.rooms[r.ID] = r
	metrics.ActiveRooms.Inc()

	record := &models.RoomRecord{
		RoomID:      r.ID,
		InitiatorID: initiator.UserID,
		InviteeID:   invitee.UserID,
		Kind:        kind,
		IsActive:    true,
		StartedAt:   r.CreatedAt,
	}
	go func() {
		if err := rm.hub.Storage.SaveRoomRecord(record); err != nil {
			log.Printf("ERROR: failed to save room record %s: %v", r.ID, err)
		}
	}()

	return r
}

// Join adds a connection to a room and announces it to members already
// present. Intended members take their reserved primary seat; anyone else
// gets a primary seat if one is free, an observer seat if configured, and
// ErrRoomFull otherwise.
func (rm *RoomManager) Join(connID string, p models.JoinChatRoomPayload) error {
	r, ok := rm.rooms[p.RoomID]
	if !ok {
		return ErrRoomNotFound
	}

	m, reserved := r.members[connID]
	if !reserved {
		switch {
		case r.primaries() < 2:
			m = &member{Primary: true}
		case rm.hub.Cfg.AllowObservers:
			m = &member{Primary: false}
		default:
			return ErrRoomFull
		}
		r.members[connID] = m
	}

	m.UserID = p.UserID
	m.Name = p.Name
	if p.UserType != "" {
		m.Role = p.UserType
	}
	m.Joined = true
	m.JoinedAt = time.Now()

	rm.broadcast(r, connID, models.NewEvent(models.EvUserJoinedChat, models.UserJoinedChatPayload{
		RoomID:   r.ID,
		UserID:   m.UserID,
		UserName: m.Name,
	}))
	return nil
}

// Leave removes a connection from a room, announces it, and destroys the
// room once nobody joined remains.
func (rm *RoomManager) Leave(connID, roomID string) error {
	r, ok := rm.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	m, ok := r.members[connID]
	if !ok {
		return ErrNotRoomMember
	}
	delete(r.members, connID)

	if m.Joined {
		rm.broadcast(r, connID, models.NewEvent(models.EvUserLeftChat, models.UserLeftChatPayload{
			RoomID: r.ID,
			UserID: m.UserID,
		}))
	}

	if r.joined() == 0 {
		rm.destroy(r)
	}
	return nil
}

// RelayMessage stamps identity onto a chat message, broadcasts it to every
// other joined member, and hands it to the persistence collaborator as a
// fire-and-forget side effect. The sender keeps its local optimistic copy,
// so the message is never echoed back.
func (rm *RoomManager) RelayMessage(connID string, p models.ChatMessagePayload) error {
	r, ok := rm.rooms[p.RoomID]
	if !ok {
		return ErrRoomNotFound
	}
	m, ok := r.members[connID]
	if !ok || !m.Joined {
		return ErrNotRoomMember
	}

	msg := models.ChatMessage{
		MessageID:  uuid.New().String(),
		RoomID:     r.ID,
		SenderID:   m.UserID,
		SenderName: m.Name,
		SenderType: m.Role,
		Message:    p.Message,
		Timestamp:  time.Now(),
	}

	rm.broadcast(r, connID, models.NewEvent(models.EvNewChatMessage, models.NewChatMessagePayload{
		MessageID:  msg.MessageID,
		RoomID:     msg.RoomID,
		Message:    msg.Message,
		SenderID:   msg.SenderID,
		SenderName: msg.SenderName,
		Timestamp:  msg.Timestamp,
	}))

	// Relay first, persist after; a slow history backend must not delay
	// the conversation.
	rm.hub.Sink.PersistMessage(msg)
	return nil
}

// RelayTyping broadcasts an ephemeral typing indicator. Start events above
// one per second per sender are coalesced; stop events always pass so a
// stale indicator clears promptly. Receivers additionally auto-clear after
// config.TypingClearWindow.
func (rm *RoomManager) RelayTyping(connID, roomID string, isTyping bool) error {
	r, ok := rm.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	m, ok := r.members[connID]
	if !ok || !m.Joined {
		return ErrNotRoomMember
	}

	if isTyping {
		if time.Since(m.lastTyping) < config.MinTypingInterval {
			return nil
		}
		m.lastTyping = time.Now()
	}

	rm.broadcast(r, connID, models.NewEvent(models.EvUserTyping, models.UserTypingPayload{
		RoomID:   r.ID,
		UserID:   m.UserID,
		UserName: m.Name,
		IsTyping: isTyping,
	}))
	return nil
}

// IsPrimaryMember reports whether a connection is a joined primary member
// of any live room. The matcher uses this to keep engaged staff out of new
// fan-outs.
func (rm *RoomManager) IsPrimaryMember(connID string) bool {
	for _, r := range rm.rooms {
		if m, ok := r.members[connID]; ok && m.Joined && m.Primary {
			return true
		}
	}
	return false
}

// HandleDisconnect cascades a transport drop: the connection leaves every
// room it was in, remaining members are told within this dispatch tick,
// and emptied rooms are destroyed.
func (rm *RoomManager) HandleDisconnect(connID string) {
	for _, r := range rm.rooms {
		if _, ok := r.members[connID]; ok {
			if err := rm.Leave(connID, r.ID); err != nil {
				log.Printf("ERROR: disconnect cascade for %s in room %s: %v", connID, r.ID, err)
			}
		}
	}
}

// broadcast sends an event to every joined member except the origin.
func (rm *RoomManager) broadcast(r *room, exceptConnID string, ev models.Event) {
	for connID, m := range r.members {
		if connID == exceptConnID || !m.Joined {
			continue
		}
		rm.hub.send(connID, ev)
	}
}

func (rm *RoomManager) destroy(r *room) {
	delete(rm.rooms, r.ID)
	metrics.ActiveRooms.Dec()
	go func() {
		if err := rm.hub.Storage.CloseRoomRecord(r.ID); err != nil {
			log.Printf("ERROR: failed to close room record %s: %v", r.ID, err)
		}
	}()
}
