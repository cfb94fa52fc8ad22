package chathub

import (
	"log"
	"time"

	"vetline/backend/internal/messages"
	"vetline/backend/internal/metrics"
	"vetline/backend/internal/models"

	"github.com/google/uuid"
)

// Matcher drives the HelpRequest lifecycle: fan-out to eligible staff,
// first-acceptance-wins, timeout, and cancellation. Owned by the hub
// dispatch goroutine; expiry timers re-enter through the hub's expiry
// channel so every mutation stays on the loop.
type Matcher struct {
	hub  *Hub
	msgs *messages.Catalog

	// pending holds unresolved requests by request id.
	pending map[string]*models.HelpRequest
	timers  map[string]*time.Timer

	// takenBy remembers who won a recently matched request so a late
	// acceptance can be rejected with the winner's name rather than a
	// bare not-found. Entries age out on the same timer path.
	takenBy map[string]string
}

// NewMatcher wires a matcher to its hub.
func NewMatcher(hub *Hub, msgs *messages.Catalog) *Matcher {
	return &Matcher{
		hub:     hub,
		msgs:    msgs,
		pending: make(map[string]*models.HelpRequest),
		timers:  make(map[string]*time.Timer),
		takenBy: make(map[string]string),
	}
}

// HandleRequest processes request_human_chat. With no eligible staff the
// requester hears back synchronously — never a silent hang — and the ops
// team is alerted. Otherwise every eligible staff connection is notified
// and the request waits for the first acceptance.
func (m *Matcher) HandleRequest(connID string, p models.RequestHumanChatPayload) {
	requester := m.hub.Presence.Get(connID)
	if requester == nil {
		m.hub.sendError(connID, ErrUnknownConnection, "register before requesting support")
		return
	}

	preferred := models.Role(p.PreferredType)
	if preferred != models.RoleCounsellor && preferred != models.RolePeer {
		preferred = models.RoleAny
	}

	req := &models.HelpRequest{
		RequestID:     uuid.New().String(),
		RequesterConn: connID,
		RequesterID:   requester.UserID,
		RequesterName: requesterName(requester, p.UserName),
		Reason:        p.Reason,
		PreferredType: preferred,
		Status:        models.RequestPending,
		CreatedAt:     time.Now(),
	}

	candidates := m.eligibleCandidates(req)
	if len(candidates) == 0 {
		req.Status = models.RequestUnavailable
		metrics.HelpRequests.WithLabelValues(string(models.RequestUnavailable)).Inc()
		m.hub.send(connID, models.NewEvent(models.EvHumanChatUnavailable, models.HumanChatUnavailablePayload{
			RequestID:      req.RequestID,
			AvailableCount: 0,
			Message:        m.msgs.Get(messages.KeyNoStaffAvailable),
		}))
		m.hub.Notifier.StaffUnavailable(req.RequesterName, string(preferred), req.Reason)
		if req.Reason == "panic" {
			m.hub.Notifier.PanicAlert(req.RequesterName)
		}
		return
	}

	notify := models.NewEvent(models.EvHumanChatRequest, models.HumanChatRequestPayload{
		RequestID:     req.RequestID,
		UserID:        req.RequesterID,
		UserName:      req.RequesterName,
		Reason:        req.Reason,
		PreferredType: string(preferred),
	})
	for _, c := range candidates {
		req.Notified = append(req.Notified, c.ConnectionID)
		m.hub.send(c.ConnectionID, notify)
	}

	m.pending[req.RequestID] = req
	m.timers[req.RequestID] = time.AfterFunc(m.hub.Cfg.MatchTimeout, func() {
		m.hub.expire(req.RequestID)
	})

	m.hub.send(connID, models.NewEvent(models.EvHumanChatPending, models.HumanChatPendingPayload{
		RequestID:      req.RequestID,
		AvailableCount: len(candidates),
	}))
}

// HandleAccept processes accept_human_chat. The first acceptance wins
// atomically; every later one — for a pending request or a recently
// resolved one — gets an explicit already-matched rejection so staff UIs
// never show stale state.
func (m *Matcher) HandleAccept(connID string, p models.AcceptHumanChatPayload) {
	staff := m.hub.Presence.Get(connID)
	if staff == nil {
		m.hub.sendError(connID, ErrUnknownConnection, "register before accepting")
		return
	}

	req, ok := m.pending[p.RequestID]
	if !ok {
		winner := m.takenBy[p.RequestID]
		m.hub.send(connID, models.NewEvent(models.EvHumanChatTaken, models.HumanChatTakenPayload{
			RequestID: p.RequestID,
			StaffName: winner,
		}))
		return
	}

	notified := false
	for _, staffConn := range req.Notified {
		if staffConn == connID {
			notified = true
			break
		}
	}
	if !notified {
		m.hub.sendError(connID, ErrNotCandidate, "only notified staff can accept this request")
		return
	}

	if m.hub.Rooms.IsPrimaryMember(connID) || m.hub.Calls.IsEngaged(connID) {
		m.hub.sendError(connID, ErrAlreadyEngaged, "finish your current conversation first")
		return
	}

	requester := m.hub.Presence.Get(req.RequesterConn)
	if requester == nil {
		// The requester vanished between fan-out and this acceptance;
		// the disconnect cascade will have resolved the request, but be
		// explicit rather than silent.
		m.resolve(req, models.RequestCancelled)
		m.hub.send(connID, models.NewEvent(models.EvHumanChatCancelled, models.HumanChatCancelledPayload{RequestID: req.RequestID}))
		return
	}

	m.resolve(req, models.RequestMatched)
	m.takenBy[req.RequestID] = staff.Name
	m.timers[req.RequestID] = time.AfterFunc(m.hub.Cfg.MatchTimeout, func() {
		m.hub.expire(req.RequestID)
	})

	r := m.hub.Rooms.CreateRoom(requester, staff, "chat")

	accepted := models.HumanChatAcceptedPayload{
		RequestID: req.RequestID,
		RoomID:    r.ID,
		StaffName: staff.Name,
		StaffType: string(staff.Role),
	}
	m.hub.send(req.RequesterConn, models.NewEvent(models.EvHumanChatAccepted, accepted))
	m.hub.send(connID, models.NewEvent(models.EvHumanChatAccepted, accepted))

	// Losing candidates learn who took it, so a handoff is possible.
	for _, lost := range req.Notified {
		if lost == connID {
			continue
		}
		m.hub.send(lost, models.NewEvent(models.EvHumanChatTaken, models.HumanChatTakenPayload{
			RequestID: req.RequestID,
			StaffName: staff.Name,
		}))
	}
}

// HandleCancel processes cancel_human_chat from the requester before a
// match. Outstanding staff notifications are invalidated.
func (m *Matcher) HandleCancel(connID string, p models.CancelHumanChatPayload) {
	req, ok := m.pending[p.RequestID]
	if !ok || req.RequesterConn != connID {
		return
	}
	m.resolve(req, models.RequestCancelled)

	cancelled := models.NewEvent(models.EvHumanChatCancelled, models.HumanChatCancelledPayload{RequestID: req.RequestID})
	m.hub.send(connID, cancelled)
	for _, staffConn := range req.Notified {
		m.hub.send(staffConn, cancelled)
	}
}

// HandleExpiry fires on the hub loop when a request's window lapses with
// no acceptance, and also ages out takenBy entries for resolved requests.
func (m *Matcher) HandleExpiry(requestID string) {
	req, ok := m.pending[requestID]
	if !ok {
		delete(m.takenBy, requestID)
		delete(m.timers, requestID)
		return
	}
	m.resolve(req, models.RequestExpired)

	m.hub.send(req.RequesterConn, models.NewEvent(models.EvHumanChatExpired, models.HumanChatExpiredPayload{
		RequestID: req.RequestID,
		Message:   m.msgs.Get(messages.KeyRequestExpired),
	}))
	expired := models.NewEvent(models.EvHumanChatCancelled, models.HumanChatCancelledPayload{RequestID: req.RequestID})
	for _, staffConn := range req.Notified {
		m.hub.send(staffConn, expired)
	}
	m.hub.Notifier.RequestExpired(req.RequesterName, len(req.Notified))
}

// HandleDisconnect resolves the race between a disconnect and an in-flight
// acceptance: the disconnect wins. A requester's requests are cancelled
// outright; a disconnected staff candidate is struck from fan-out lists.
func (m *Matcher) HandleDisconnect(connID string) {
	for id, req := range m.pending {
		if req.RequesterConn == connID {
			m.resolve(req, models.RequestCancelled)
			cancelled := models.NewEvent(models.EvHumanChatCancelled, models.HumanChatCancelledPayload{RequestID: id})
			for _, staffConn := range req.Notified {
				m.hub.send(staffConn, cancelled)
			}
			continue
		}
		for i, staffConn := range req.Notified {
			if staffConn == connID {
				req.Notified = append(req.Notified[:i], req.Notified[i+1:]...)
				break
			}
		}
		// The request stays pending for the remaining candidates; the
		// timer still bounds it.
	}
}

// PendingCount reports unresolved requests, for the admin surface.
func (m *Matcher) PendingCount() int { return len(m.pending) }

// eligibleCandidates filters available staff down to those not already
// engaged in a room or call as a primary member. Availability is
// self-reported; engagement is not.
func (m *Matcher) eligibleCandidates(req *models.HelpRequest) []*models.Connection {
	var out []*models.Connection
	for _, c := range m.hub.Presence.FindAvailable(req.PreferredType) {
		if c.ConnectionID == req.RequesterConn {
			continue
		}
		if m.hub.Rooms.IsPrimaryMember(c.ConnectionID) || m.hub.Calls.IsEngaged(c.ConnectionID) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// resolve moves a request out of pending into a terminal status and stops
// its timer.
func (m *Matcher) resolve(req *models.HelpRequest, status models.RequestStatus) {
	req.Status = status
	delete(m.pending, req.RequestID)
	if t, ok := m.timers[req.RequestID]; ok {
		t.Stop()
		delete(m.timers, req.RequestID)
	}
	metrics.HelpRequests.WithLabelValues(string(status)).Inc()
	if status != models.RequestMatched {
		log.Printf("Help request %s from %s resolved: %s", req.RequestID, req.RequesterID, status)
	}
}

func requesterName(conn *models.Connection, payloadName string) string {
	if payloadName != "" {
		return payloadName
	}
	return conn.Name
}
