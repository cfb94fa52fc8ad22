package chathub

import (
	"log"
	"sort"
	"time"

	"vetline/backend/internal/models"
)

// PresenceRegistry maintains the live set of Connections and their
// self-reported availability. It is owned by the hub dispatch goroutine;
// all access is serialized there, so no internal locking.
//
// Multi-device policy: a user may hold several Connections at once. All of
// them are fan-out targets for help requests; a directed call to a user id
// goes to the last-registered connection only.
type PresenceRegistry struct {
	conns map[string]*models.Connection
	seq   uint64
}

// NewPresenceRegistry returns an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{conns: make(map[string]*models.Connection)}
}

// Register stores or overwrites the Connection for a connection id. It is
// an idempotent upsert: re-registration after a reconnect or in a second
// tab is not an error. Each call advances the sequence, so a re-registered
// connection counts as the user's newest device.
func (p *PresenceRegistry) Register(connectionID, userID string, role models.Role, name string, status models.Availability) *models.Connection {
	p.seq++
	conn := &models.Connection{
		ConnectionID: connectionID,
		UserID:       userID,
		Role:         role,
		Name:         name,
		Status:       status,
		RegisteredAt: time.Now(),
		Seq:          p.seq,
	}
	p.conns[connectionID] = conn
	return conn
}

// UpdateStatus mutates availability in place. Unknown connection ids are
// logged and ignored: the update may have raced a disconnect.
func (p *PresenceRegistry) UpdateStatus(connectionID string, status models.Availability) {
	conn, ok := p.conns[connectionID]
	if !ok {
		log.Printf("WARNING: status update for unknown connection %s ignored", connectionID)
		return
	}
	conn.Status = status
}

// Get returns the Connection for an id, or nil.
func (p *PresenceRegistry) Get(connectionID string) *models.Connection {
	return p.conns[connectionID]
}

// FindAvailable returns every available Connection matching the role, in
// registration order (oldest first). Role "any" unions counsellors and
// peers. Oldest-first keeps the notify-all fan-out fair and deterministic.
func (p *PresenceRegistry) FindAvailable(role models.Role) []*models.Connection {
	var out []*models.Connection
	for _, conn := range p.conns {
		if conn.Status != models.StatusAvailable {
			continue
		}
		if role == models.RoleAny {
			if !conn.Role.IsStaff() {
				continue
			}
		} else if conn.Role != role {
			continue
		}
		out = append(out, conn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// FindNewestForUser returns the last-registered connection of a user, or
// nil if the user has no live connection. This is the targeting rule for
// directed calls.
func (p *PresenceRegistry) FindNewestForUser(userID string) *models.Connection {
	var newest *models.Connection
	for _, conn := range p.conns {
		if conn.UserID != userID {
			continue
		}
		if newest == nil || conn.Seq > newest.Seq {
			newest = conn
		}
	}
	return newest
}

// Remove drops the Connection for an id and returns it, or nil if it was
// never registered. Cascading teardown of rooms and calls is the hub's
// job; the registry only owns the presence record.
func (p *PresenceRegistry) Remove(connectionID string) *models.Connection {
	conn, ok := p.conns[connectionID]
	if !ok {
		return nil
	}
	delete(p.conns, connectionID)
	return conn
}

// Count returns the number of live connections.
func (p *PresenceRegistry) Count() int { return len(p.conns) }
