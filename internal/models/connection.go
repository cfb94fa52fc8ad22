package models

import "time"

// Role classifies an endpoint at registration time. The hub trusts the
// role supplied by the caller; credential checks happen upstream.
type Role string

const (
	RoleUser       Role = "user"
	RoleCounsellor Role = "counsellor"
	RolePeer       Role = "peer"
	// RoleAny is only valid as a requested staff type, never as a
	// registered role.
	RoleAny Role = "any"
)

// IsStaff reports whether the role can accept help requests.
func (r Role) IsStaff() bool {
	return r == RoleCounsellor || r == RolePeer
}

// Availability is a connection's self-reported readiness for new requests.
type Availability string

const (
	StatusAvailable Availability = "available"
	StatusBusy      Availability = "busy"
	StatusOffline   Availability = "offline"
)

// Connection is the ephemeral record of one live endpoint. It exists from
// the register event until transport disconnect. The same user may hold
// several Connections at once (multi-device); targeting policy for that
// case lives in the presence registry.
type Connection struct {
	ConnectionID string
	UserID       string
	Role         Role
	Name         string
	Status       Availability
	RegisteredAt time.Time

	// Seq is assigned by the presence registry and increases with every
	// registration. It gives FindAvailable its oldest-first ordering and
	// lets directed calls pick the newest device of a user.
	Seq uint64
}
