package chathub_test

import (
	"testing"

	"vetline/backend/internal/chathub"
	"vetline/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestPresence_RegisterIsIdempotentUpsert(t *testing.T) {
	p := chathub.NewPresenceRegistry()

	p.Register("conn-1", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)
	p.Register("conn-1", "vet-1", models.RoleUser, "Alex", models.StatusBusy)

	assert.Equal(t, 1, p.Count())
	assert.Equal(t, models.StatusBusy, p.Get("conn-1").Status)
}

func TestPresence_FindAvailableFiltersRoleAndStatus(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	p.Register("c1", "staff-1", models.RoleCounsellor, "Dana", models.StatusAvailable)
	p.Register("c2", "staff-2", models.RolePeer, "Sam", models.StatusAvailable)
	p.Register("c3", "staff-3", models.RoleCounsellor, "Kim", models.StatusBusy)
	p.Register("c4", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)

	counsellors := p.FindAvailable(models.RoleCounsellor)
	assert.Len(t, counsellors, 1)
	assert.Equal(t, "c1", counsellors[0].ConnectionID)

	// "any" unions counsellors and peers but never plain users.
	anyStaff := p.FindAvailable(models.RoleAny)
	assert.Len(t, anyStaff, 2)
}

func TestPresence_FindAvailableOrdersByRegistration(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	p.Register("c1", "staff-1", models.RolePeer, "first", models.StatusAvailable)
	p.Register("c2", "staff-2", models.RolePeer, "second", models.StatusAvailable)
	p.Register("c3", "staff-3", models.RolePeer, "third", models.StatusAvailable)

	out := p.FindAvailable(models.RolePeer)
	assert.Equal(t, []string{"c1", "c2", "c3"}, []string{out[0].ConnectionID, out[1].ConnectionID, out[2].ConnectionID})
}

func TestPresence_FindNewestForUserPicksLastRegistered(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	p.Register("phone", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)
	p.Register("tablet", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)

	newest := p.FindNewestForUser("vet-1")
	assert.Equal(t, "tablet", newest.ConnectionID)

	assert.Nil(t, p.FindNewestForUser("nobody"))
}

func TestPresence_UpdateStatusUnknownConnectionIgnored(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	p.UpdateStatus("ghost", models.StatusBusy)
	assert.Equal(t, 0, p.Count())
}

func TestPresence_RemoveReturnsConnection(t *testing.T) {
	p := chathub.NewPresenceRegistry()
	p.Register("c1", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)

	conn := p.Remove("c1")
	assert.Equal(t, "vet-1", conn.UserID)
	assert.Nil(t, p.Get("c1"))
	assert.Nil(t, p.Remove("c1"))
}
