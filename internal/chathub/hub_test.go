package chathub_test

import (
	"encoding/json"
	"testing"
	"time"

	"vetline/backend/internal/metrics"
	"vetline/backend/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHub_Run(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	storageMock.On("GetActiveRoomIDs").Return([]string{}, nil)
	storageMock.On("SubscribeEvents").Return(nil)

	client := newMockClient("conn-a")

	go hub.Run()

	hub.RegisterCh <- client
	time.Sleep(100 * time.Millisecond)
	assert.Contains(t, hub.Clients, "conn-a")

	hub.UnregisterCh <- client
	time.Sleep(100 * time.Millisecond)
	assert.NotContains(t, hub.Clients, "conn-a")
	assert.True(t, client.closed)
}

func TestHub_RegisterDefaultsRoleAndStatus(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)

	client := newMockClient("conn-a")
	hub.Clients["conn-a"] = client

	hub.Dispatch("conn-a", models.NewEvent(models.EvRegister, models.RegisterPayload{
		UserID: "vet-1", UserType: "superuser", Name: "Alex", Status: "invisible",
	}))

	conn := hub.Presence.Get("conn-a")
	require.NotNil(t, conn)
	assert.Equal(t, models.RoleUser, conn.Role)
	assert.Equal(t, models.StatusAvailable, conn.Status)

	ev, ok := client.Last(models.EvRegistered)
	require.True(t, ok)
	var p models.RegisteredPayload
	require.NoError(t, json.Unmarshal(ev.Data, &p))
	assert.Equal(t, "conn-a", p.ConnectionID)
	assert.Equal(t, "vet-1", p.UserID)
}

func TestHub_RegisterOfflineStatusPreserved(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)

	client := newMockClient("conn-a")
	hub.Clients["conn-a"] = client
	vet := connect(hub, "vet-conn", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)

	hub.Dispatch("conn-a", models.NewEvent(models.EvRegister, models.RegisterPayload{
		UserID: "c-1", UserType: "counsellor", Name: "Dana", Status: "offline",
	}))

	conn := hub.Presence.Get("conn-a")
	require.NotNil(t, conn)
	assert.Equal(t, models.StatusOffline, conn.Status)

	// An offline counsellor must not be a fan-out target.
	hub.Matcher.HandleRequest("vet-conn", models.RequestHumanChatPayload{UserName: "Alex", PreferredType: "counsellor"})
	_, ok := vet.Last(models.EvHumanChatUnavailable)
	assert.True(t, ok)
}

func TestHub_ReRegisterKeepsConnectionGaugeBalanced(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)

	client := newMockClient("conn-a")
	hub.Clients["conn-a"] = client

	userBefore := testutil.ToFloat64(metrics.ActiveConnections.WithLabelValues("user"))
	peerBefore := testutil.ToFloat64(metrics.ActiveConnections.WithLabelValues("peer"))

	register := models.RegisterPayload{UserID: "vet-1", UserType: "user", Name: "Alex", Status: "available"}
	hub.Dispatch("conn-a", models.NewEvent(models.EvRegister, register))
	hub.Dispatch("conn-a", models.NewEvent(models.EvRegister, register))

	assert.Equal(t, userBefore+1, testutil.ToFloat64(metrics.ActiveConnections.WithLabelValues("user")),
		"re-registering the same connection must not inflate the gauge")

	// A role change on re-register moves the connection between labels.
	register.UserType = "peer"
	hub.Dispatch("conn-a", models.NewEvent(models.EvRegister, register))
	assert.Equal(t, userBefore, testutil.ToFloat64(metrics.ActiveConnections.WithLabelValues("user")))
	assert.Equal(t, peerBefore+1, testutil.ToFloat64(metrics.ActiveConnections.WithLabelValues("peer")))
}

func TestHub_StaffRegistrationRefreshesDirectory(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)

	client := newMockClient("conn-a")
	hub.Clients["conn-a"] = client

	hub.Dispatch("conn-a", models.NewEvent(models.EvRegister, models.RegisterPayload{
		UserID: "c-1", UserType: "counsellor", Name: "Dana", Status: "available",
	}))

	time.Sleep(50 * time.Millisecond)
	storageMock.AssertCalled(t, "UpsertStaffProfile", mock.Anything)
}

func TestHub_UnknownEventAnswered(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)

	client := newMockClient("conn-a")
	hub.Clients["conn-a"] = client

	hub.Dispatch("conn-a", models.NewEvent("launch_missiles", nil))

	ev, ok := client.Last(models.EvError)
	require.True(t, ok)
	var p models.ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &p))
	assert.Equal(t, "unknown_event", p.Code)
}

func TestHub_MalformedPayloadAnswered(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)

	client := newMockClient("conn-a")
	hub.Clients["conn-a"] = client

	hub.Dispatch("conn-a", models.Event{Event: models.EvRegister, Data: json.RawMessage(`"not an object"`)})

	ev, ok := client.Last(models.EvError)
	require.True(t, ok)
	var p models.ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &p))
	assert.Equal(t, "bad_payload", p.Code)
	assert.Nil(t, hub.Presence.Get("conn-a"))
}

func TestHub_SendBridgesToRemoteConnections(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)

	// A request fan-out that targets presence hosted on another node goes
	// through the event bridge instead of a local send channel.
	vet := connect(hub, "vet-conn", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)
	hub.Presence.Register("remote-conn", "c-1", models.RoleCounsellor, "Dana", models.StatusAvailable)

	hub.Matcher.HandleRequest("vet-conn", models.RequestHumanChatPayload{UserName: "Alex", PreferredType: "counsellor"})

	_, ok := vet.Last(models.EvHumanChatPending)
	assert.True(t, ok)
	storageMock.AssertCalled(t, "PublishEvent", "remote-conn", mock.AnythingOfType("models.Event"))
}

func TestHub_DisconnectCascade(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)

	vet := connect(hub, "vet-conn", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)
	staff := connect(hub, "staff-conn", "c-1", models.RoleCounsellor, "Dana", models.StatusAvailable)

	// Match, open the room, then drop the vet's transport.
	hub.Matcher.HandleRequest("vet-conn", models.RequestHumanChatPayload{UserName: "Alex", PreferredType: "counsellor"})
	requestID := pendingRequestID(t, vet)
	hub.Matcher.HandleAccept("staff-conn", models.AcceptHumanChatPayload{RequestID: requestID})

	ev, ok := staff.Last(models.EvHumanChatAccepted)
	require.True(t, ok)
	var accepted models.HumanChatAcceptedPayload
	require.NoError(t, json.Unmarshal(ev.Data, &accepted))
	require.NoError(t, hub.Rooms.Join("vet-conn", models.JoinChatRoomPayload{RoomID: accepted.RoomID, UserID: "vet-1", Name: "Alex"}))
	require.NoError(t, hub.Rooms.Join("staff-conn", models.JoinChatRoomPayload{RoomID: accepted.RoomID, UserID: "c-1", Name: "Dana"}))
	staff.Drain()

	storageMock.On("GetActiveRoomIDs").Return([]string{}, nil)
	storageMock.On("SubscribeEvents").Return(nil)
	go hub.Run()
	hub.UnregisterCh <- hub.Clients["vet-conn"].(*MockClient)
	time.Sleep(100 * time.Millisecond)

	assert.Nil(t, hub.Presence.Get("vet-conn"))
	ev, ok = staff.Last(models.EvUserLeftChat)
	require.True(t, ok)
	var left models.UserLeftChatPayload
	require.NoError(t, json.Unmarshal(ev.Data, &left))
	assert.Equal(t, accepted.RoomID, left.RoomID)
}
