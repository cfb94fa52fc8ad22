package chathub_test

import (
	"encoding/json"
	"testing"
	"time"

	"vetline/backend/internal/chathub"
	"vetline/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ringingCall initiates a call from the vet to the counsellor and returns
// the call id from the callee's incoming_call event.
func ringingCall(t *testing.T, hub *chathub.Hub) (string, *MockClient, *MockClient) {
	t.Helper()
	caller := connect(hub, "caller-conn", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)
	callee := connect(hub, "callee-conn", "c-1", models.RoleCounsellor, "Dana", models.StatusAvailable)

	hub.Calls.Initiate("caller-conn", models.CallInitiatePayload{
		TargetUserID: "c-1", CallerName: "Alex", CallType: "audio",
	})

	ev, ok := callee.Last(models.EvIncomingCall)
	require.True(t, ok, "callee did not receive incoming_call")
	var p models.IncomingCallPayload
	require.NoError(t, json.Unmarshal(ev.Data, &p))
	assert.Equal(t, "Alex", p.CallerName)
	assert.Equal(t, "audio", p.CallType)
	caller.Drain()
	return p.CallID, caller, callee
}

func TestCalls_InitiateUnreachableTargetFailsSynchronously(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	caller := connect(hub, "caller-conn", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)

	hub.Calls.Initiate("caller-conn", models.CallInitiatePayload{TargetUserID: "nobody"})

	ev, ok := caller.Last(models.EvCallFailed)
	require.True(t, ok)
	var p models.CallFailedPayload
	require.NoError(t, json.Unmarshal(ev.Data, &p))
	assert.NotEmpty(t, p.Message)
	assert.False(t, hub.Calls.IsEngaged("caller-conn"))
}

func TestCalls_InitiateTargetsNewestConnectionOfUser(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	connect(hub, "caller-conn", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)
	phone := connect(hub, "phone-conn", "c-1", models.RoleCounsellor, "Dana", models.StatusAvailable)
	tablet := connect(hub, "tablet-conn", "c-1", models.RoleCounsellor, "Dana", models.StatusAvailable)

	hub.Calls.Initiate("caller-conn", models.CallInitiatePayload{TargetUserID: "c-1"})

	_, ok := tablet.Last(models.EvIncomingCall)
	assert.True(t, ok, "the last-registered device rings")
	_, ok = phone.Last(models.EvIncomingCall)
	assert.False(t, ok, "older devices stay silent")
}

func TestCalls_EngagedTargetDeclinedSynchronously(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	ringingCall(t, hub)

	second := connect(hub, "second-conn", "vet-2", models.RoleUser, "Sasha", models.StatusAvailable)
	hub.Calls.Initiate("second-conn", models.CallInitiatePayload{TargetUserID: "c-1"})

	_, ok := second.Last(models.EvCallFailed)
	assert.True(t, ok)
}

func TestCalls_AcceptConnectsBothParties(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	callID, caller, callee := ringingCall(t, hub)

	hub.Calls.Accept("callee-conn", callID)

	ev, ok := callee.Last(models.EvCallAccepted)
	require.True(t, ok)
	var accepted models.CallAcceptedPayload
	require.NoError(t, json.Unmarshal(ev.Data, &accepted))
	assert.True(t, accepted.IsCallee)

	// Drain the caller once; Last would discard the frames that follow
	// its match.
	var connected models.CallConnectedPayload
	sawAccepted, sawConnected := false, false
	for _, ev := range caller.Drain() {
		switch ev.Event {
		case models.EvCallAccepted:
			require.NoError(t, json.Unmarshal(ev.Data, &accepted))
			assert.False(t, accepted.IsCallee)
			sawAccepted = true
		case models.EvCallConnected:
			require.NoError(t, json.Unmarshal(ev.Data, &connected))
			sawConnected = true
		}
	}
	require.True(t, sawAccepted, "caller did not receive call_accepted")
	require.True(t, sawConnected, "caller did not receive call_connected")

	// Both sides learn the in-call room and the peer's name.
	assert.Equal(t, "Dana", connected.PeerName)
	assert.NotEmpty(t, connected.RoomID)

	assert.True(t, hub.Calls.IsEngaged("caller-conn"))
	assert.True(t, hub.Calls.IsEngaged("callee-conn"))
}

func TestCalls_OnlyCalleeCanAccept(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	callID, caller, callee := ringingCall(t, hub)

	hub.Calls.Accept("caller-conn", callID)

	ev, ok := caller.Last(models.EvError)
	require.True(t, ok)
	var p models.ErrorPayload
	require.NoError(t, json.Unmarshal(ev.Data, &p))
	assert.NotEmpty(t, p.Message)
	assert.Empty(t, callee.Drain())
}

func TestCalls_RejectReachesCaller(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	callID, caller, _ := ringingCall(t, hub)

	hub.Calls.Reject("callee-conn", models.CallRejectPayload{CallID: callID, Reason: "busy"})

	ev, ok := caller.Last(models.EvCallRejected)
	require.True(t, ok)
	var p models.CallRejectedPayload
	require.NoError(t, json.Unmarshal(ev.Data, &p))
	assert.Equal(t, "busy", p.Reason)
	assert.False(t, hub.Calls.IsEngaged("caller-conn"))

	time.Sleep(50 * time.Millisecond)
	storageMock.AssertCalled(t, "SaveCallRecord", mock.MatchedBy(func(rec *models.CallRecord) bool {
		return rec.Outcome == models.CallOutcomeRejected
	}))
}

func TestCalls_HangupBeforeAnswerIsMissed(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	callID, _, callee := ringingCall(t, hub)

	hub.Calls.End("caller-conn", callID)

	_, ok := callee.Last(models.EvCallEnded)
	assert.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	storageMock.AssertCalled(t, "SaveCallRecord", mock.MatchedBy(func(rec *models.CallRecord) bool {
		return rec.Outcome == models.CallOutcomeMissed && rec.ConnectedAt == nil
	}))
}

func TestCalls_HangupAfterAnswerIsCompleted(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	callID, caller, _ := ringingCall(t, hub)

	hub.Calls.Accept("callee-conn", callID)
	hub.Calls.End("callee-conn", callID)

	_, ok := caller.Last(models.EvCallEnded)
	assert.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	storageMock.AssertCalled(t, "SaveCallRecord", mock.MatchedBy(func(rec *models.CallRecord) bool {
		return rec.Outcome == models.CallOutcomeCompleted && rec.ConnectedAt != nil
	}))
}

func TestCalls_HoldAndResume(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	callID, caller, callee := ringingCall(t, hub)
	hub.Calls.Accept("callee-conn", callID)
	caller.Drain()
	callee.Drain()

	hub.Calls.Hold("caller-conn", callID)
	_, ok := callee.Last(models.EvCallHeld)
	assert.True(t, ok)

	// Hold while held is dropped, not an error.
	hub.Calls.Hold("caller-conn", callID)
	assert.Empty(t, callee.Drain())

	hub.Calls.Resume("callee-conn", callID)
	_, ok = caller.Last(models.EvCallResumed)
	assert.True(t, ok)
}

func TestCalls_SignalingRelayedVerbatim(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	callID, caller, callee := ringingCall(t, hub)

	offer := models.NewEvent(models.EvWebRTCOffer, map[string]interface{}{
		"call_id": callID,
		"offer":   map[string]string{"type": "offer", "sdp": "v=0 fake sdp"},
	})
	hub.Calls.RelaySignal("caller-conn", offer)

	ev, ok := callee.Last(models.EvWebRTCOffer)
	require.True(t, ok)
	assert.JSONEq(t, string(offer.Data), string(ev.Data), "the payload passes through untouched")

	candidate := models.NewEvent(models.EvWebRTCIceCandidate, map[string]interface{}{
		"call_id":   callID,
		"candidate": map[string]string{"candidate": "candidate:1 1 udp 2130706431 10.0.0.1 54321 typ host"},
	})
	hub.Calls.RelaySignal("callee-conn", candidate)
	_, ok = caller.Last(models.EvWebRTCIceCandidate)
	assert.True(t, ok)
}

func TestCalls_SignalingAfterTerminalIsDropped(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	callID, caller, callee := ringingCall(t, hub)

	hub.Calls.End("caller-conn", callID)
	caller.Drain()
	callee.Drain()

	hub.Calls.RelaySignal("caller-conn", models.NewEvent(models.EvWebRTCIceCandidate, map[string]interface{}{
		"call_id": callID,
	}))

	assert.Empty(t, caller.Drain(), "late frames are dropped silently, no error storm")
	assert.Empty(t, callee.Drain())

	// Late control frames for the ended call are dropped the same way.
	hub.Calls.End("caller-conn", callID)
	hub.Calls.Accept("callee-conn", callID)
	hub.Calls.Hold("caller-conn", callID)
	assert.Empty(t, caller.Drain())
	assert.Empty(t, callee.Drain())
}

func TestCalls_SignalingForUnknownCallFails(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	caller := connect(hub, "caller-conn", "vet-1", models.RoleUser, "Alex", models.StatusAvailable)

	hub.Calls.RelaySignal("caller-conn", models.NewEvent(models.EvWebRTCOffer, map[string]interface{}{
		"call_id": "no-such-call",
	}))

	_, ok := caller.Last(models.EvCallFailed)
	assert.True(t, ok)
}

func TestCalls_DisconnectIsImplicitHangup(t *testing.T) {
	storageMock := new(MockStorage)
	hub, _ := newTestHub(storageMock)
	callID, caller, callee := ringingCall(t, hub)
	hub.Calls.Accept("callee-conn", callID)
	caller.Drain()
	callee.Drain()

	hub.Presence.Remove("callee-conn")
	hub.Calls.HandleDisconnect("callee-conn")

	ev, ok := caller.Last(models.EvCallEnded)
	require.True(t, ok)
	var p models.CallEndedPayload
	require.NoError(t, json.Unmarshal(ev.Data, &p))
	assert.Equal(t, callID, p.CallID)
	assert.False(t, hub.Calls.IsEngaged("caller-conn"))
}
