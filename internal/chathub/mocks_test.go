package chathub_test

import (
	"time"

	"vetline/backend/internal/chathub"
	"vetline/backend/internal/config"
	"vetline/backend/internal/messages"
	"vetline/backend/internal/models"
	"vetline/backend/internal/notify"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of the storage.Storage interface.
// It uses testify/mock to allow flexible expectation setting in tests.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) SaveRoomRecord(room *models.RoomRecord) error {
	args := m.Called(room)
	return args.Error(0)
}

func (m *MockStorage) CloseRoomRecord(roomID string) error {
	args := m.Called(roomID)
	return args.Error(0)
}

func (m *MockStorage) GetActiveRoomIDs() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) SaveCallRecord(rec *models.CallRecord) error {
	args := m.Called(rec)
	return args.Error(0)
}

func (m *MockStorage) SaveCallback(cb *models.CallbackRequest) error {
	args := m.Called(cb)
	return args.Error(0)
}

func (m *MockStorage) ListOpenCallbacks() ([]models.CallbackRequest, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CallbackRequest), args.Error(1)
}

func (m *MockStorage) MarkCallbackContacted(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockStorage) UpsertStaffProfile(p *models.StaffProfile) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockStorage) ListStaffByRole(role string) ([]models.StaffProfile, error) {
	args := m.Called(role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StaffProfile), args.Error(1)
}

func (m *MockStorage) PublishEvent(connectionID string, ev models.Event) error {
	args := m.Called(connectionID, ev)
	return args.Error(0)
}

func (m *MockStorage) SubscribeEvents() *redis.PubSub {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*redis.PubSub)
}

// MockClient is a test double for the chathub.Client interface.
type MockClient struct {
	connID string
	send   chan models.Event
	closed bool
}

func newMockClient(connID string) *MockClient {
	return &MockClient{
		connID: connID,
		send:   make(chan models.Event, 32), // Buffered to prevent blocking in tests
	}
}

func (c *MockClient) GetConnectionID() string { return c.connID }

func (c *MockClient) GetSendChannel() chan<- models.Event { return c.send }

func (c *MockClient) Run() {}

func (c *MockClient) Close() { c.closed = true }

// Drain empties the client's send buffer and returns everything it held.
func (c *MockClient) Drain() []models.Event {
	var events []models.Event
	for {
		select {
		case ev := <-c.send:
			events = append(events, ev)
		default:
			return events
		}
	}
}

// Last returns the most recent event matching name, or a zero Event.
func (c *MockClient) Last(name string) (models.Event, bool) {
	var found models.Event
	ok := false
	for _, ev := range c.Drain() {
		if ev.Event == name {
			found = ev
			ok = true
		}
	}
	return found, ok
}

// mockSink records persisted chat messages for assertion.
type mockSink struct {
	messages []models.ChatMessage
}

func (s *mockSink) PersistMessage(msg models.ChatMessage) {
	s.messages = append(s.messages, msg)
}

// newTestHub builds a hub on a MockStorage with the archival writes that
// happen on background goroutines already stubbed out.
func newTestHub(storageMock *MockStorage) (*chathub.Hub, *mockSink) {
	storageMock.On("SaveRoomRecord", mock.Anything).Return(nil).Maybe()
	storageMock.On("CloseRoomRecord", mock.Anything).Return(nil).Maybe()
	storageMock.On("SaveCallRecord", mock.Anything).Return(nil).Maybe()
	storageMock.On("UpsertStaffProfile", mock.Anything).Return(nil).Maybe()
	storageMock.On("PublishEvent", mock.Anything, mock.Anything).Return(nil).Maybe()

	msgs, _ := messages.NewCatalog("")
	sink := &mockSink{}
	cfg := &config.Config{
		MatchTimeout:   time.Minute,
		AllowObservers: false,
	}
	return chathub.New(storageMock, sink, notify.Nop{}, msgs, cfg), sink
}

// connect registers a presence record and attaches a local mock client for
// the same connection id.
func connect(h *chathub.Hub, connID, userID string, role models.Role, name string, status models.Availability) *MockClient {
	client := newMockClient(connID)
	h.Clients[connID] = client
	h.Presence.Register(connID, userID, role, name, status)
	return client
}
