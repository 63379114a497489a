package chathub_test

import (
	"context"

	"campusmarket/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockStorage mocks the chathub.Storage interface (presence registry and
// event channel).
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) AddOnlineUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStorage) RemoveOnlineUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockStorage) OnlineUsers(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) PublishEvent(ctx context.Context, ev models.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

// SubscribeEvents returns nil in tests: no broker, so the hub relies on the
// local fallback delivery path.
func (m *MockStorage) SubscribeEvents(ctx context.Context) *redis.PubSub {
	return nil
}

// MockClient is a test double for a realtime connection with a buffered
// receive channel.
type MockClient struct {
	userID string
	Recv   chan models.Event
}

func newMockClient(userID string) *MockClient {
	return &MockClient{
		userID: userID,
		Recv:   make(chan models.Event, 16),
	}
}

func (c *MockClient) GetUserID() string                   { return c.userID }
func (c *MockClient) GetSendChannel() chan<- models.Event { return c.Recv }
func (c *MockClient) Run()                                {}
func (c *MockClient) Close()                              { close(c.Recv) }

// drain collects every event currently buffered on the client.
func (c *MockClient) drain() []models.Event {
	var events []models.Event
	for {
		select {
		case ev := <-c.Recv:
			events = append(events, ev)
		default:
			return events
		}
	}
}
