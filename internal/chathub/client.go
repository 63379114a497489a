package chathub

import (
	"context"

	"campusmarket/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Client is one active realtime connection. It abstracts the underlying
// transport so the hub can manage websocket clients and test doubles
// uniformly.
type Client interface {
	// GetUserID returns the authenticated user behind the connection.
	GetUserID() string

	// GetSendChannel returns the channel the hub pushes outbound events to.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()

	// Close shuts down the client's send channel and connection.
	Close()
}

// ClientEvent pairs an inbound event with the connection that sent it, so
// the hub can resolve room membership and exclude the sender from relays.
type ClientEvent struct {
	Client Client
	Event  models.Event
}

// Storage is the slice of the store the hub depends on: the shared presence
// registry and the cross-instance event channel.
type Storage interface {
	AddOnlineUser(ctx context.Context, userID string) error
	RemoveOnlineUser(ctx context.Context, userID string) error
	OnlineUsers(ctx context.Context) ([]string, error)
	PublishEvent(ctx context.Context, ev models.Event) error
	SubscribeEvents(ctx context.Context) *redis.PubSub
}
