// Package chathub relays ephemeral realtime events: presence, typing
// indicators, and message-arrival notifications. Nothing here is durable;
// REST writes succeed whether or not a relay goes through.
package chathub

import (
	"context"
	"encoding/json"
	"log"

	"campusmarket/backend/internal/models"
)

// ManagerService is the hub. All maps are owned by the Run goroutine and
// mutated only through the channels, so no locking is needed. A server
// restart clears all presence state; clients re-announce on reconnect.
type ManagerService struct {
	// Clients maps userID to its tracked connection. A user has at most one
	// tracked connection; the last one registered wins.
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client
	EventCh      chan ClientEvent
	// PubSubCh carries events arriving from the Redis channel, including the
	// ones this instance published itself. Buffered so the local fallback
	// path never blocks the Run loop.
	PubSubCh chan models.Event

	Storage Storage

	rooms  map[string]map[Client]struct{}
	joined map[Client]map[string]struct{}
	ctx    context.Context
}

func NewManagerService(s Storage) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		EventCh:      make(chan ClientEvent),
		PubSubCh:     make(chan models.Event, 64),
		Storage:      s,
		rooms:        make(map[string]map[Client]struct{}),
		joined:       make(map[Client]map[string]struct{}),
		ctx:          context.Background(),
	}
}

// Run is the hub dispatcher. Start it once, as a goroutine, at process start.
func (m *ManagerService) Run() {
	m.startPubSubListener()

	for {
		select {
		case client := <-m.RegisterCh:
			m.Clients[client.GetUserID()] = client

		case client := <-m.UnregisterCh:
			m.removeClient(client)

		case ev := <-m.EventCh:
			m.handleClientEvent(ev)

		case ev := <-m.PubSubCh:
			m.deliver(ev)
		}
	}
}

// RelayMessage mirrors a durably stored message onto the realtime channel so
// the recipient's open chat window updates without polling. Safe to call
// from any goroutine; failures are logged, never returned.
func (m *ManagerService) RelayMessage(conversationID, senderID string, payload json.RawMessage) {
	m.publish(models.Event{
		Type:           models.EventNewMessage,
		ConversationID: conversationID,
		SenderID:       senderID,
		Message:        payload,
	})
}

func (m *ManagerService) handleClientEvent(ev ClientEvent) {
	userID := ev.Client.GetUserID()

	switch ev.Event.Type {
	case models.EventUserOnline:
		m.Clients[userID] = ev.Client
		if err := m.Storage.AddOnlineUser(m.ctx, userID); err != nil {
			log.Printf("ERROR: register %s in presence set: %v", userID, err)
		}
		m.broadcastOnlineList()

	case models.EventJoinConversation:
		m.joinRoom(ev.Client, ev.Event.ConversationID)

	case models.EventLeaveConversation:
		m.leaveRoom(ev.Client, ev.Event.ConversationID)

	case models.EventSendMessage:
		m.publish(models.Event{
			Type:           models.EventNewMessage,
			ConversationID: ev.Event.ConversationID,
			SenderID:       userID,
			Message:        ev.Event.Message,
		})

	case models.EventTyping:
		m.publish(models.Event{
			Type:           models.EventUserTyping,
			ConversationID: ev.Event.ConversationID,
			SenderID:       userID,
		})

	case models.EventStopTyping:
		m.publish(models.Event{
			Type:           models.EventUserStopTyping,
			ConversationID: ev.Event.ConversationID,
			SenderID:       userID,
		})

	default:
		log.Printf("unknown client event %q from %s", ev.Event.Type, userID)
	}
}

func (m *ManagerService) joinRoom(client Client, conversationID string) {
	if conversationID == "" {
		return
	}
	if m.rooms[conversationID] == nil {
		m.rooms[conversationID] = make(map[Client]struct{})
	}
	m.rooms[conversationID][client] = struct{}{}

	if m.joined[client] == nil {
		m.joined[client] = make(map[string]struct{})
	}
	m.joined[client][conversationID] = struct{}{}
}

func (m *ManagerService) leaveRoom(client Client, conversationID string) {
	if room, ok := m.rooms[conversationID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(m.rooms, conversationID)
		}
	}
	delete(m.joined[client], conversationID)
}

func (m *ManagerService) removeClient(client Client) {
	userID := client.GetUserID()

	// Only drop presence if this connection is still the tracked one; a
	// newer connection for the same user keeps the user online.
	if current, ok := m.Clients[userID]; ok && current == client {
		delete(m.Clients, userID)
		if err := m.Storage.RemoveOnlineUser(m.ctx, userID); err != nil {
			log.Printf("ERROR: remove %s from presence set: %v", userID, err)
		}
		m.broadcastOnlineList()
	}

	for conversationID := range m.joined[client] {
		if room, ok := m.rooms[conversationID]; ok {
			delete(room, client)
			if len(room) == 0 {
				delete(m.rooms, conversationID)
			}
		}
	}
	delete(m.joined, client)
}

// broadcastOnlineList pushes the full online-user-id list to every connected
// client on every instance.
func (m *ManagerService) broadcastOnlineList() {
	ids, err := m.Storage.OnlineUsers(m.ctx)
	if err != nil {
		log.Printf("ERROR: read presence set: %v", err)
		ids = make([]string, 0, len(m.Clients))
		for id := range m.Clients {
			ids = append(ids, id)
		}
	}
	m.publish(models.Event{Type: models.EventUsersOnline, UserIDs: ids})
}

// publish sends an event through Redis so every instance (this one included)
// delivers it to its local subscribers. If Redis is unavailable the event is
// fed straight into the local delivery queue; single-instance deployments
// keep working without the broker.
func (m *ManagerService) publish(ev models.Event) {
	if err := m.Storage.PublishEvent(m.ctx, ev); err != nil {
		log.Printf("ERROR: publish %s event: %v, delivering locally", ev.Type, err)
		select {
		case m.PubSubCh <- ev:
		default:
			log.Printf("WARN: local event queue full, dropping %s event", ev.Type)
		}
	}
}

// deliver pushes an event to the relevant local connections. Room events
// skip the sender's own connection: the sender already has the data from the
// REST response or its own input.
func (m *ManagerService) deliver(ev models.Event) {
	if ev.Type == models.EventUsersOnline {
		for _, client := range m.Clients {
			m.send(client, ev)
		}
		return
	}

	for client := range m.rooms[ev.ConversationID] {
		if client.GetUserID() == ev.SenderID {
			continue
		}
		m.send(client, ev)
	}
}

func (m *ManagerService) send(client Client, ev models.Event) {
	select {
	case client.GetSendChannel() <- ev:
	default:
		// Slow consumer. Relay is best-effort, so drop rather than block
		// the dispatcher.
		log.Printf("WARN: dropping %s event for slow client %s", ev.Type, client.GetUserID())
	}
}
