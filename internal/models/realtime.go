package models

import "encoding/json"

// Client-to-server event types.
const (
	EventUserOnline        = "user_online"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTyping            = "typing"
	EventStopTyping        = "stop_typing"
)

// Server-to-client event types.
const (
	EventUsersOnline    = "users_online"
	EventNewMessage     = "new_message"
	EventUserTyping     = "user_typing"
	EventUserStopTyping = "user_stop_typing"
)

// Event is the JSON envelope carried over the websocket and the Redis event
// channel. Message is kept opaque so the hub relays payloads without caring
// about their shape. SenderID is always set server-side from the
// authenticated connection, never trusted from the client.
type Event struct {
	Type           string          `json:"type"`
	ConversationID string          `json:"conversationId,omitempty"`
	SenderID       string          `json:"senderId,omitempty"`
	UserIDs        []string        `json:"userIds,omitempty"`
	Message        json.RawMessage `json:"message,omitempty"`
}
