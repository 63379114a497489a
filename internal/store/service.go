// Package store provides durable persistence (PostgreSQL via GORM) plus the
// Redis-backed presence registry and event channel shared by all server
// instances.
package store

import (
	"context"
	"encoding/json"

	"campusmarket/backend/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	onlineUsersKey = "online_users"
	eventsChannel  = "chat:events"
)

// Service is the concrete storage backend. Consumers depend on their own
// narrow interfaces (messaging.Storage, chathub.Storage, ...), all satisfied
// by this type.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client

	users         *Repository[models.User]
	listings      *Repository[models.Listing]
	conversations *Repository[models.Conversation]
	messages      *Repository[models.Message]
	notifications *Repository[models.Notification]
}

func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:            db,
		Redis:         rdb,
		users:         NewRepository[models.User](db),
		listings:      NewRepository[models.Listing](db),
		conversations: NewRepository[models.Conversation](db),
		messages:      NewRepository[models.Message](db),
		notifications: NewRepository[models.Notification](db),
	}
}

// Migrate creates or updates the schema for every model the service owns.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.Listing{},
		&models.Conversation{},
		&models.Message{},
		&models.Notification{},
	)
}

// --- Users and listings (read-only collaborators) ---

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.users.Get(ctx, id)
}

func (s *Service) GetListingByID(ctx context.Context, id string) (*models.Listing, error) {
	return s.listings.Get(ctx, id)
}

// --- Conversations ---

func (s *Service) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	return s.conversations.Get(ctx, id)
}

// FindConversation looks up the unique conversation for a participant pair
// and listing scope. ListingID is empty for general conversations.
func (s *Service) FindConversation(ctx context.Context, participantKey, listingID string) (*models.Conversation, error) {
	convs, err := s.conversations.Query(ctx, Query{
		Filters: []Filter{Eq("participant_key", participantKey), Eq("listing_id", listingID)},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, ErrNotFound
	}
	return &convs[0], nil
}

func (s *Service) ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	return s.conversations.Query(ctx, Query{
		Filters: []Filter{Contains("participant_ids", userID)},
		OrderBy: "updated_at DESC",
	})
}

func (s *Service) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return s.conversations.Add(ctx, conv)
}

// UpdateConversationSnapshot refreshes the denormalized last-message preview.
// GORM also bumps updated_at, which drives inbox ordering.
func (s *Service) UpdateConversationSnapshot(ctx context.Context, id string, preview models.LastMessage) error {
	return s.conversations.Update(ctx, id, map[string]any{
		"last_message_text":      preview.Text,
		"last_message_sender_id": preview.SenderID,
		"last_message_at":        preview.CreatedAt,
	})
}

// --- Messages ---

func (s *Service) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	return s.messages.Query(ctx, Query{
		Filters: []Filter{Eq("conversation_id", conversationID)},
		OrderBy: "created_at ASC",
	})
}

func (s *Service) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.messages.Add(ctx, msg)
}

// MarkMessagesRead flips read=true on every unread message in the
// conversation not sent by readerID. A single UPDATE, so the batch is
// all-or-nothing.
func (s *Service) MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error) {
	res := s.DB.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND read = ?", conversationID, readerID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// CountUnread totals unread messages addressed to userID across all of the
// user's conversations.
func (s *Service) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.DB.WithContext(ctx).Model(&models.Message{}).
		Joins("JOIN conversations c ON c.id = messages.conversation_id").
		Where("? = ANY(c.participant_ids)", userID).
		Where("messages.sender_id <> ? AND messages.read = ?", userID, false).
		Count(&n).Error
	return n, err
}

// --- Notifications ---

func (s *Service) CreateNotification(ctx context.Context, n *models.Notification) error {
	return s.notifications.Add(ctx, n)
}

func (s *Service) ListNotifications(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	return s.notifications.Query(ctx, Query{
		Filters: []Filter{Eq("user_id", userID)},
		OrderBy: "created_at DESC",
		Limit:   limit,
	})
}

func (s *Service) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	return s.notifications.Count(ctx, Eq("user_id", userID), Eq("read", false))
}

// MarkNotificationRead scopes the update to the owner so one user cannot
// acknowledge another's notifications.
func (s *Service) MarkNotificationRead(ctx context.Context, id, userID string) error {
	res := s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	return s.DB.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true).Error
}

// --- Presence registry and event fan-out (Redis) ---

func (s *Service) AddOnlineUser(ctx context.Context, userID string) error {
	return s.Redis.SAdd(ctx, onlineUsersKey, userID).Err()
}

func (s *Service) RemoveOnlineUser(ctx context.Context, userID string) error {
	return s.Redis.SRem(ctx, onlineUsersKey, userID).Err()
}

func (s *Service) OnlineUsers(ctx context.Context) ([]string, error) {
	return s.Redis.SMembers(ctx, onlineUsersKey).Result()
}

// PublishEvent fans a realtime event out to every server instance.
func (s *Service) PublishEvent(ctx context.Context, ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, eventsChannel, payload).Err()
}

// SubscribeEvents returns the pub/sub subscription the hub consumes.
func (s *Service) SubscribeEvents(ctx context.Context) *redis.PubSub {
	return s.Redis.Subscribe(ctx, eventsChannel)
}
