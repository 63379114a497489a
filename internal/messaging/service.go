// Package messaging implements the durable half of the chat system:
// conversation resolution, the message log with read receipts, and the
// unread counter. Realtime relay is the hub's job; callers mirror writes
// there themselves.
package messaging

import (
	"context"
	"errors"
	"log"
	"strings"
	"unicode/utf8"

	"campusmarket/backend/internal/apperr"
	"campusmarket/backend/internal/config"
	"campusmarket/backend/internal/models"
	"campusmarket/backend/internal/store"

	"github.com/lib/pq"
)

// Storage is the slice of the store the messaging service depends on.
// *store.Service satisfies it; tests substitute a mock.
type Storage interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetListingByID(ctx context.Context, id string) (*models.Listing, error)

	GetConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	FindConversation(ctx context.Context, participantKey, listingID string) (*models.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	UpdateConversationSnapshot(ctx context.Context, id string, preview models.LastMessage) error

	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	MarkMessagesRead(ctx context.Context, conversationID, readerID string) (int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}

type Service struct {
	Storage Storage
}

func NewService(s Storage) *Service {
	return &Service{Storage: s}
}

// ConversationView is a conversation enriched with participant profiles and,
// when listing-scoped, the listing preview.
type ConversationView struct {
	models.Conversation
	LastMessage  *models.LastMessage    `json:"lastMessage"`
	Participants []models.UserSummary   `json:"participants"`
	Listing      *models.ListingSummary `json:"listing,omitempty"`
}

// MessageView is a message with its sender's profile attached.
type MessageView struct {
	models.Message
	Sender models.UserSummary `json:"sender"`
}

// SentMessage is the result of SendMessage. RecipientID lets the caller
// route the notification without re-reading the conversation.
type SentMessage struct {
	MessageView
	RecipientID string `json:"-"`
}

// GetOrCreateConversation resolves the unique conversation between the
// current user and recipient, scoped to listingID (empty for general chat).
// Idempotent: a second call with the same arguments returns the same row.
// Concurrent first calls race on the (pair, listing) unique index; the loser
// re-reads the winner's row.
func (s *Service) GetOrCreateConversation(ctx context.Context, currentUserID, recipientID, listingID string) (*ConversationView, error) {
	if recipientID == "" {
		return nil, apperr.New(apperr.InvalidRequest, "Recipient required")
	}
	if recipientID == currentUserID {
		return nil, apperr.New(apperr.InvalidRequest, "Cannot message yourself")
	}

	key := models.PairKey(currentUserID, recipientID)
	conv, err := s.Storage.FindConversation(ctx, key, listingID)
	if errors.Is(err, store.ErrNotFound) {
		conv = &models.Conversation{
			ParticipantIDs: pq.StringArray{currentUserID, recipientID},
			ListingID:      listingID,
		}
		if createErr := s.Storage.CreateConversation(ctx, conv); createErr != nil {
			// Lost a create race: the unique index rejected the insert, so
			// the conversation must exist now.
			existing, findErr := s.Storage.FindConversation(ctx, key, listingID)
			if findErr != nil {
				return nil, apperr.Wrap(apperr.Internal, "Server error", createErr)
			}
			conv = existing
		}
	} else if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Server error", err)
	}

	view := s.enrichConversation(ctx, conv)
	return &view, nil
}

// ListConversations returns the user's inbox, newest activity first.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]ConversationView, error) {
	convs, err := s.Storage.ListConversationsForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Server error", err)
	}

	views := make([]ConversationView, 0, len(convs))
	for i := range convs {
		views = append(views, s.enrichConversation(ctx, &convs[i]))
	}
	return views, nil
}

// ListMessages returns the conversation's messages ascending by creation
// time and, as a side effect, marks every message addressed to the requester
// as read. The mark-read batch is a single UPDATE; if it fails the messages
// are still returned and the failure is only logged.
func (s *Service) ListMessages(ctx context.Context, conversationID, requesterID string) ([]MessageView, error) {
	conv, err := s.getParticipantConversation(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}

	msgs, err := s.Storage.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Server error", err)
	}

	senders := make(map[string]models.UserSummary, 2)
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		sender, ok := senders[m.SenderID]
		if !ok {
			sender = s.userSummary(ctx, m.SenderID)
			senders[m.SenderID] = sender
		}
		views = append(views, MessageView{Message: m, Sender: sender})
	}

	if _, err := s.Storage.MarkMessagesRead(ctx, conv.ID, requesterID); err != nil {
		log.Printf("ERROR: mark messages read in conversation %s: %v", conv.ID, err)
	}

	return views, nil
}

// SendMessage validates and persists a message, then refreshes the parent
// conversation's last-message snapshot. If the snapshot update fails the
// message still stands; the inbox preview is stale until the next send.
func (s *Service) SendMessage(ctx context.Context, conversationID, senderID, text string) (*SentMessage, error) {
	conv, err := s.getParticipantConversation(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.InvalidRequest, "Message cannot be empty")
	}
	if utf8.RuneCountInString(text) > config.MaxMessageLength {
		return nil, apperr.New(apperr.InvalidRequest, "Message too long")
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
	}
	if err := s.Storage.CreateMessage(ctx, msg); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Server error", err)
	}

	preview := models.LastMessage{
		Text:      models.TruncateRunes(text, config.LastMessagePreviewLength),
		SenderID:  senderID,
		CreatedAt: msg.CreatedAt,
	}
	if err := s.Storage.UpdateConversationSnapshot(ctx, conv.ID, preview); err != nil {
		log.Printf("ERROR: update snapshot for conversation %s: %v", conv.ID, err)
	}

	recipientID := ""
	for _, id := range conv.ParticipantIDs {
		if id != senderID {
			recipientID = id
		}
	}

	return &SentMessage{
		MessageView: MessageView{Message: *msg, Sender: s.userSummary(ctx, senderID)},
		RecipientID: recipientID,
	}, nil
}

// UnreadCount recomputes the user's total unread messages on demand; nothing
// is persisted, so the value is always consistent with the message log.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	n, err := s.Storage.CountUnread(ctx, userID)
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "Server error", err)
	}
	return n, nil
}

func (s *Service) getParticipantConversation(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	conv, err := s.Storage.GetConversationByID(ctx, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Conversation not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Server error", err)
	}
	if !conv.HasParticipant(userID) {
		return nil, apperr.New(apperr.Forbidden, "Not authorized")
	}
	return conv, nil
}

func (s *Service) enrichConversation(ctx context.Context, conv *models.Conversation) ConversationView {
	view := ConversationView{
		Conversation: *conv,
		LastMessage:  conv.LastMessage(),
		Participants: make([]models.UserSummary, 0, len(conv.ParticipantIDs)),
	}
	for _, id := range conv.ParticipantIDs {
		view.Participants = append(view.Participants, s.userSummary(ctx, id))
	}
	if conv.ListingID != "" {
		if listing, err := s.Storage.GetListingByID(ctx, conv.ListingID); err == nil {
			summary := listing.Summary()
			view.Listing = &summary
		}
	}
	return view
}

// userSummary resolves a participant profile, degrading to a placeholder for
// deleted accounts so old conversations still render.
func (s *Service) userSummary(ctx context.Context, id string) models.UserSummary {
	u, err := s.Storage.GetUserByID(ctx, id)
	if err != nil {
		return models.UserSummary{ID: id, Name: "Student"}
	}
	return u.Summary()
}
