package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Conversation groups messages between exactly two users, optionally scoped
// to one listing. The (ParticipantKey, ListingID) unique index makes
// get-or-create races resolve to a single row: the loser's insert fails and
// it re-reads the winner's conversation.
type Conversation struct {
	ID             string         `gorm:"primaryKey" json:"id"`
	ParticipantIDs pq.StringArray `gorm:"type:text[];not null" json:"participantIds"`
	ParticipantKey string         `gorm:"not null;uniqueIndex:idx_conversation_pair_listing" json:"-"`
	// ListingID is empty for general conversations. A listing-scoped
	// conversation between the same two users is a distinct row.
	ListingID string `gorm:"uniqueIndex:idx_conversation_pair_listing" json:"listingId,omitempty"`

	// Denormalized inbox preview, refreshed on every send. Absent until the
	// first message.
	LastMessageText     string     `json:"-"`
	LastMessageSenderID string     `json:"-"`
	LastMessageAt       *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `gorm:"index" json:"updatedAt"`
}

// BeforeCreate fills in the UUID and the order-insensitive participant key.
func (c *Conversation) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.ParticipantKey == "" && len(c.ParticipantIDs) == 2 {
		c.ParticipantKey = PairKey(c.ParticipantIDs[0], c.ParticipantIDs[1])
	}
	return
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// LastMessage returns the preview snapshot, or nil before the first message.
func (c *Conversation) LastMessage() *LastMessage {
	if c.LastMessageAt == nil {
		return nil
	}
	return &LastMessage{
		Text:      c.LastMessageText,
		SenderID:  c.LastMessageSenderID,
		CreatedAt: *c.LastMessageAt,
	}
}

// LastMessage is the denormalized preview stored on a conversation so the
// inbox renders without loading full message history.
type LastMessage struct {
	Text      string    `json:"text"`
	SenderID  string    `json:"senderId"`
	CreatedAt time.Time `json:"createdAt"`
}

// PairKey builds the order-insensitive lookup key for a participant pair.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// TruncateRunes shortens s to at most n runes. Truncation is rune-based so a
// multi-byte character is never split.
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
