package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a single chat message. Immutable after creation except for the
// Read flag, which flips when the non-sender loads the conversation.
type Message struct {
	ID             string    `gorm:"primaryKey" json:"id"`
	ConversationID string    `gorm:"not null;index:idx_message_conv_created" json:"conversationId"`
	SenderID       string    `gorm:"not null" json:"senderId"`
	Text           string    `gorm:"type:text;not null" json:"text"`
	Read           bool      `gorm:"default:false" json:"read"`
	CreatedAt      time.Time `gorm:"index:idx_message_conv_created" json:"createdAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
