package models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Listing is a marketplace item a conversation can be scoped to. Listing CRUD
// lives in its own service; messaging only reads listings for previews.
type Listing struct {
	ID       string         `gorm:"primaryKey" json:"id"`
	SellerID string         `gorm:"index;not null" json:"sellerId"`
	Title    string         `gorm:"not null" json:"title"`
	Price    float64        `json:"price"`
	Images   pq.StringArray `gorm:"type:text[]" json:"images"`
}

func (l *Listing) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return
}

// ListingSummary is the preview attached to a listing-scoped conversation.
type ListingSummary struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Images pq.StringArray `json:"images"`
	Price  float64        `json:"price"`
}

func (l *Listing) Summary() ListingSummary {
	return ListingSummary{ID: l.ID, Title: l.Title, Images: l.Images, Price: l.Price}
}
