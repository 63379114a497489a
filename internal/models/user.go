package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a marketplace account. The messaging layer only reads users;
// registration and profile editing belong to the auth service.
type User struct {
	ID      string `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"not null" json:"name"`
	Email   string `gorm:"uniqueIndex;not null" json:"email"`
	Avatar  string `json:"avatar"`
	College string `json:"college"`
	Year    string `json:"year"`
	Role    string `gorm:"default:user" json:"role"`
}

// BeforeCreate generates a UUID for the user if one is not already set.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// UserSummary is the public profile slice attached to conversations
// and messages.
type UserSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Avatar  string `json:"avatar"`
	College string `json:"college"`
	Year    string `json:"year"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:      u.ID,
		Name:    u.Name,
		Avatar:  u.Avatar,
		College: u.College,
		Year:    u.Year,
	}
}
