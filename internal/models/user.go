package models

import (
	"time"
)

// User is a registered account. Users are never hard-deleted by the API.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	AvatarURL    *string   `gorm:"size:500" json:"avatarUrl"`
	Bio          *string   `gorm:"type:text" json:"bio"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }
