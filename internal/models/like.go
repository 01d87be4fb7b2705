package models

import "time"

// Like marks that a user liked a card. Existence is the whole state.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_like_user_card;not null" json:"userId"`
	CardID    uint      `gorm:"uniqueIndex:idx_like_user_card;index;not null" json:"cardId"`
	Card      *Card     `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Like) TableName() string { return "likes" }
