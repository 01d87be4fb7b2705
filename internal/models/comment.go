package models

import "time"

type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	AuthorID  uint      `gorm:"index;not null" json:"authorId"`
	Author    *User     `gorm:"foreignKey:AuthorID" json:"-"`
	CardID    uint      `gorm:"index;not null" json:"cardId"`
	Card      *Card     `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Comment) TableName() string { return "comments" }
