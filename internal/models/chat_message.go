package models

import "time"

// ChatMessage is append-only and ordered by (CreatedAt, ID) within a project.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	SenderID  uint      `gorm:"index;not null" json:"senderId"`
	Sender    *User     `gorm:"foreignKey:SenderID" json:"-"`
	ProjectID uint      `gorm:"index:idx_chat_project_created;not null" json:"projectId"`
	Project   *Project  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time `gorm:"index:idx_chat_project_created" json:"createdAt"`
}

func (ChatMessage) TableName() string { return "chat_messages" }
