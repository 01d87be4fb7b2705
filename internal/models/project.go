package models

import (
	"time"

	"gorm.io/datatypes"
)

// Project is a workspace owned by exactly one user. OwnerID never changes
// after creation.
type Project struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	Name            string                      `gorm:"size:200;not null" json:"name"`
	ShortSummary    string                      `gorm:"size:500;not null" json:"shortSummary"`
	FullDescription string                      `gorm:"type:text" json:"fullDescription"`
	Tags            datatypes.JSONSlice[string] `json:"tags"`
	InviteToken     string                      `gorm:"uniqueIndex;size:64;not null" json:"joinLink"`
	OwnerID         uint                        `gorm:"index;not null" json:"ownerId"`
	Owner           *User                       `gorm:"foreignKey:OwnerID" json:"-"`
	CreatedAt       time.Time                   `json:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt"`
}

func (Project) TableName() string { return "projects" }

// IsOwner reports whether userID owns the project.
func (p *Project) IsOwner(userID uint) bool {
	return p != nil && userID != 0 && p.OwnerID == userID
}
