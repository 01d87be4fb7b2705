package models

import (
	"strings"
	"time"
)

type CardType string

const (
	CardFeature CardType = "FEATURE"
	CardBug     CardType = "BUG"
	CardIdea    CardType = "IDEA"
	CardSketch  CardType = "SKETCH"
)

// ParseCardType validates a card type. Matching is case-insensitive so that
// older clients sending "Feature" keep working.
func ParseCardType(s string) (CardType, bool) {
	switch CardType(strings.ToUpper(strings.TrimSpace(s))) {
	case CardFeature:
		return CardFeature, true
	case CardBug:
		return CardBug, true
	case CardIdea:
		return CardIdea, true
	case CardSketch:
		return CardSketch, true
	}
	return "", false
}

// Card is a feature/bug/idea/sketch item belonging to a project.
type Card struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Type        CardType  `gorm:"size:20;not null" json:"type"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	ImageRef    *string   `gorm:"size:500" json:"imageRef"`
	Completed   bool      `gorm:"not null;default:false" json:"completed"`
	ProjectID   uint      `gorm:"index;not null" json:"projectId"`
	Project     *Project  `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	AuthorID    uint      `gorm:"index;not null" json:"authorId"`
	Author      *User     `gorm:"foreignKey:AuthorID" json:"-"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (Card) TableName() string { return "cards" }
