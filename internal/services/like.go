package services

import (
	"context"

	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LikeService struct {
	db    *gorm.DB
	guard *AccessGuard
}

func NewLikeService(db *gorm.DB, guard *AccessGuard) *LikeService {
	return &LikeService{db: db, guard: guard}
}

type LikeSummary struct {
	Count     int64 `json:"count"`
	LikedByMe bool  `json:"likedByMe"`
}

// Toggle likes the card if the user has not, and unlikes it otherwise. It
// returns whether the card is liked afterwards.
func (s *LikeService) Toggle(ctx context.Context, userID, cardID uint) (bool, error) {
	if _, err := s.guard.Card(ctx, userID, cardID, access.ActionView); err != nil {
		return false, err
	}

	liked := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND card_id = ?", userID, cardID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		like := models.Like{UserID: userID, CardID: cardID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
			return err
		}
		liked = true
		return nil
	})
	return liked, err
}

// Summary returns the like count and whether userID is among the likers.
func (s *LikeService) Summary(ctx context.Context, userID, cardID uint) (*LikeSummary, error) {
	if _, err := s.guard.Card(ctx, userID, cardID, access.ActionView); err != nil {
		return nil, err
	}

	summary := &LikeSummary{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Like{}).Where("card_id = ?", cardID).Count(&summary.Count).Error
	})
	g.Go(func() error {
		var mine int64
		if err := s.db.WithContext(gctx).Model(&models.Like{}).
			Where("card_id = ? AND user_id = ?", cardID, userID).
			Count(&mine).Error; err != nil {
			return err
		}
		summary.LikedByMe = mine > 0
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}
