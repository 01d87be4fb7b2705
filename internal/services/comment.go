package services

import (
	"context"
	"strings"
	"time"

	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

type CommentService struct {
	db    *gorm.DB
	guard *AccessGuard
}

func NewCommentService(db *gorm.DB, guard *AccessGuard) *CommentService {
	return &CommentService{db: db, guard: guard}
}

type CommentView struct {
	ID         uint      `json:"id"`
	Content    string    `json:"content"`
	AuthorID   uint      `json:"authorId"`
	AuthorName string    `json:"authorName"`
	CardID     uint      `json:"cardId"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toCommentView(c *models.Comment) CommentView {
	v := CommentView{
		ID:         c.ID,
		Content:    c.Content,
		AuthorID:   c.AuthorID,
		AuthorName: "Unknown",
		CardID:     c.CardID,
		CreatedAt:  c.CreatedAt,
	}
	if c.Author != nil {
		v.AuthorName = c.Author.Name
	}
	return v
}

// List returns a card's comments, oldest first.
func (s *CommentService) List(ctx context.Context, userID, cardID uint) ([]CommentView, error) {
	if _, err := s.guard.Card(ctx, userID, cardID, access.ActionView); err != nil {
		return nil, err
	}

	var comments []models.Comment
	if err := s.db.WithContext(ctx).
		Preload("Author").
		Where("card_id = ?", cardID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}

	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		views = append(views, toCommentView(&comments[i]))
	}
	return views, nil
}

func (s *CommentService) Create(ctx context.Context, userID, cardID uint, content string) (*CommentView, error) {
	if _, err := s.guard.Card(ctx, userID, cardID, access.ActionView); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, response.NewBadRequest("content is required").WithReason(string(access.ReasonInvalidInput))
	}

	comment := models.Comment{Content: content, AuthorID: userID, CardID: cardID}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, err
	}
	return s.reload(ctx, comment.ID)
}

// Update replaces the comment text. Author or project owner only.
func (s *CommentService) Update(ctx context.Context, userID, commentID uint, content string) (*CommentView, error) {
	grant, err := s.guard.Comment(ctx, userID, commentID, access.ActionEdit)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, response.NewBadRequest("content is required").WithReason(string(access.ReasonInvalidInput))
	}

	if err := s.db.WithContext(ctx).Model(grant.Comment).Update("content", content).Error; err != nil {
		return nil, err
	}
	return s.reload(ctx, commentID)
}

// Delete removes the comment. Author or project owner only.
func (s *CommentService) Delete(ctx context.Context, userID, commentID uint) error {
	grant, err := s.guard.Comment(ctx, userID, commentID, access.ActionDelete)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Delete(grant.Comment).Error
}

func (s *CommentService) reload(ctx context.Context, id uint) (*CommentView, error) {
	var comment models.Comment
	if err := s.db.WithContext(ctx).Preload("Author").First(&comment, id).Error; err != nil {
		return nil, dbError(err, response.NewNotFound("comment not found"))
	}
	v := toCommentView(&comment)
	return &v, nil
}
