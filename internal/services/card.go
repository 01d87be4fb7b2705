package services

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/storage"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

type CardService struct {
	db            *gorm.DB
	guard         *AccessGuard
	store         storage.ObjectStore
	maxImageBytes int64
}

func NewCardService(db *gorm.DB, guard *AccessGuard, store storage.ObjectStore, maxImageBytes int64) *CardService {
	return &CardService{db: db, guard: guard, store: store, maxImageBytes: maxImageBytes}
}

type CreateCardRequest struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

type UpdateCardRequest struct {
	Type        *string `json:"type"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// CardView is a card with its image resolved to a loadable URL.
type CardView struct {
	*models.Card
	ImageURL *string `json:"imageUrl"`
}

// ImageUpload is an image file received from a client.
type ImageUpload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	Filename    string
}

// List returns a project's cards, newest first.
func (s *CardService) List(ctx context.Context, userID, projectID uint) ([]CardView, error) {
	if _, err := s.guard.Project(ctx, userID, projectID, access.ActionReadCards); err != nil {
		return nil, err
	}

	var cards []models.Card
	if err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC, id DESC").
		Find(&cards).Error; err != nil {
		return nil, err
	}

	views := make([]CardView, 0, len(cards))
	for i := range cards {
		views = append(views, s.view(ctx, &cards[i]))
	}
	return views, nil
}

// Create adds a card authored by userID. Completed defaults to false.
func (s *CardService) Create(ctx context.Context, userID, projectID uint, req *CreateCardRequest) (*CardView, error) {
	grant, err := s.guard.CreateCard(ctx, userID, projectID, access.CardInput{Type: req.Type, Title: req.Title})
	if err != nil {
		return nil, err
	}

	card := models.Card{
		Type:        grant.Decision.CardType,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Completed:   req.Completed,
		ProjectID:   projectID,
		AuthorID:    userID,
	}
	if err := s.db.WithContext(ctx).Create(&card).Error; err != nil {
		return nil, err
	}

	v := s.view(ctx, &card)
	return &v, nil
}

// Update replaces the given fields. Only the author or the project owner may
// do this; concurrent edits are last-write-wins.
func (s *CardService) Update(ctx context.Context, userID, cardID uint, req *UpdateCardRequest) (*CardView, error) {
	grant, err := s.guard.Card(ctx, userID, cardID, access.ActionEdit)
	if err != nil {
		return nil, err
	}
	card := grant.Card

	updates := make(map[string]interface{})
	if req.Type != nil {
		t, ok := models.ParseCardType(*req.Type)
		if !ok {
			return nil, response.NewBadRequest("invalid card type").WithReason(string(access.ReasonInvalidInput))
		}
		updates["type"] = t
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, response.NewBadRequest("title is required").WithReason(string(access.ReasonInvalidInput))
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Completed != nil {
		updates["completed"] = *req.Completed
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(card).Updates(updates).Error; err != nil {
			return nil, err
		}
		if err := s.db.WithContext(ctx).First(card, card.ID).Error; err != nil {
			return nil, dbError(err, response.NewNotFound("card not found"))
		}
	}

	v := s.view(ctx, card)
	return &v, nil
}

// Delete removes a card with its comments and likes.
func (s *CardService) Delete(ctx context.Context, userID, cardID uint) error {
	grant, err := s.guard.Card(ctx, userID, cardID, access.ActionDelete)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("card_id = ?", cardID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("card_id = ?", cardID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Card{}, cardID).Error
	})
	if err != nil {
		return err
	}

	if ref := grant.Card.ImageRef; ref != nil {
		s.deleteObject(ctx, *ref)
	}
	return nil
}

// AttachImage stores an image for the card and replaces any previous one.
func (s *CardService) AttachImage(ctx context.Context, userID, cardID uint, img *ImageUpload) (*CardView, error) {
	grant, err := s.guard.Card(ctx, userID, cardID, access.ActionEdit)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return nil, response.NewServerError("image storage is not configured")
	}

	contentType, _, _ := mime.ParseMediaType(img.ContentType)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, response.NewBadRequest("only image uploads are allowed").WithReason(string(access.ReasonInvalidInput))
	}
	if img.Size <= 0 {
		return nil, response.NewBadRequest("image is empty").WithReason(string(access.ReasonInvalidInput))
	}
	if s.maxImageBytes > 0 && img.Size > s.maxImageBytes {
		return nil, response.NewBadRequest(fmt.Sprintf("image exceeds %d bytes", s.maxImageBytes)).WithReason(string(access.ReasonInvalidInput))
	}

	key := imageKey(cardID, img.Filename, contentType)
	if err := s.store.Put(ctx, key, img.Reader, img.Size, contentType); err != nil {
		return nil, err
	}

	card := grant.Card
	// Update writes key back through card.ImageRef, so keep the old value.
	var previous string
	if card.ImageRef != nil {
		previous = *card.ImageRef
	}
	if err := s.db.WithContext(ctx).Model(card).Update("image_ref", key).Error; err != nil {
		s.deleteObject(ctx, key)
		return nil, err
	}
	card.ImageRef = &key
	if previous != "" && previous != key {
		s.deleteObject(ctx, previous)
	}

	v := s.view(ctx, card)
	return &v, nil
}

func (s *CardService) view(ctx context.Context, card *models.Card) CardView {
	v := CardView{Card: card}
	if card.ImageRef == nil || s.store == nil {
		return v
	}
	url, err := s.store.URL(ctx, *card.ImageRef)
	if err != nil {
		logger.Warn().Err(err).Uint("card_id", card.ID).Msg("failed to resolve card image url")
		return v
	}
	v.ImageURL = &url
	return v
}

func (s *CardService) deleteObject(ctx context.Context, key string) {
	if s.store == nil {
		return
	}
	if err := s.store.Delete(ctx, key); err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("failed to delete card image")
	}
}

func imageKey(cardID uint, filename, contentType string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" || len(ext) > 6 {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("cards/%d/%s%s", cardID, uuid.NewString(), ext)
}
