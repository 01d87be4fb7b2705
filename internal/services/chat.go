package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/huangang/ideaforge/backend/internal/access"
	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/response"
	"gorm.io/gorm"
)

// ChatService persists and lists project chat messages.
type ChatService struct {
	db    *gorm.DB
	guard *AccessGuard
	cfg   config.ChatConfig
}

func NewChatService(db *gorm.DB, guard *AccessGuard, cfg config.ChatConfig) *ChatService {
	if cfg.MaxMessageLength <= 0 {
		cfg.MaxMessageLength = 1000
	}
	if cfg.HistoryDefault <= 0 {
		cfg.HistoryDefault = 50
	}
	if cfg.HistoryMax <= 0 {
		cfg.HistoryMax = 100
	}
	return &ChatService{db: db, guard: guard, cfg: cfg}
}

type ChatMessageView struct {
	ID         uint      `json:"id"`
	Content    string    `json:"content"`
	SenderID   uint      `json:"senderId"`
	SenderName string    `json:"senderName"`
	ProjectID  uint      `json:"projectId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ValidateContent trims content and checks it is non-empty and at most the
// configured number of characters.
func (s *ChatService) ValidateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", response.NewBadRequest("message cannot be empty").WithReason(string(access.ReasonInvalidInput))
	}
	if n := utf8.RuneCountInString(content); n > s.cfg.MaxMessageLength {
		return "", response.NewBadRequest(fmt.Sprintf("message is %d characters, limit is %d", n, s.cfg.MaxMessageLength)).
			WithReason(string(access.ReasonInvalidInput))
	}
	return content, nil
}

// Append validates and stores a message from sender. The caller must already
// have authorized sender for chat in projectID.
func (s *ChatService) Append(ctx context.Context, sender *models.User, projectID uint, content string) (*ChatMessageView, error) {
	content, err := s.ValidateContent(content)
	if err != nil {
		return nil, err
	}

	msg := models.ChatMessage{Content: content, SenderID: sender.ID, ProjectID: projectID}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, err
	}
	return &ChatMessageView{
		ID:         msg.ID,
		Content:    msg.Content,
		SenderID:   sender.ID,
		SenderName: sender.Name,
		ProjectID:  projectID,
		CreatedAt:  msg.CreatedAt,
	}, nil
}

// HistoryRequest selects a page of messages older than Before.
type HistoryRequest struct {
	Before *time.Time
	Limit  int
}

// History returns messages newest first. Limit defaults to 50 and is capped at 100.
func (s *ChatService) History(ctx context.Context, userID, projectID uint, req HistoryRequest) ([]ChatMessageView, error) {
	if _, err := s.guard.Project(ctx, userID, projectID, access.ActionView); err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.HistoryDefault
	}
	if limit > s.cfg.HistoryMax {
		limit = s.cfg.HistoryMax
	}

	query := s.db.WithContext(ctx).Preload("Sender").Where("project_id = ?", projectID)
	if req.Before != nil {
		query = query.Where("created_at < ?", *req.Before)
	}

	var rows []models.ChatMessage
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	messages := make([]ChatMessageView, 0, len(rows))
	for _, r := range rows {
		v := ChatMessageView{
			ID:         r.ID,
			Content:    r.Content,
			SenderID:   r.SenderID,
			SenderName: "Unknown",
			ProjectID:  r.ProjectID,
			CreatedAt:  r.CreatedAt,
		}
		if r.Sender != nil {
			v.SenderName = r.Sender.Name
		}
		messages = append(messages, v)
	}
	return messages, nil
}
