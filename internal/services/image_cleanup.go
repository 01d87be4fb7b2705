package services

import (
	"context"
	"time"

	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/storage"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const pruneBatchSize = 100

// ImageCleanupService drops images from cards older than the configured TTL.
type ImageCleanupService struct {
	db    *gorm.DB
	store storage.ObjectStore
	queue TaskQueue
	cfg   config.CleanupConfig
	now   func() time.Time

	cronScheduler *cron.Cron
}

func NewImageCleanupService(db *gorm.DB, store storage.ObjectStore, queue TaskQueue, cfg config.CleanupConfig) *ImageCleanupService {
	if cfg.ImageTTLDays <= 0 {
		cfg.ImageTTLDays = 1
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "@daily"
	}
	return &ImageCleanupService{db: db, store: store, queue: queue, cfg: cfg, now: time.Now}
}

// StartScheduler enqueues a prune task on the configured cron schedule.
func (s *ImageCleanupService) StartScheduler() error {
	if !s.cfg.Enabled {
		logger.Info().Msg("Image cleanup disabled")
		return nil
	}

	s.cronScheduler = cron.New()
	if _, err := s.cronScheduler.AddFunc(s.cfg.Schedule, s.enqueue); err != nil {
		return err
	}
	s.cronScheduler.Start()
	logger.Info().Str("schedule", s.cfg.Schedule).Int("ttl_days", s.cfg.ImageTTLDays).Msg("Image cleanup scheduler started")
	return nil
}

func (s *ImageCleanupService) StopScheduler() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
	}
}

func (s *ImageCleanupService) enqueue() {
	task := &PruneImagesTask{TTLDays: s.cfg.ImageTTLDays, RequestedAt: s.now()}
	if err := s.queue.Enqueue(context.Background(), task); err != nil {
		logger.Error().Err(err).Msg("Failed to enqueue image prune task")
	}
}

// Process is the TaskProcessor for prune tasks.
func (s *ImageCleanupService) Process(ctx context.Context, task *PruneImagesTask) error {
	_, err := s.Prune(ctx, task.TTLDays)
	return err
}

// Prune clears the image of every card created more than ttlDays ago and
// deletes the stored object. A failure on one card is logged and skipped.
func (s *ImageCleanupService) Prune(ctx context.Context, ttlDays int) (int, error) {
	if ttlDays <= 0 {
		ttlDays = s.cfg.ImageTTLDays
	}
	cutoff := s.now().Add(-time.Duration(ttlDays) * 24 * time.Hour)

	pruned := 0
	var lastID uint
	for {
		var cards []models.Card
		err := s.db.WithContext(ctx).
			Select("id", "image_ref").
			Where("image_ref IS NOT NULL AND created_at < ? AND id > ?", cutoff, lastID).
			Order("id ASC").
			Limit(pruneBatchSize).
			Find(&cards).Error
		if err != nil {
			return pruned, err
		}
		if len(cards) == 0 {
			break
		}

		for i := range cards {
			card := &cards[i]
			lastID = card.ID
			if s.store != nil && card.ImageRef != nil {
				if err := s.store.Delete(ctx, *card.ImageRef); err != nil {
					logger.Warn().Err(err).Uint("card_id", card.ID).Msg("Failed to delete pruned image")
					continue
				}
			}
			if err := s.db.WithContext(ctx).Model(&models.Card{}).
				Where("id = ?", card.ID).
				Update("image_ref", nil).Error; err != nil {
				logger.Warn().Err(err).Uint("card_id", card.ID).Msg("Failed to clear image ref")
				continue
			}
			pruned++
		}

		if ctx.Err() != nil {
			return pruned, ctx.Err()
		}
	}

	if pruned > 0 {
		logger.Info().Int("pruned", pruned).Int("ttl_days", ttlDays).Msg("Pruned card images")
	}
	return pruned, nil
}
