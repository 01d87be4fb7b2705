package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/internal/storage"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	gormlogger "gorm.io/gorm/logger"
)

// prune_images drops card images older than the TTL once, outside the cron schedule.
func main() {
	ttlDays := flag.Int("ttl-days", 0, "image age in days (defaults to cleanup.image_ttl_days)")
	flag.Parse()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	db, err := models.Open(&cfg.Database, gormlogger.Warn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	store, err := storage.New(&cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize object storage: %v", err)
	}

	queue := services.NewSyncQueue()
	cleanup := services.NewImageCleanupService(db, store, queue, cfg.Cleanup)

	days := *ttlDays
	if days <= 0 {
		days = cfg.Cleanup.ImageTTLDays
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	n, err := cleanup.Prune(ctx, days)
	if err != nil {
		logger.Fatalf("Prune failed after %d images: %v", n, err)
	}
	fmt.Printf("Pruned %d card images older than %d days\n", n, days)
}
