package main

import (
	"os"

	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	gormlogger "gorm.io/gorm/logger"
)

// migrate creates or updates the schema. The server never migrates on boot.
func main() {
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

	if err := models.Migrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("Database migrated")
}
