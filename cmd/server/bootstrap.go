package main

import (
	"io"

	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/internal/handlers"
	"github.com/huangang/ideaforge/backend/internal/models"
	"github.com/huangang/ideaforge/backend/internal/realtime"
	"github.com/huangang/ideaforge/backend/internal/services"
	"github.com/huangang/ideaforge/backend/internal/storage"
	"github.com/huangang/ideaforge/backend/internal/utils"
	"github.com/huangang/ideaforge/backend/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	cfg   *config.Config
	db    *gorm.DB
	store storage.ObjectStore

	revoker   services.TokenRevoker
	verifier  *services.IdentityVerifier
	taskQueue services.TaskQueue
	worker    *services.Worker
	cleanup   *services.ImageCleanupService
	hub       *realtime.Hub
	gateway   *realtime.Gateway

	authHandler    *handlers.AuthHandler
	userHandler    *handlers.UserHandler
	projectHandler *handlers.ProjectHandler
	memberHandler  *handlers.MemberHandler
	cardHandler    *handlers.CardHandler
	commentHandler *handlers.CommentHandler
	likeHandler    *handlers.LikeHandler
	chatHandler    *handlers.ChatHandler
	healthHandler  *handlers.HealthHandler
}

// bootstrap initializes all application dependencies: database, services, schedulers.
// The schema is not migrated here; run cmd/migrate first.
func bootstrap(cfg *config.Config) *appServices {
	gormLevel := gormlogger.Warn
	if cfg.Server.Mode == "debug" {
		gormLevel = gormlogger.Info
	}
	db, err := models.Open(&cfg.Database, gormLevel)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	store, err := storage.New(&cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize object storage: %v", err)
	}

	jwt := utils.NewJWT(cfg.JWT.Secret, cfg.JWT.TokenTTL())
	revoker := services.NewTokenRevoker(&cfg.Redis)

	ledger := services.NewMembershipLedger(db)
	invites := services.NewInviteIssuer(db, ledger)
	guard := services.NewAccessGuard(db, ledger)
	verifier := services.NewIdentityVerifier(db, jwt, revoker)
	chat := services.NewChatService(db, guard, cfg.Chat)

	// Task queue uses Redis if enabled, otherwise runs tasks in-process
	taskQueue := services.NewTaskQueue(&cfg.Redis)
	cleanup := services.NewImageCleanupService(db, store, taskQueue, cfg.Cleanup)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(cleanup.Process)
	}

	worker := services.NewWorker(&cfg.Redis)
	if worker != nil {
		worker.SetProcessor(cleanup.Process)
		if err := worker.Start(); err != nil {
			logger.Error().Err(err).Msg("Failed to start task worker")
			worker = nil
		}
	}

	if err := cleanup.StartScheduler(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start image cleanup scheduler")
	}

	hub := realtime.NewHub()

	return &appServices{
		cfg:       cfg,
		db:        db,
		store:     store,
		revoker:   revoker,
		verifier:  verifier,
		taskQueue: taskQueue,
		worker:    worker,
		cleanup:   cleanup,
		hub:       hub,
		gateway:   realtime.NewGateway(verifier, guard, chat, hub, cfg.Chat, cfg.Server.AllowedOrigins),

		authHandler:    handlers.NewAuthHandler(services.NewAuthService(db, jwt, revoker)),
		userHandler:    handlers.NewUserHandler(services.NewUserService(db)),
		projectHandler: handlers.NewProjectHandler(services.NewProjectService(db, ledger, invites, guard, store)),
		memberHandler:  handlers.NewMemberHandler(services.NewMemberService(ledger, guard)),
		cardHandler: handlers.NewCardHandler(services.NewCardService(db, guard, store, cfg.Storage.MaxImageBytes),
			cfg.Storage.MaxImageBytes),
		commentHandler: handlers.NewCommentHandler(services.NewCommentService(db, guard)),
		likeHandler:    handlers.NewLikeHandler(services.NewLikeService(db, guard)),
		chatHandler:    handlers.NewChatHandler(chat),
		healthHandler:  handlers.NewHealthHandler(db, taskQueue, hub),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.cleanup.StopScheduler()
	logger.Info().Msg("Image cleanup scheduler stopped")

	s.hub.CloseAll()

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if closer, ok := s.revoker.(io.Closer); ok {
		closer.Close()
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
