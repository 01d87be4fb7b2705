package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/pkg/logger"
)

// Worker processes async tasks from the queue
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor TaskProcessor
	running   bool
	mu        sync.Mutex
}

// NewWorker creates a worker, or returns nil when Redis is disabled.
func NewWorker(cfg *config.RedisConfig) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		redisClientOpt(cfg),
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Errorf("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

// SetProcessor sets the function to process prune tasks
func (w *Worker) SetProcessor(processor TaskProcessor) {
	w.processor = processor
}

// Start begins processing tasks
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypePruneImages, w.handlePruneTask)

	logger.Infof("[Worker] Starting async worker...")
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.running = true
	return nil
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	logger.Infof("[Worker] Shutting down...")
	w.server.Shutdown()
	w.running = false
	logger.Infof("[Worker] Shutdown complete")
}

func (w *Worker) handlePruneTask(ctx context.Context, t *asynq.Task) error {
	var task PruneImagesTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		logger.Errorf("[Worker] Failed to unmarshal task: %v", err)
		return err
	}

	logger.Infof("[Worker] Processing prune task: ttl_days=%d", task.TTLDays)

	if w.processor == nil {
		logger.Warnf("[Worker] No processor set")
		return nil
	}

	return w.processor(ctx, &task)
}
