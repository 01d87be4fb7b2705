package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/huangang/ideaforge/backend/internal/config"
	"github.com/huangang/ideaforge/backend/pkg/logger"
)

const (
	TaskTypePruneImages = "card:prune-images"
)

// PruneImagesTask asks the worker to drop card images older than TTLDays.
type PruneImagesTask struct {
	TTLDays     int       `json:"ttl_days"`
	RequestedAt time.Time `json:"requested_at"`
}

// TaskProcessor handles one prune task.
type TaskProcessor func(context.Context, *PruneImagesTask) error

// TaskQueue defines the interface for background task processing
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(ctx context.Context, task *PruneImagesTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewTaskQueue returns an asynq-backed queue when Redis is enabled and
// reachable, otherwise a SyncQueue.
func NewTaskQueue(cfg *config.RedisConfig) TaskQueue {
	if !cfg.Enabled {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
		return NewSyncQueue()
	}
	queue, err := NewAsyncQueue(cfg)
	if err != nil {
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
		return NewSyncQueue()
	}
	logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
	return queue
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)
	client := asynq.NewClient(redisOpt)

	// Verify the connection before handing the queue out.
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue adds a prune task. Only one prune task runs at a time; a duplicate
// enqueued while another is pending is dropped.
func (q *AsyncQueue) Enqueue(ctx context.Context, task *PruneImagesTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypePruneImages, payload)
	info, err := q.client.EnqueueContext(ctx, t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
		asynq.Unique(time.Hour),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Infof("[AsyncQueue] Prune task already pending, skipping")
			return nil
		}
		return err
	}

	logger.Infof("[AsyncQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements TaskQueue in process (no Redis).
type SyncQueue struct {
	processor TaskProcessor
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the function that runs enqueued tasks.
func (q *SyncQueue) SetProcessor(processor TaskProcessor) {
	q.processor = processor
}

// Enqueue runs the task in a new goroutine and returns immediately.
func (q *SyncQueue) Enqueue(_ context.Context, task *PruneImagesTask) error {
	if q.processor == nil {
		logger.Warnf("[SyncQueue] No processor set, task will be dropped")
		return nil
	}

	go func() {
		if err := q.processor(context.Background(), task); err != nil {
			logger.Errorf("[SyncQueue] Task processing failed: %v", err)
		}
	}()

	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

func (q *SyncQueue) Close() error {
	return nil
}
