package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// TaskType defines the type of a background task.
const (
	TypeDraftCleanup = "listing:draft:cleanup"
)

// DraftCleaner removes drafts that have not been touched for maxAge.
type DraftCleaner interface {
	DeleteStaleDrafts(ctx context.Context, maxAge time.Duration) (int64, error)
}

// DraftCleanupPayload optionally overrides the configured maximum draft age.
type DraftCleanupPayload struct {
	MaxAgeHours int `json:"max_age_hours,omitempty"`
}

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// --- Task Client (Enqueuing tasks) ---

// NewClient returns an asynq client on the same Redis as the cache.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// Enqueuer is the part of *asynq.Client used to queue work.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// EnqueueDraftCleanup queues a single cleanup run on the low queue. maxAge of
// zero uses the processor default.
func EnqueueDraftCleanup(ctx context.Context, client Enqueuer, maxAge time.Duration) (*asynq.TaskInfo, error) {
	task, err := NewDraftCleanupTask(maxAge)
	if err != nil {
		return nil, err
	}
	info, err := client.EnqueueContext(ctx, task, asynq.Queue("low"))
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s: %w", TypeDraftCleanup, err)
	}
	return info, nil
}

// NewDraftCleanupTask builds a cleanup task. maxAge of zero uses the processor default.
func NewDraftCleanupTask(maxAge time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(DraftCleanupPayload{MaxAgeHours: int(maxAge / time.Hour)})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeDraftCleanup, payload, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute)), nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
type TaskProcessor struct {
	cleaner     DraftCleaner
	maxDraftAge time.Duration
	logger      *zap.Logger
}

func NewTaskProcessor(cleaner DraftCleaner, maxDraftAge time.Duration, logger *zap.Logger) *TaskProcessor {
	return &TaskProcessor{
		cleaner:     cleaner,
		maxDraftAge: maxDraftAge,
		logger:      logger.Named("tasks"),
	}
}

// Mux returns a ServeMux with every background handler registered.
func (p *TaskProcessor) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDraftCleanup, p.HandleDraftCleanupTask)
	return mux
}

// SetupServer configures an Asynq server instance. The caller starts it with the processor's Mux.
func SetupServer(rdb *redis.Client, logger *zap.Logger) *asynq.Server {
	return asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 3,
				"low":     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task failed", zap.String("type", task.Type()), zap.ByteString("payload", task.Payload()), zap.Error(err))
			}),
		},
	)
}

// SetupScheduler registers the periodic draft cleanup every interval.
func SetupScheduler(rdb *redis.Client, interval time.Duration, logger *zap.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt(rdb), &asynq.SchedulerOpts{
		Location: time.UTC,
	})

	task, err := NewDraftCleanupTask(0)
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register("@every "+interval.String(), task, asynq.Queue("low"))
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", TypeDraftCleanup, err)
	}
	logger.Info("scheduled periodic task", zap.String("type", TypeDraftCleanup), zap.String("entry_id", entryID), zap.Duration("interval", interval))
	return scheduler, nil
}

// --- Task Handlers ---

// HandleDraftCleanupTask deletes drafts whose updatedAt is older than the maximum draft age.
func (p *TaskProcessor) HandleDraftCleanupTask(ctx context.Context, t *asynq.Task) error {
	var payload DraftCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal draft cleanup payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	maxAge := p.maxDraftAge
	if payload.MaxAgeHours > 0 {
		maxAge = time.Duration(payload.MaxAgeHours) * time.Hour
	}
	if maxAge <= 0 {
		return fmt.Errorf("draft cleanup has no maximum age configured: %w", asynq.SkipRetry)
	}

	p.logger.Info("starting stale draft cleanup", zap.Duration("max_age", maxAge))
	n, err := p.cleaner.DeleteStaleDrafts(ctx, maxAge)
	if err != nil {
		return err
	}
	p.logger.Info("stale draft cleanup finished", zap.Int64("deleted", n))
	return nil
}
