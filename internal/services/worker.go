package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/teampulse-io/teampulse/backend/internal/config"
	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/pkg/logger"
)

// Worker processes async tasks from the queue
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	processor func(context.Context, *ActionTask) error
	wg        sync.WaitGroup
	running   bool
	mu        sync.Mutex
}

// NewWorker creates a new worker instance
func NewWorker(cfg *config.RedisConfig) *Worker {
	if !cfg.Enabled {
		return nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Infof("[Worker] Error processing task %s: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server: server,
		mux:    asynq.NewServeMux(),
	}
}

// SetProcessor sets the function to process action tasks
func (w *Worker) SetProcessor(processor func(context.Context, *ActionTask) error) {
	w.processor = processor
}

// Start begins processing tasks
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.mux.HandleFunc(TaskTypeExecuteAction, w.handleActionTask)

	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] Starting async worker...")
		if err := w.server.Run(w.mux); err != nil {
			logger.Infof("[Worker] Server error: %v", err)
		}
	}()

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
	w.wg.Wait()
	logger.Infof("[Worker] Shutdown complete")
}

// handleActionTask processes a single action execution task
func (w *Worker) handleActionTask(ctx context.Context, t *asynq.Task) error {
	var task ActionTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		logger.Infof("[Worker] Failed to unmarshal task: %v", err)
		return err
	}

	logger.Infof("[Worker] Processing action task: action_id=%d", task.ActionID)

	if w.processor == nil {
		logger.Infof("[Worker] Warning: no processor set")
		return nil
	}

	return w.processor(ctx, &task)
}

// Global worker instance
var (
	globalWorker *Worker
	workerOnce   sync.Once
)

// InitWorker initializes the global worker
func InitWorker(cfg *config.RedisConfig) *Worker {
	workerOnce.Do(func() {
		globalWorker = NewWorker(cfg)
	})
	return globalWorker
}

// GetWorker returns the global worker instance
func GetWorker() *Worker {
	return globalWorker
}

// ActionExecutor carries an approved action through execution. Checks
// already persisted the underlying flag or suggestion, so execution
// marks the ledger entry and publishes the resolution; an action no
// longer in approved state is skipped.
type ActionExecutor struct {
	store Store
	hub   *EventHub
}

func NewActionExecutor(store Store, hub *EventHub) *ActionExecutor {
	return &ActionExecutor{store: store, hub: hub}
}

// Process is the queue/worker processor for action execution tasks.
func (e *ActionExecutor) Process(ctx context.Context, task *ActionTask) error {
	action, err := e.store.GetAction(task.ActionID)
	if err != nil {
		return fmt.Errorf("load action %d: %w", task.ActionID, err)
	}

	if action.Status != models.ActionStatusApproved {
		logger.Infof("[Executor] Action %d is %s, skipping execution", action.ID, action.Status)
		return nil
	}

	if err := e.store.UpdateActionStatus(action.ID, models.ActionStatusExecuted, action.ResolvedBy); err != nil {
		return fmt.Errorf("mark action %d executed: %w", action.ID, err)
	}
	action.Status = models.ActionStatusExecuted

	if e.hub != nil {
		e.hub.Publish(AutomationEvent{Kind: EventActionResolved, Action: action})
	}

	logger.Infof("[Executor] Action %d executed", action.ID)
	return nil
}
