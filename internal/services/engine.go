package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/pkg/logger"
)

// AutomationEngine owns the periodic check cycle: it arms the timer,
// serializes cycles behind a single-flight guard, invokes the registered
// checks in order, persists and judges their proposed actions and
// publishes lifecycle events.
//
// The guard is per engine instance, not global, so independent engines
// (e.g. one per tenant) do not interfere.
type AutomationEngine struct {
	store    Store
	hub      *EventHub
	queue    TaskQueue            // optional, executes approved actions
	notifier *NotificationService // optional, pings IM bots on new actions

	cron    *cron.Cron
	entryID cron.EntryID

	running atomic.Bool

	mu      sync.Mutex
	checks  []CheckModule
	lastRun *models.AutomationRun
}

func NewAutomationEngine(store Store, hub *EventHub) *AutomationEngine {
	return &AutomationEngine{
		store: store,
		hub:   hub,
	}
}

// SetQueue wires the action-execution queue. Approved actions are
// enqueued for execution; without a queue they stay approved.
func (e *AutomationEngine) SetQueue(queue TaskQueue) {
	e.queue = queue
}

// SetNotifier wires the IM notification service used when the config's
// notify_on_new_actions flag is set.
func (e *AutomationEngine) SetNotifier(n *NotificationService) {
	e.notifier = n
}

// Register appends a check module. Registration is append-only; order is
// preserved and determines invocation and event order within a cycle.
func (e *AutomationEngine) Register(check CheckModule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.checks = append(e.checks, check)
}

// CheckNames returns the names of all registered checks in registration order.
func (e *AutomationEngine) CheckNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.checks))
	for _, c := range e.checks {
		names = append(names, c.Name())
	}
	return names
}

func (e *AutomationEngine) snapshotChecks() []CheckModule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]CheckModule(nil), e.checks...)
}

// IsRunning reports whether a cycle is currently in flight.
func (e *AutomationEngine) IsRunning() bool {
	return e.running.Load()
}

// LastRun returns the most recent run record, or nil before the first cycle.
func (e *AutomationEngine) LastRun() *models.AutomationRun {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRun
}

func (e *AutomationEngine) setLastRun(run *models.AutomationRun) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRun = run
}

// Start arms the repeating timer at the configured interval and kicks
// off one cycle immediately, so a restarted deployment does not wait a
// full interval for its first actions. If automation is disabled in the
// config this is an explicit no-op.
//
// Config changes take effect on the next Start; use Stop followed by
// Start after updating the interval.
func (e *AutomationEngine) Start() error {
	cfg, err := e.store.GetAutomationConfig()
	if err != nil {
		return fmt.Errorf("load automation config: %w", err)
	}

	if !cfg.Enabled {
		logger.Info().Msg("[Engine] Automation disabled, scheduler not armed")
		return nil
	}

	interval := cfg.CheckIntervalMinutes
	if interval <= 0 {
		interval = 60
	}

	e.cron = cron.New()
	entryID, err := e.cron.AddFunc(fmt.Sprintf("@every %dm", interval), func() {
		if _, err := e.RunCycle(context.Background()); err != nil {
			logger.Error().Err(err).Msg("[Engine] Scheduled cycle failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule cycle: %w", err)
	}
	e.entryID = entryID
	e.cron.Start()

	logger.Info().Int("interval_minutes", interval).Msg("[Engine] Scheduler started")

	go func() {
		if _, err := e.RunCycle(context.Background()); err != nil {
			logger.Error().Err(err).Msg("[Engine] Initial cycle failed")
		}
	}()

	return nil
}

// Stop cancels future ticks. An in-flight cycle is allowed to finish;
// Stop never interrupts it.
func (e *AutomationEngine) Stop() {
	if e.cron != nil {
		e.cron.Stop()
		logger.Info().Msg("[Engine] Scheduler stopped")
	}
}

// RunCycle executes one full check cycle. If a cycle is already running
// the call is a no-op that returns the most recent run, so overlapping
// ticks or concurrent manual triggers never produce overlapping cycles.
func (e *AutomationEngine) RunCycle(ctx context.Context) (*models.AutomationRun, error) {
	if !e.running.CompareAndSwap(false, true) {
		logger.Debug().Msg("[Engine] Cycle already running, returning last run")
		return e.LastRun(), nil
	}
	// Guard release must be unconditional
	defer e.running.Store(false)

	cfg, err := e.store.GetAutomationConfig()
	if err != nil {
		return nil, fmt.Errorf("load automation config: %w", err)
	}

	checks := e.snapshotChecks()
	enabled := make([]CheckModule, 0, len(checks))
	names := make([]string, 0, len(checks))
	for _, c := range checks {
		if c.Enabled() {
			enabled = append(enabled, c)
			names = append(names, c.Name())
		}
	}
	namesJSON, _ := json.Marshal(names)

	run := &models.AutomationRun{
		StartedAt: time.Now(),
		ChecksRun: string(namesJSON),
		Status:    models.RunStatusRunning,
	}
	if err := e.store.CreateRun(run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	e.setLastRun(run)
	e.hub.Publish(AutomationEvent{Kind: EventCycleStarted, Run: run})

	logger.Info().Uint("run_id", run.ID).Int("checks", len(enabled)).Msg("[Engine] Cycle started")

	var (
		proposed     int
		autoApproved int
		newActions   []models.AutomationAction
		cycleErr     error
	)

	env := &CheckEnv{Store: e.store, RunID: run.ID, Now: run.StartedAt}

	for _, check := range enabled {
		actions, err := e.invokeCheck(ctx, check, env)
		if err != nil {
			// A failing check contributes zero actions but never
			// aborts the cycle or the remaining checks.
			logger.Error().Err(err).Str("check", check.Name()).Msg("[Engine] Check failed")
			continue
		}

		for i := range actions {
			persisted, err := e.persistAction(cfg, run, &actions[i])
			if err != nil {
				cycleErr = fmt.Errorf("persist action from %s: %w", check.Name(), err)
				break
			}
			proposed++
			if persisted.Status == models.ActionStatusApproved {
				autoApproved++
			}
			newActions = append(newActions, *persisted)
		}
		if cycleErr != nil {
			break
		}
	}

	now := time.Now()
	run.CompletedAt = &now
	run.ActionsProposed = proposed
	run.ActionsAutoApproved = autoApproved

	if cycleErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = cycleErr.Error()
		if err := e.store.UpdateRun(run); err != nil {
			logger.Error().Err(err).Uint("run_id", run.ID).Msg("[Engine] Failed to persist failed run")
		}
		e.hub.Publish(AutomationEvent{Kind: EventCycleFailed, Run: run})
		logger.Error().Err(cycleErr).Uint("run_id", run.ID).Msg("[Engine] Cycle failed")
		return run, cycleErr
	}

	run.Status = models.RunStatusCompleted
	if err := e.store.UpdateRun(run); err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		e.hub.Publish(AutomationEvent{Kind: EventCycleFailed, Run: run})
		return run, fmt.Errorf("update run: %w", err)
	}
	e.hub.Publish(AutomationEvent{Kind: EventCycleCompleted, Run: run})

	logger.Info().
		Uint("run_id", run.ID).
		Int("proposed", proposed).
		Int("auto_approved", autoApproved).
		Msg("[Engine] Cycle completed")

	if cfg.NotifyOnNewActions && len(newActions) > 0 && e.notifier != nil {
		if err := e.notifier.SendActionDigest(run, newActions); err != nil {
			logger.Warn().Err(err).Msg("[Engine] Action digest notification failed")
		}
	}

	return run, nil
}

// invokeCheck runs one check with panic isolation, so a misbehaving
// module degrades into a logged failure instead of killing the cycle.
func (e *AutomationEngine) invokeCheck(ctx context.Context, check CheckModule, env *CheckEnv) (actions []ProposedAction, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("check %s panicked: %v", check.Name(), r)
		}
	}()
	return check.Run(ctx, env)
}

// persistAction writes the action under the run and applies the
// auto-approval policy: confidence >= threshold approves (inclusive
// comparison), anything below stays pending for operator review.
func (e *AutomationEngine) persistAction(cfg *models.AutomationConfig, run *models.AutomationRun, pa *ProposedAction) (*models.AutomationAction, error) {
	var metadata string
	if len(pa.Metadata) > 0 {
		b, err := json.Marshal(pa.Metadata)
		if err != nil {
			logger.Warn().Err(err).Str("check", pa.CheckModule).Msg("[Engine] Dropping unserializable action metadata")
		} else {
			metadata = string(b)
		}
	}

	action := &models.AutomationAction{
		RunID:       run.ID,
		Type:        pa.Type,
		CheckModule: pa.CheckModule,
		Title:       pa.Title,
		Description: pa.Description,
		Confidence:  pa.Confidence,
		Status:      models.ActionStatusPending,
		Metadata:    metadata,
	}
	if err := e.store.CreateAction(action); err != nil {
		return nil, err
	}

	if pa.Confidence >= cfg.AutoApproveThreshold {
		if err := e.store.UpdateActionStatus(action.ID, models.ActionStatusApproved, models.ResolvedByAuto); err != nil {
			return nil, err
		}
		now := time.Now()
		action.Status = models.ActionStatusApproved
		action.ResolvedBy = models.ResolvedByAuto
		action.ResolvedAt = &now

		e.hub.Publish(AutomationEvent{Kind: EventActionAutoApproved, Action: action})

		if e.queue != nil {
			if err := e.queue.Enqueue(&ActionTask{ActionID: action.ID}); err != nil {
				logger.Warn().Err(err).Uint("action_id", action.ID).Msg("[Engine] Failed to enqueue action execution")
			}
		}
		return action, nil
	}

	e.hub.Publish(AutomationEvent{Kind: EventActionProposed, Action: action})
	return action, nil
}
