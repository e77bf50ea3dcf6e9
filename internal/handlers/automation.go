package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/teampulse-io/teampulse/backend/internal/middleware"
	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/internal/services"
	"github.com/teampulse-io/teampulse/backend/pkg/logger"
	"github.com/teampulse-io/teampulse/backend/pkg/response"
)

// AutomationHandler exposes the engine's config, runs and action ledger
// to operators.
type AutomationHandler struct {
	engine *services.AutomationEngine
	store  *services.GormStore
	hub    *services.EventHub
}

func NewAutomationHandler(engine *services.AutomationEngine, store *services.GormStore, hub *services.EventHub) *AutomationHandler {
	return &AutomationHandler{
		engine: engine,
		store:  store,
		hub:    hub,
	}
}

// GetStatus returns the engine state at a glance
// GET /api/automation/status
func (h *AutomationHandler) GetStatus(c *gin.Context) {
	response.Success(c, gin.H{
		"running":  h.engine.IsRunning(),
		"checks":   h.engine.CheckNames(),
		"last_run": h.engine.LastRun(),
	})
}

// GetConfig returns the automation settings singleton
// GET /api/automation/config
func (h *AutomationHandler) GetConfig(c *gin.Context) {
	cfg, err := h.store.GetAutomationConfig()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, cfg)
}

type updateConfigRequest struct {
	Enabled              *bool    `json:"enabled"`
	CheckIntervalMinutes *int     `json:"check_interval_minutes"`
	AutoApproveThreshold *float64 `json:"auto_approve_threshold"`
	NotifyOnNewActions   *bool    `json:"notify_on_new_actions"`
}

// UpdateConfig patches the automation settings and re-arms the
// scheduler so interval and enabled changes take effect
// PUT /api/automation/config
func (h *AutomationHandler) UpdateConfig(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	cfg, err := h.store.GetAutomationConfig()
	if err != nil {
		response.Error(c, err)
		return
	}

	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if req.CheckIntervalMinutes != nil {
		if *req.CheckIntervalMinutes <= 0 {
			response.BadRequest(c, "check_interval_minutes must be positive")
			return
		}
		cfg.CheckIntervalMinutes = *req.CheckIntervalMinutes
	}
	if req.AutoApproveThreshold != nil {
		if *req.AutoApproveThreshold < 0 || *req.AutoApproveThreshold > 1 {
			response.BadRequest(c, "auto_approve_threshold must be in [0, 1]")
			return
		}
		cfg.AutoApproveThreshold = *req.AutoApproveThreshold
	}
	if req.NotifyOnNewActions != nil {
		cfg.NotifyOnNewActions = *req.NotifyOnNewActions
	}

	if err := h.store.UpdateAutomationConfig(cfg); err != nil {
		response.Error(c, err)
		return
	}

	h.engine.Stop()
	if err := h.engine.Start(); err != nil {
		logger.Error().Err(err).Msg("[Automation] Failed to restart scheduler after config update")
	}

	response.Success(c, cfg)
}

// TriggerRun starts a cycle immediately. If one is already in flight
// the current run is returned instead of starting another.
// POST /api/automation/run
func (h *AutomationHandler) TriggerRun(c *gin.Context) {
	run, err := h.engine.RunCycle(context.Background())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, run)
}

// ListRuns returns recent runs, newest first
// GET /api/automation/runs
func (h *AutomationHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	runs, err := h.store.ListRecentRuns(limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, runs)
}

// GetRun returns one run by ID
// GET /api/automation/runs/:id
func (h *AutomationHandler) GetRun(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid run id")
		return
	}

	run, err := h.store.GetRun(uint(id))
	if err != nil {
		response.NotFound(c, "run not found")
		return
	}
	response.Success(c, run)
}

// ListActions returns actions filtered by run, status or type
// GET /api/automation/actions
func (h *AutomationHandler) ListActions(c *gin.Context) {
	runID, _ := strconv.ParseUint(c.Query("run_id"), 10, 32)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	actions, err := h.store.ListActions(services.ActionFilter{
		RunID:  uint(runID),
		Status: c.Query("status"),
		Type:   c.Query("type"),
		Limit:  limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, actions)
}

// ApproveAction approves a pending action on behalf of the caller
// POST /api/automation/actions/:id/approve
func (h *AutomationHandler) ApproveAction(c *gin.Context) {
	h.resolveAction(c, models.ActionStatusApproved)
}

// RejectAction rejects a pending action on behalf of the caller
// POST /api/automation/actions/:id/reject
func (h *AutomationHandler) RejectAction(c *gin.Context) {
	h.resolveAction(c, models.ActionStatusRejected)
}

func (h *AutomationHandler) resolveAction(c *gin.Context, status string) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "invalid action id")
		return
	}

	action, err := h.store.GetAction(uint(id))
	if err != nil {
		response.NotFound(c, "action not found")
		return
	}
	if action.Status != models.ActionStatusPending {
		response.Error(c, response.NewConflict("action is not pending"))
		return
	}

	resolvedBy := middleware.GetUsername(c)
	if err := h.store.UpdateActionStatus(action.ID, status, resolvedBy); err != nil {
		response.Error(c, err)
		return
	}

	action, err = h.store.GetAction(uint(id))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.hub.Publish(services.AutomationEvent{Kind: services.EventActionResolved, Action: action})

	if status == models.ActionStatusApproved {
		if queue := services.GetTaskQueue(); queue != nil {
			if err := queue.Enqueue(&services.ActionTask{ActionID: action.ID}); err != nil {
				logger.Warn().Err(err).Uint("action_id", action.ID).Msg("[Automation] Failed to enqueue approved action")
			}
		}
	}

	response.Success(c, action)
}
