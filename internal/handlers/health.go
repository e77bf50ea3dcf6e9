package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/internal/services"
)

// HealthHandler provides enhanced health check endpoints.
type HealthHandler struct {
	engine *services.AutomationEngine
	hub    *services.EventHub
}

func NewHealthHandler(engine *services.AutomationEngine, hub *services.EventHub) *HealthHandler {
	return &HealthHandler{engine: engine, hub: hub}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"

	// Database check
	dbStatus := "ok"
	sqlDB, err := models.GetDB().DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	} else if err := sqlDB.Ping(); err != nil {
		dbStatus = "error: " + err.Error()
		overall = "unhealthy"
	}

	// Queue mode
	taskQueue := services.GetTaskQueue()
	queueMode := "sync"
	if taskQueue != nil && taskQueue.IsAsync() {
		queueMode = "async (Redis)"
	}

	// Pending action count
	var pendingCount int64
	models.GetDB().Model(&models.AutomationAction{}).
		Where("status = ?", models.ActionStatusPending).
		Count(&pendingCount)

	c.JSON(200, gin.H{
		"status":  overall,
		"service": "teampulse",
		"components": gin.H{
			"database":        dbStatus,
			"queue_mode":      queueMode,
			"sse_clients":     h.hub.ClientCount(),
			"cycle_running":   h.engine.IsRunning(),
			"pending_actions": pendingCount,
		},
	})
}
