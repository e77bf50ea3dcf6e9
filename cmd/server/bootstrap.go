package main

import (
	"github.com/teampulse-io/teampulse/backend/internal/config"
	"github.com/teampulse-io/teampulse/backend/internal/handlers"
	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/internal/services"
	"github.com/teampulse-io/teampulse/backend/internal/utils"
	"github.com/teampulse-io/teampulse/backend/pkg/logger"
)

// appServices holds all initialized services and handlers needed by the application.
type appServices struct {
	store     *services.GormStore
	hub       *services.EventHub
	engine    *services.AutomationEngine
	taskQueue services.TaskQueue
	worker    *services.Worker

	authHandler *handlers.AuthHandler
}

// bootstrap initializes all application dependencies: database, services,
// the automation engine and the execution queue.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed the automation settings singleton from the file config
	if err := models.SeedDefaultData(&cfg.Automation); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	store := services.NewGormStore(models.GetDB())
	hub := services.NewEventHub()

	// Automation engine with the built-in checks
	engine := services.NewAutomationEngine(store, hub)

	accountability := services.NewAccountabilityCheck(store, services.NewWorkdayService(cfg.Automation.HolidayRegion))
	insight := services.NewInsightService(&cfg.Insight)
	if insight.Enabled() {
		accountability.SetAnalyzer(insight)
	}
	engine.Register(accountability)
	engine.Register(services.NewPMCheck(services.NewWorkloadDelegate()))

	engine.SetNotifier(services.NewNotificationService(models.GetDB()))

	// Execution queue (uses Redis if enabled, otherwise sync mode)
	executor := services.NewActionExecutor(store, hub)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(executor.Process)
	}
	engine.SetQueue(taskQueue)

	// Start async worker if Redis is enabled
	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(executor.Process)
			worker.Start()
		}
	}

	// Arm the scheduler (no-op when automation is disabled in the DB config)
	if err := engine.Start(); err != nil {
		logger.Fatalf("Failed to start automation engine: %v", err)
	}

	// Create default admin user
	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)
	if err := authHandler.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	return &appServices{
		store:       store,
		hub:         hub,
		engine:      engine,
		taskQueue:   taskQueue,
		worker:      worker,
		authHandler: authHandler,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.engine.Stop()
	logger.Info().Msg("Automation engine stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
}
