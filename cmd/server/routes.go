package main

import (
	"github.com/gin-gonic/gin"
	"github.com/teampulse-io/teampulse/backend/internal/handlers"
	"github.com/teampulse-io/teampulse/backend/internal/middleware"
	"github.com/teampulse-io/teampulse/backend/internal/models"
	"github.com/teampulse-io/teampulse/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for the manual trigger endpoint
	triggerLimiter := middleware.NewRateLimiter(1, 5)

	// Health check
	healthHandler := handlers.NewHealthHandler(svc.engine, svc.hub)
	r.GET("/health", healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
		}

		// SSE Events (public route with internal token validation)
		sseHandler := handlers.NewSSEHandler(svc.hub)
		api.GET("/automation/events", sseHandler.StreamEvents)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)

			// Automation (status and review for all users)
			automationHandler := handlers.NewAutomationHandler(svc.engine, svc.store, svc.hub)
			protected.GET("/automation/status", automationHandler.GetStatus)
			protected.GET("/automation/config", automationHandler.GetConfig)
			protected.GET("/automation/runs", automationHandler.ListRuns)
			protected.GET("/automation/runs/:id", automationHandler.GetRun)
			protected.GET("/automation/actions", automationHandler.ListActions)
			protected.POST("/automation/actions/:id/approve", automationHandler.ApproveAction)
			protected.POST("/automation/actions/:id/reject", automationHandler.RejectAction)

			// Accountability
			accountabilityHandler := handlers.NewAccountabilityHandler(svc.store)
			protected.GET("/accountability/flags", accountabilityHandler.ListFlags)
			protected.POST("/accountability/flags/:id/resolve", accountabilityHandler.ResolveFlag)
			protected.GET("/accountability/transitions", accountabilityHandler.ListTransitions)
			protected.GET("/accountability/patterns", accountabilityHandler.ListPatterns)

			// Team
			teamHandler := handlers.NewTeamHandler(models.GetDB(), svc.store)
			protected.GET("/team/members", teamHandler.ListMembers)
			protected.GET("/team/tickets", teamHandler.ListTickets)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired())
		{
			// Automation (write operations)
			automationHandler := handlers.NewAutomationHandler(svc.engine, svc.store, svc.hub)
			admin.PUT("/automation/config", automationHandler.UpdateConfig)
			admin.POST("/automation/run", triggerLimiter.Middleware(), automationHandler.TriggerRun)

			// Team (write operations)
			teamHandler := handlers.NewTeamHandler(models.GetDB(), svc.store)
			admin.POST("/team/members", teamHandler.CreateMember)
			admin.PUT("/team/members/:id", teamHandler.UpdateMember)
			admin.POST("/team/tickets", teamHandler.CreateTicket)
			admin.PUT("/team/tickets/:id", teamHandler.UpdateTicket)

			// IM Bots
			imBotHandler := handlers.NewIMBotHandler(models.GetDB())
			admin.GET("/im-bots", imBotHandler.List)
			admin.POST("/im-bots", imBotHandler.Create)
			admin.PUT("/im-bots/:id", imBotHandler.Update)
			admin.DELETE("/im-bots/:id", imBotHandler.Delete)
		}
	}
}
