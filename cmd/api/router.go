package api

import (
	"net/http"

	"nexus-backend/internal/auth/delivery"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	authHandler := delivery.NewAuthHandler(h.authUsecase)
	authRequired := delivery.AuthMiddleware(h.authUsecase)

	// Prometheus scrape endpoint (no auth required)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.POST("/logout-all", authRequired, authHandler.LogoutAll)
			auth.GET("/me", authRequired, authHandler.Me)
			auth.PUT("/mailbox", authRequired, authHandler.SaveMailboxCredentials)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(authRequired)
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Assistant routes (protected) - tool-calling orchestration and chat sessions
		assistant := api.Group("/assistant")
		assistant.Use(authRequired)
		{
			assistant.POST("/query", h.assistantHandler.Query)
			assistant.GET("/sessions", h.assistantHandler.ListSessions)
			assistant.GET("/sessions/:id/messages", h.assistantHandler.GetMessages)
		}

		// Pending action routes (protected) - human approval gate
		actions := api.Group("/actions")
		actions.Use(authRequired)
		{
			actions.GET("", h.actionHandler.ListActions)
			actions.GET("/log", h.actionHandler.GetActionLog)
			actions.POST("/:id/approve", h.actionHandler.ApproveAction)
			actions.POST("/:id/reject", h.actionHandler.RejectAction)
		}

		api.GET("/briefing", authRequired, h.briefingHandler.GetBriefing)

		// Scheduling routes (protected)
		scheduling := api.Group("/scheduling")
		scheduling.Use(authRequired)
		{
			scheduling.GET("/rules", h.schedulingHandler.GetRules)
			scheduling.PUT("/rules", h.schedulingHandler.UpdateRules)
			scheduling.GET("/free-busy", h.schedulingHandler.GetFreeBusy)
			scheduling.GET("/available", h.schedulingHandler.GetAvailableTimes)
		}

		// Tone routes (protected)
		tone := api.Group("/tone")
		tone.Use(authRequired)
		{
			tone.GET("/profile", h.toneHandler.GetProfile)
			tone.POST("/sync", h.toneHandler.Sync)
			tone.POST("/feedback", h.toneHandler.Feedback)
			tone.GET("/exemplars", h.toneHandler.SimilarExemplars)
		}

		// Task routes (protected) - AI task extraction and management
		tasks := api.Group("/tasks")
		tasks.Use(authRequired)
		{
			tasks.GET("", h.taskHandler.GetTasks)
			tasks.POST("", h.taskHandler.CreateTask)
			tasks.GET("/:id", h.taskHandler.GetTaskByID)
			tasks.PUT("/:id", h.taskHandler.UpdateTask)
			tasks.DELETE("/:id", h.taskHandler.DeleteTask)
			tasks.PATCH("/:id/status", h.taskHandler.UpdateTaskStatus)
			tasks.POST("/extract/:threadId", h.taskHandler.ExtractTasksFromThread)
		}

		api.POST("/lifecycle/events", authRequired, h.lifecycleHandler.PostEvent)

		// Settings routes (protected) - Runtime configuration
		settings := api.Group("/settings")
		settings.Use(authRequired)
		{
			settings.GET("/ollama", GetOllamaSettings)
			settings.PUT("/ollama", UpdateOllamaSettings)
			settings.POST("/ollama/test", TestOllamaConnection)
		}
	}
}
