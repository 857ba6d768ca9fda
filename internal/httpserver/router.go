package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/marwanhelal/track-management-system/internal/handler"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	phaseHandler *handler.PhaseHandler,
	checklistHandler *handler.ChecklistHandler,
	timerHandler *handler.TimerHandler,
	workLogHandler *handler.WorkLogHandler,
	jwtSecret string,
	db *pgxpool.Pool,
) *Router {
	r := gin.Default()
	r.Use(RequestID())
	r.Use(Metrics())

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// Protected
	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(jwtSecret))
	{
		// Phase lifecycle
		api.GET("/phases/:id", phaseHandler.Get)
		api.GET("/projects/:id/phases", phaseHandler.ListByProject)
		api.POST("/phases/:id/start", phaseHandler.Start)
		api.POST("/phases/:id/submit", phaseHandler.Submit)
		api.POST("/phases/:id/approve", phaseHandler.Approve)
		api.POST("/phases/:id/complete", phaseHandler.Complete)
		api.POST("/phases/:id/grant-early-access", phaseHandler.GrantEarlyAccess)
		api.POST("/phases/:id/revoke-early-access", phaseHandler.RevokeEarlyAccess)
		api.POST("/phases/:id/warning", phaseHandler.MarkWarning)
		api.POST("/phases/:id/delay", phaseHandler.HandleDelay)
		api.POST("/phases/:id/dates", phaseHandler.UpdateHistoricalDates)

		// Checklist approval chain
		api.GET("/phases/:id/checklist", checklistHandler.ListByPhase)
		api.POST("/phases/:id/checklist", checklistHandler.CreateItem)
		api.POST("/checklist/items/:id/toggle-completion", checklistHandler.ToggleCompletion)
		api.POST("/checklist/approve/engineer", checklistHandler.EngineerApprove)
		api.POST("/checklist/approve/supervisor", checklistHandler.SupervisorApprove)
		api.POST("/checklist/items/:id/revoke-engineer-approval", checklistHandler.RevokeEngineerApproval)
		api.POST("/checklist/items/:id/revoke-supervisor-approval", checklistHandler.RevokeSupervisorApproval)
		api.POST("/checklist/items/:id/client-notes", checklistHandler.UpdateClientNotes)
		api.DELETE("/checklist/items/:id", checklistHandler.DeleteItem)

		// Timer sessions
		api.POST("/timer-sessions", timerHandler.Start)
		api.PUT("/timer-sessions/:id/pause", timerHandler.Pause)
		api.PUT("/timer-sessions/:id/resume", timerHandler.Resume)
		api.PUT("/timer-sessions/:id/stop", timerHandler.Stop)
		api.DELETE("/timer-sessions/:id", timerHandler.Cancel)
		api.GET("/timer-sessions/active", timerHandler.GetActive)

		// Work logs
		api.GET("/phases/:id/work-logs", workLogHandler.ListByPhase)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
