package routes

import (
	"net/http"

	"github.com/ArowuTest/prizedraw-backend/internal/config"
	"github.com/ArowuTest/prizedraw-backend/internal/handlers"
	"github.com/ArowuTest/prizedraw-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by SetupRouter
type Handlers struct {
	Draw       *handlers.DrawHandler
	Activity   *handlers.ActivityHandler
	Statistics *handlers.StatisticsHandler
	Admin      *handlers.AdminHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, h Handlers, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Add middleware
	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		public.GET("/activities", h.Activity.List)
		public.GET("/activities/:id", h.Activity.Get)
		public.GET("/statistics", h.Statistics.Get)
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg, logger))
	{
		protected.POST("/draw", h.Draw.Draw)
		protected.GET("/draws/me", h.Draw.ListMine)

		// Admin routes
		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(cfg.JWT.AdminRole))
		{
			admin.POST("/activities", h.Admin.CreateActivity)
			admin.PUT("/activities/:id", h.Admin.UpdateActivity)
			admin.POST("/activities/:id/prizes/import", h.Admin.ImportPrizes)
			admin.PATCH("/draw-records/:id/status", h.Admin.UpdateRecordStatus)
			admin.GET("/reconciliations", h.Admin.ListReconciliations)
			admin.POST("/reconciliations/sweep", h.Admin.SweepReconciliations)
		}
	}

	return router
}
