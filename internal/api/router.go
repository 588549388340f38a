package api

import (
	"github.com/danh/tracktide/internal/api/handler"
	"github.com/danh/tracktide/internal/api/middleware"
	"github.com/danh/tracktide/internal/metadata"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(store *metadata.Store, mode string) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	healthHandler := handler.NewHealthHandler()
	runsHandler := handler.NewRunsHandler(store)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/runs", runsHandler.ListRuns)
		v1.GET("/runs/:pipeline/last", runsHandler.LastRun)
	}

	return r
}
