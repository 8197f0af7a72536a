package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/jailcrawler/internal/api/handlers"
	"github.com/your-org/jailcrawler/internal/auth"
)

type RouterConfig struct {
	APIKey string
	// Checks are probed by /readyz, keyed by component name.
	Checks map[string]handlers.Pinger
	Runs   handlers.RunController
	// BaseContext bounds runs triggered over HTTP; they outlive the request.
	BaseContext context.Context
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checks)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	runH := handlers.NewRunHandler(cfg.BaseContext, cfg.Runs)
	v1.GET("/runs/last", runH.Last)
	v1.POST("/runs", runH.Trigger)

	return r
}
