package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	handlers "marv/internal/api"
)

// RegisterRoutes sets up the API endpoints and groups them logically.
// generateMiddleware runs only in front of POST /api/generate (rate limiting).
// Any verb a path does not serve, including non-standard ones, is answered with 405.
func RegisterRoutes(router *gin.Engine, h *handlers.APIHandler, generateMiddleware ...gin.HandlerFunc) {
	router.HandleMethodNotAllowed = true
	router.NoMethod(h.NoMethod)

	apiGroup := router.Group("/api")
	{
		generate := append(append([]gin.HandlerFunc{}, generateMiddleware...), h.GenerateCopy)
		apiGroup.POST("/generate", generate...)
		apiGroup.GET("/samples", h.ListSamples)
	}

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
