// Package api implements the HTTP API for the job crawler.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hirewire/jobcrawl/internal/logger"
)

// SetupRouter creates and configures the Gin router with all routes.
func SetupRouter(h *Handler, log logger.Interface) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/crawl", h.StartCrawl)
		v1.POST("/crawl/:sessionId/stop", h.StopCrawl)
		v1.GET("/sessions", h.ListSessions)
		v1.GET("/sessions/:sessionId", h.GetSession)
		v1.GET("/jobs", h.SearchJobs)
		v1.GET("/robots/check", h.CheckRobots)
	}

	return router
}
