package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *server) playgroundEndpoints(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   s.catalog.Service,
		"mode":      s.cfg.PlaygroundMode,
		"endpoints": s.catalog.Endpoints,
	})
}

type playgroundRequest struct {
	Index *int `json:"index" binding:"required"`
}

// playgroundRun executes one catalog endpoint through the configured runner.
func (s *server) playgroundRun(c *gin.Context) {
	var req playgroundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	ep, err := s.catalog.Endpoint(*req.Index)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown endpoint"})
		return
	}

	res, err := s.runner.Run(c.Request.Context(), ep)
	if err != nil {
		if !errors.Is(err, c.Request.Context().Err()) {
			s.log.Error("playground run", "component", "playground", "method", ep.Method, "path", ep.Path, "err", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Playground request failed"})
		return
	}

	s.metrics.playgroundRan(c.Request.Context(), string(res.Mode), res.Status)
	s.visits.recordEvent(eventPlaygroundRun, sessionID(c))
	c.JSON(http.StatusOK, gin.H{
		"method":     ep.Method,
		"path":       ep.Path,
		"status":     res.Status,
		"body":       res.Body,
		"durationMs": res.Duration.Milliseconds(),
		"mode":       res.Mode,
	})
}
