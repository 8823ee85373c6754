package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ckwame-jpg/portfolio/contributions"
)

func (s *server) contributionsJSON(c *gin.Context) {
	cal, err := s.github.Calendar(c.Request.Context())
	s.metrics.githubFetched(c.Request.Context(), err)
	switch {
	case errors.Is(err, contributions.ErrNoToken):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No GitHub token configured"})
		return
	case err != nil:
		s.log.Error("fetch contributions", "component", "github", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch contributions"})
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	c.JSON(http.StatusOK, cal)
}

// heatmap renders the contribution grid as an HTMX fragment. Failures render
// a link to the GitHub profile instead.
func (s *server) heatmap(c *gin.Context) {
	cal, err := s.github.Calendar(c.Request.Context())
	s.metrics.githubFetched(c.Request.Context(), err)
	if err != nil && !errors.Is(err, contributions.ErrNoToken) {
		s.log.Error("fetch contributions", "component", "github", "err", err)
	}
	c.HTML(http.StatusOK, "heatmap.html", gin.H{
		"calendar": cal,
		"username": s.cfg.GitHubUsername,
	})
}
