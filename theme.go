package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const themeCookie = "theme"

func themeFromCookie(c *gin.Context) string {
	if t, err := c.Cookie(themeCookie); err == nil && t == "light" {
		return "light"
	}
	return "dark"
}

// toggleTheme flips between the dark and light themes and remembers the
// choice for a year.
func toggleTheme(c *gin.Context) {
	next := "light"
	if themeFromCookie(c) == "light" {
		next = "dark"
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(themeCookie, next, 3600*24*365, "/", "", false, false)
	c.JSON(http.StatusOK, gin.H{"theme": next})
}
