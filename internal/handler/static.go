package handler

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// setupStaticFiles serves the listing images from dir under /images
func setupStaticFiles(router *gin.Engine, dir string, logger *slog.Logger) {
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		logger.Warn("images directory not available, /images disabled", "dir", dir)
	} else {
		logger.Info("serving listing images", "dir", dir)
		router.Static("/images", dir)
	}

	router.NoRoute(func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api") {
			c.JSON(http.StatusNotFound, gin.H{"error": "API endpoint not found"})
			return
		}
		c.String(http.StatusNotFound, "404 page not found")
	})
}
