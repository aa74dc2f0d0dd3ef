package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"listingfilter/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// BuildInfo is reported by /health and /version
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// NewRouter wires the handlers into a gin engine
func NewRouter(cfg config.ServerConfig, info BuildInfo, search *SearchHandler, sessions *SessionHandler, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = splitList(cfg.AllowedOrigins)
	corsConfig.AllowMethods = splitList(cfg.AllowedMethods)
	corsConfig.AllowHeaders = splitList(cfg.AllowedHeaders)
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":     "healthy",
			"service":    "listing-filter",
			"version":    info.Version,
			"build_time": info.BuildTime,
			"git_commit": info.GitCommit,
		})
	})

	router.GET("/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":    info.Version,
			"build_time": info.BuildTime,
			"git_commit": info.GitCommit,
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/listings", search.ListListings)
		apiV1.GET("/listings/:id", search.GetListing)

		apiV1.POST("/search", search.Search)
		apiV1.POST("/search/stream", search.SearchStream)

		apiV1.POST("/sessions", sessions.Create)
		apiV1.GET("/sessions/:id", sessions.Get)
		apiV1.DELETE("/sessions/:id", sessions.Delete)
		apiV1.POST("/sessions/:id/query", sessions.SubmitQuery)
		apiV1.DELETE("/sessions/:id/query", sessions.ClearQuery)
	}

	setupStaticFiles(router, cfg.ImagesDir, logger)
	return router
}

// requestLogger logs one line per request
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	logger = logger.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
