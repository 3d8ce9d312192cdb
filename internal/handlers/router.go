package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts a resource's routes under /api.
type RouteRegistrar interface {
	RegisterRoutes(api *gin.RouterGroup)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

func NewRouter(log *slog.Logger, checks map[string]HealthCheck, registrars ...RouteRegistrar) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), errorLogger(log))

	router.GET("/health", health(checks))

	api := router.Group("/api")
	for _, r := range registrars {
		r.RegisterRoutes(api)
	}
	return router
}

func errorLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		for _, e := range c.Errors {
			log.Error("request failed",
				"method", c.Request.Method,
				"path", c.FullPath(),
				"status", c.Writer.Status(),
				"error", e.Err)
		}
	}
}

func health(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		deps := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}

		c.JSON(status, gin.H{
			"success":      status == http.StatusOK,
			"message":      "Server is running",
			"timestamp":    time.Now().UTC().Format(time.RFC3339),
			"dependencies": deps,
		})
	}
}
