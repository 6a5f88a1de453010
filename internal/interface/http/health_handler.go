package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	AppName string
	started time.Time
}

func NewHealthHandler(appName string) *HealthHandler {
	return &HealthHandler{AppName: appName, started: time.Now()}
}

// Health GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"uptime":    time.Since(h.started).Seconds(),
	})
}

// Banner GET /api
func (h *HealthHandler) Banner(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   h.AppName + " running",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
