package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/ideaforge/backend/internal/realtime"
	"github.com/huangang/ideaforge/backend/internal/services"
	"gorm.io/gorm"
)

// HealthHandler reports the state of the database, task queue and realtime hub.
type HealthHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
	hub   *realtime.Hub
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue, hub *realtime.Hub) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, hub: hub}
}

// CheckHealth returns the health status of all subsystems.
// GET /health
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := 200

	dbStatus := "ok"
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = 503
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	connections := 0
	if h.hub != nil {
		connections = h.hub.ClientCount()
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "ideaforge",
		"components": gin.H{
			"database":         dbStatus,
			"queue_mode":       queueMode,
			"realtime_clients": connections,
		},
	})
}
