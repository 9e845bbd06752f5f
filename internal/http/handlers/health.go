package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/unifind-backend/internal/search"
)

type HealthHandler struct {
	db    *gorm.DB
	index search.Index
}

func NewHealthHandler(db *gorm.DB, index search.Index) *HealthHandler {
	return &HealthHandler{db: db, index: index}
}

// GET /healthcheck
// The store is required; an unreachable index only degrades search.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok", "store": "ok", "index": "ok"}
	if h.db != nil {
		if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unavailable"
			body["store"] = "unavailable"
		}
	}
	if h.index == nil || h.index.Ping(ctx) != nil {
		body["index"] = "unavailable"
		if status == http.StatusOK {
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}
