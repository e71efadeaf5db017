package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	ping func(ctx context.Context) error
}

// NewHealthHandler takes the storage ping. A nil ping reports in-memory storage.
func NewHealthHandler(ping func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{ping: ping}
}

func (h *HealthHandler) Health(ctx *gin.Context) {
	if h.ping == nil {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok", "database": "memory"})
		return
	}

	cctx, cancel := withTimeout(ctx, time.Second)
	defer cancel()

	if err := h.ping(cctx); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "unavailable"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "database": "ok"})
}
