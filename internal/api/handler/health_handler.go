package handler

import (
	"Warbler/internal/api/dto"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	statusConnected    = "connected"
	statusDisconnected = "disconnected"
)

// PingFunc 依赖探活
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	db      PingFunc
	redis   PingFunc
	started time.Time
}

func NewHealthHandler(db, redis PingFunc) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		started: time.Now(),
	}
}

func probe(ctx context.Context, ping PingFunc) string {
	if ping == nil {
		return statusDisconnected
	}
	if err := ping(ctx); err != nil {
		return statusDisconnected
	}
	return statusConnected
}

// Health 数据库不可用时返回 503，Redis 只影响实时功能
func (s *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	data := gin.H{
		"status":   "ok",
		"database": probe(ctx, s.db),
		"redis":    probe(ctx, s.redis),
		"uptime":   time.Since(s.started).Seconds(),
	}

	code := http.StatusOK
	message := "success"
	if data["database"] == statusDisconnected {
		code = http.StatusServiceUnavailable
		message = "service unavailable"
		data["status"] = "degraded"
	}
	c.JSON(code, dto.Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}
