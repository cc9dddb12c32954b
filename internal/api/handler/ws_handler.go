package handler

import (
	"Warbler/internal/api/config"
	"Warbler/internal/pkg/logger"
	"Warbler/internal/pkg/realtime"
	"Warbler/internal/pkg/response"
	"Warbler/internal/service"
	"context"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// TokenAuthenticator 校验 websocket 握手携带的令牌
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (primitive.ObjectID, error)
}

type WsHandler struct {
	auth     TokenAuthenticator
	hub      *realtime.Hub
	realtime service.RealtimeService
	limit    rate.Limit
	burst    int
}

func NewWsHandler(auth TokenAuthenticator, hub *realtime.Hub, realtimeSvc service.RealtimeService, cfg config.RealtimeConfig) *WsHandler {
	limit := rate.Limit(cfg.EventsPerSec)
	if cfg.EventsPerSec <= 0 {
		limit = 10
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 20
	}
	return &WsHandler{
		auth:     auth,
		hub:      hub,
		realtime: realtimeSvc,
		limit:    limit,
		burst:    burst,
	}
}

// Connect 握手阶段完成鉴权，之后阻塞直到连接断开
func (s *WsHandler) Connect(c *gin.Context) {
	userID, err := s.auth.Authenticate(c.Request.Context(), c.Query("token"))
	if err != nil {
		log.WarnContext(c.Request.Context(), "WS 鉴权失败", "err", err)
		response.Error(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "WS 协议升级失败", "err", err)
		return
	}

	client := realtime.NewClient(conn, userID.Hex(), rate.NewLimiter(s.limit, s.burst))
	ctx := logger.WithTraceID(context.WithoutCancel(c.Request.Context()), "ws-"+client.ID())
	log.InfoContext(ctx, "用户 WS 连接已建立", "user_id", userID.Hex(), "conn_id", client.ID())

	client.Serve(ctx, s.hub, s.realtime)

	log.InfoContext(ctx, "用户 WS 连接已断开", "user_id", userID.Hex(), "conn_id", client.ID())
}
