package api

import (
	"Warbler/internal/api/handler"
	"Warbler/internal/api/middleware"
)

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	Authenticator       *middleware.Authenticator
	AuthHandler         *handler.AuthHandler
	TweetHandler        *handler.TweetHandler
	UserHandler         *handler.UserHandler
	NotificationHandler *handler.NotificationHandler
	MediaHandler        *handler.MediaHandler
	WsHandler           *handler.WsHandler
	HealthHandler       *handler.HealthHandler
}
