package api

import (
	"Warbler/internal/api/middleware"
	"Warbler/internal/pkg/logger"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter accessLog 为访问日志输出，index 为日志投递到的索引名
func SetupRouter(group *HandlersGroup, accessLog io.Writer, index string) *gin.Engine {
	r := gin.New()
	_ = r.SetTrustedProxies([]string{"localhost"})
	r.MaxMultipartMemory = 8 << 20

	// TraceId & Logger & CORS
	r.Use(middleware.TraceMiddleware())
	logger.SetupGin(r, accessLog, index)
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORSMiddleware())

	r.GET("/health", group.HealthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	apiGroup.GET("/ws", group.WsHandler.Connect)

	apiGroup.Use(middleware.AuditMiddleware())
	auth := middleware.AuthMiddleware(group.Authenticator)

	authGroup := apiGroup.Group("/auth")
	{
		authGroup.POST("/signup", group.AuthHandler.Signup)
		authGroup.POST("/login", group.AuthHandler.Login)
		authGroup.POST("/google", group.AuthHandler.Google)
		authGroup.POST("/logout", auth, group.AuthHandler.Logout)
		authGroup.GET("/me", auth, group.AuthHandler.Me)
	}

	tweetGroup := apiGroup.Group("/tweets")
	tweetGroup.Use(auth)
	{
		tweetGroup.POST("", group.TweetHandler.CreateTweet)
		tweetGroup.GET("/feed", group.TweetHandler.GetFeed)
		tweetGroup.GET("/user/:username", group.TweetHandler.GetUserTweets)
		tweetGroup.GET("/:id", group.TweetHandler.GetTweet)
		tweetGroup.DELETE("/:id", group.TweetHandler.DeleteTweet)
		tweetGroup.POST("/:id/like", group.TweetHandler.ToggleLike)
		tweetGroup.POST("/:id/retweet", group.TweetHandler.ToggleRetweet)
	}

	userGroup := apiGroup.Group("/users")
	userGroup.Use(auth)
	{
		userGroup.GET("/search", group.UserHandler.SearchUsers)
		userGroup.GET("/suggested", group.UserHandler.GetSuggestedUsers)
		userGroup.GET("/profile/:id", group.UserHandler.GetProfileByID)
		userGroup.PUT("/profile", group.UserHandler.UpdateProfile)
		userGroup.GET("/:user", group.UserHandler.GetProfile)
		userGroup.POST("/:user/follow", group.UserHandler.ToggleFollow)
		userGroup.GET("/:user/followers", group.UserHandler.GetFollowers)
		userGroup.GET("/:user/following", group.UserHandler.GetFollowing)
	}

	notificationGroup := apiGroup.Group("/notifications")
	notificationGroup.Use(auth)
	{
		notificationGroup.GET("", group.NotificationHandler.GetNotifications)
		notificationGroup.GET("/unread-count", group.NotificationHandler.GetUnreadCount)
		notificationGroup.PATCH("/read", group.NotificationHandler.MarkRead)
	}

	mediaGroup := apiGroup.Group("/media")
	mediaGroup.Use(auth)
	{
		mediaGroup.POST("/upload", group.MediaHandler.Upload)
	}

	return r
}
