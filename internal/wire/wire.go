package wire

import (
	"Warbler/internal/api"
	"Warbler/internal/api/config"
	"Warbler/internal/api/handler"
	"Warbler/internal/api/middleware"
	"Warbler/internal/job"
	"Warbler/internal/pkg/cron"
	"Warbler/internal/pkg/es"
	"Warbler/internal/pkg/identity"
	"Warbler/internal/pkg/minio"
	"Warbler/internal/pkg/presence"
	"Warbler/internal/pkg/push"
	"Warbler/internal/pkg/realtime"
	"Warbler/internal/pkg/security"
	"Warbler/internal/repository"
	"Warbler/internal/service"
	"context"
	"io"
	log "log/slog"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// Infra 外部依赖，ES 与 MinIO 可为 nil 表示未启用
type Infra struct {
	DB        *mongo.Database
	Redis     *redis.Client
	Elastic   *elasticsearch.TypedClient
	Storage   *minio.Storage
	AccessLog io.Writer
}

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router  *gin.Engine
	Bus     *realtime.Bus
	Hub     *realtime.Hub
	CronMgr *cron.Manager
}

func BuildApplication(cfg *config.Config, infra Infra) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(infra.DB)
	tweetRepo := repository.NewTweetRepo(infra.DB)
	notificationRepo := repository.NewNotificationRepo(infra.DB)

	// 接口参数必须传无类型 nil，避免 typed nil 绕过未启用判断
	var userIndex es.UserRepo
	if infra.Elastic != nil {
		userIndex = es.NewUserRepo(infra.Elastic, cfg.Elastic.UserIndex)
	}
	var storage service.ObjectStorage
	if infra.Storage != nil {
		storage = infra.Storage
	}
	var verifier identity.Verifier
	if cfg.Identity.GoogleProjectID != "" {
		verifier = identity.NewFirebaseVerifier(cfg.Identity)
	} else {
		log.Warn("google id token verification disabled, client profile is trusted")
	}

	hub := realtime.NewHub()
	bus := realtime.NewBus(infra.Redis, cfg.Realtime.Channel, hub)
	presenceStore := presence.NewStore(infra.Redis, cfg.Presence.TTL)
	pushClient := push.NewClient(cfg.Push)
	tokens := security.NewTokenManager(cfg.JWT)

	notificationService := service.NewNotificationService(
		notificationRepo, userRepo, tweetRepo, bus, pushClient, cfg.Notification.DedupWindow,
	)
	mediaService := service.NewMediaService(storage, infra.Redis)
	tweetService := service.NewTweetService(tweetRepo, userRepo, notificationService, bus, mediaService)
	feedService := service.NewFeedService(tweetRepo, userRepo)
	followService := service.NewFollowService(userRepo, notificationService)
	userService := service.NewUserService(userRepo, userIndex)
	authService := service.NewAuthService(userRepo, tokens, verifier, infra.Redis, userIndex)
	realtimeService := service.NewRealtimeService(hub, presenceStore, bus)

	authenticator := middleware.NewAuthenticator(tokens, infra.Redis)

	handlers := &api.HandlersGroup{
		Authenticator:       authenticator,
		AuthHandler:         handler.NewAuthHandler(authService),
		TweetHandler:        handler.NewTweetHandler(tweetService, feedService),
		UserHandler:         handler.NewUserHandler(userService, followService),
		NotificationHandler: handler.NewNotificationHandler(notificationService),
		MediaHandler:        handler.NewMediaHandler(mediaService),
		WsHandler:           handler.NewWsHandler(authenticator, hub, realtimeService, cfg.Realtime),
		HealthHandler: handler.NewHealthHandler(
			func(ctx context.Context) error { return infra.DB.Client().Ping(ctx, nil) },
			func(ctx context.Context) error { return infra.Redis.Ping(ctx).Err() },
		),
	}

	router := api.SetupRouter(handlers, infra.AccessLog, cfg.Logstash.Index)

	cleanupJob := job.NewMediaCleanupJob(mediaService, cfg.Cron.MediaTTL)
	cronMgr := cron.NewCronManager(cfg.Cron.MediaCleanup, cleanupJob)

	return &ApplicationContainer{
		Router:  router,
		Bus:     bus,
		Hub:     hub,
		CronMgr: cronMgr,
	}, nil
}
