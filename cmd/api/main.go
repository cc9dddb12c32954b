package main

import (
	"Warbler/internal/api/config"
	"Warbler/internal/pkg/cron"
	"Warbler/internal/pkg/es"
	"Warbler/internal/pkg/logger"
	"Warbler/internal/pkg/minio"
	"Warbler/internal/pkg/mongo"
	"Warbler/internal/pkg/redis"
	"Warbler/internal/wire"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Error("Fatal error: failed to load configuration", "err", err)
		panic(err)
	}

	// 初始化日志
	accessLog := logger.InitLogger(cfg.Logstash, cfg.Server.Mode)
	if cfg.Server.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Mongo 连接
	db, err := mongo.InitMongo(cfg.Mongo)
	if err != nil {
		log.Error("Fatal error: failed to create mongo connection", "err", err)
		panic(err)
	}
	defer mongo.Close(db)

	// Redis 连接，不可用时仅降级实时功能
	rdb := redis.NewClient(cfg.Redis)
	defer func() {
		_ = rdb.Close()
	}()

	// ElasticSearch 连接
	esClient, err := es.NewClient(cfg.Elastic)
	if err != nil {
		log.Error("Fatal error: failed to initialize ElasticSearch", "err", err)
		panic(err)
	}

	// MinIO 连接
	storage, err := minio.NewStorage(cfg.MinIO)
	if err != nil {
		log.Error("Fatal error: failed to initialize MinIO", "err", err)
		panic(err)
	}

	// 依赖注入
	app, err := wire.BuildApplication(cfg, wire.Infra{
		DB:        db,
		Redis:     rdb,
		Elastic:   esClient,
		Storage:   storage,
		AccessLog: accessLog,
	})
	if err != nil {
		log.Error("Fatal error: failed to create application", "err", err)
		panic(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	// 定时任务
	if err = cron.InitCron(app.CronMgr); err != nil {
		log.Error("Fatal error: failed to start cron jobs", "err", err)
		panic(err)
	}
	g.Go(func() error {
		<-ctx.Done()
		log.Info("Cron Jobs stopping...")
		app.CronMgr.Stop()
		return nil
	})

	// 实时事件总线
	g.Go(func() error {
		log.Info("Realtime bus subscribing...", "channel", cfg.Realtime.Channel)
		return app.Bus.Run(ctx)
	})

	// HTTP 服务器
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		log.Info("HTTP Server starting...", "addr", srv.Addr, "mode", cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// 优雅退出
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case <-ctx.Done():
		case sig := <-quit:
			log.Info("Received signal, shutting down...", "signal", sig)
			cancel()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP Server shutdown failed", "err", err)
		}
		return nil
	})

	if err = g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("App exited with error", "err", err)
	}
	log.Info("App exited successfully.")
}
