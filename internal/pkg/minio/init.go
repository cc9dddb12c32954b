package minio

import (
	"Warbler/internal/api/config"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// NewStorage 初始化 MinIO 客户端并确保存储桶存在，未配置 endpoint 时返回 nil
func NewStorage(cfg config.MinIOConfig) (*Storage, error) {
	if cfg.Endpoint == "" {
		log.Warn("minio endpoint not configured, media upload disabled")
		return nil, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to minio server: %w", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		log.Info("created minio bucket", "bucket", cfg.Bucket)
	}

	return &Storage{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: publicBase(cfg),
	}, nil
}

func publicBase(cfg config.MinIOConfig) string {
	if cfg.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(cfg.PublicBaseURL, "/"), cfg.Bucket)
	}
	protocol := "http"
	if cfg.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s/%s", protocol, cfg.Endpoint, cfg.Bucket)
}
