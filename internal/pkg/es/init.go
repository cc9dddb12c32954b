package es

import (
	"Warbler/internal/api/config"
	"Warbler/internal/pkg/logger"
	"context"
	log "log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

const (
	NotFoundCode = 404
	ConflictCode = 409
)

// NewClient 初始化 Elasticsearch 客户端，未配置地址时返回 nil
func NewClient(cfg config.ElasticConfig) (*elasticsearch.TypedClient, error) {
	if cfg.Address == "" {
		log.Info("elasticsearch disabled, user search falls back to mongo")
		return nil, nil
	}

	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Addresses: []string{cfg.Address},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: &logger.ESTransport{
			Transport: http.DefaultTransport,
			Slow:      300 * time.Millisecond,
		},
	})
	if err != nil {
		log.Error("Cannot Connect to Elasticsearch", "err", err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	info, err := client.Info().Do(ctx)
	if err != nil {
		log.Error("Cannot Connect to Elasticsearch", "err", err)
		return nil, err
	}

	log.Info("Connected to Elasticsearch", "version", info.Version.Int)
	return client, nil
}
