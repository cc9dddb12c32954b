package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoadConfig 从 ./configs/config.yaml 与 WARBLER_ 前缀环境变量加载配置
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("WARBLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "production")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire_days", 60)
	v.SetDefault("jwt.issuer", "warbler")
	v.SetDefault("mongo.url", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "warbler")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("minio.bucket", "warbler-media")
	v.SetDefault("elastic.user_index", "warbler-users")
	v.SetDefault("push.base_url", "https://api.onesignal.com")
	v.SetDefault("push.timeout", 5*time.Second)
	v.SetDefault("push.rate_per_sec", 20)
	v.SetDefault("identity.certs_url", "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com")
	v.SetDefault("presence.ttl", time.Hour)
	v.SetDefault("realtime.channel", "warbler:events")
	v.SetDefault("realtime.events_per_sec", 10)
	v.SetDefault("realtime.burst", 20)
	v.SetDefault("logstash.index", "logstash-warbler")
	v.SetDefault("cron.media_cleanup", "0 0 * * * *")
	v.SetDefault("cron.media_ttl", 24*time.Hour)
}
