package config

import "time"

// Config 配置主体
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Mongo        MongoConfig        `mapstructure:"mongo"`
	Redis        RedisConfig        `mapstructure:"redis"`
	MinIO        MinIOConfig        `mapstructure:"minio"`
	Elastic      ElasticConfig      `mapstructure:"elastic"`
	Push         PushConfig         `mapstructure:"push"`
	Identity     IdentityConfig     `mapstructure:"identity"`
	Notification NotificationConfig `mapstructure:"notification"`
	Presence     PresenceConfig     `mapstructure:"presence"`
	Realtime     RealtimeConfig     `mapstructure:"realtime"`
	Logstash     LogstashConfig     `mapstructure:"logstash"`
	Cron         CronConfig         `mapstructure:"cron"`
}

// ServerConfig Server配置
type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// IsDevelopment 开发模式下错误详情会原样返回
func (s ServerConfig) IsDevelopment() bool {
	return s.Mode == "development"
}

// JWTConfig 会话令牌配置
type JWTConfig struct {
	Secret     string `mapstructure:"secret"`
	ExpireDays int    `mapstructure:"expire_days"`
	Issuer     string `mapstructure:"issuer"`
}

// MongoConfig 文档库配置
type MongoConfig struct {
	URL      string `mapstructure:"url"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// MinIOConfig MinIO配置
type MinIOConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	Bucket        string `mapstructure:"bucket"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// ElasticConfig Elastic配置，Address 为空时不启用用户索引
type ElasticConfig struct {
	Address   string `mapstructure:"address"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	UserIndex string `mapstructure:"user_index"`
}

// PushConfig OneSignal 推送配置，AppID 为空时不启用
type PushConfig struct {
	AppID      string        `mapstructure:"onesignal_app_id"`
	APIKey     string        `mapstructure:"api_key"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RatePerSec float64       `mapstructure:"rate_per_sec"`
}

// IdentityConfig 第三方登录配置
type IdentityConfig struct {
	GoogleProjectID string `mapstructure:"google_project_id"`
	CertsURL        string `mapstructure:"certs_url"`
}

type NotificationConfig struct {
	DedupWindow time.Duration `mapstructure:"dedup_window"`
}

type PresenceConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// RealtimeConfig 实时通道配置
type RealtimeConfig struct {
	Channel      string  `mapstructure:"channel"`
	EventsPerSec float64 `mapstructure:"events_per_sec"`
	Burst        int     `mapstructure:"burst"`
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
}

// CronConfig 定时任务配置
type CronConfig struct {
	MediaCleanup string        `mapstructure:"media_cleanup"`
	MediaTTL     time.Duration `mapstructure:"media_ttl"`
}
