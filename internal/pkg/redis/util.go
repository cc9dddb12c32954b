package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// SetWithExpiration 设置键值对并设置过期时间
func SetWithExpiration(ctx context.Context, rdb redis.Cmdable, key string, value interface{}, expiration time.Duration) error {
	return rdb.Set(ctx, key, value, expiration).Err()
}

// GetValue 获取字符串类型的值，键不存在时返回空串
func GetValue(ctx context.Context, rdb redis.Cmdable, key string) (string, error) {
	value, err := rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", err
	}
	return value, nil
}

// HSet 写入哈希字段
func HSet(ctx context.Context, rdb redis.Cmdable, key, field string, value interface{}) error {
	return rdb.HSet(ctx, key, field, value).Err()
}

// HGetAll 读取整个哈希
func HGetAll(ctx context.Context, rdb redis.Cmdable, key string) (map[string]string, error) {
	return rdb.HGetAll(ctx, key).Result()
}

// HDel 删除哈希字段
func HDel(ctx context.Context, rdb redis.Cmdable, key string, fields ...string) error {
	if len(fields) == 0 {
		return nil
	}
	return rdb.HDel(ctx, key, fields...).Err()
}
