package presence

import (
	"Warbler/internal/pkg/consts"
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// unbindScript 删除连接绑定；只有当 userSocket 仍指向本连接时才清除用户在线状态，避免新连接被旧连接下线
var unbindScript = redis.NewScript(`
local uid = redis.call('GET', KEYS[1])
if not uid then
  return ''
end
redis.call('DEL', KEYS[1])
if redis.call('GET', ARGV[1] .. uid) == ARGV[3] then
  redis.call('DEL', ARGV[1] .. uid, ARGV[2] .. uid)
end
return uid
`)

// Store 在线状态存储，三个键共享同一 TTL，进程崩溃后依赖过期自愈
type Store struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewStore(rdb redis.UniversalClient, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}
}

// Bind 建立 连接<->用户 的双向绑定并标记在线
func (s *Store) Bind(ctx context.Context, userID, connID string) error {
	if userID == "" || connID == "" {
		return errors.New("presence: empty user or connection id")
	}
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, consts.SocketUserKey+connID, userID, s.ttl)
		pipe.Set(ctx, consts.UserSocketKey+userID, connID, s.ttl)
		pipe.Set(ctx, consts.PresenceKey+userID, consts.PresenceOnline, s.ttl)
		return nil
	})
	return err
}

// Unbind 清除连接绑定，返回该连接对应的用户，重复调用无副作用
func (s *Store) Unbind(ctx context.Context, connID string) (string, error) {
	uid, err := unbindScript.Run(ctx, s.rdb,
		[]string{consts.SocketUserKey + connID},
		consts.UserSocketKey, consts.PresenceKey, connID,
	).Text()
	if err != nil {
		return "", err
	}
	return uid, nil
}

// IsOnline 单个用户是否在线
func (s *Store) IsOnline(ctx context.Context, userID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, consts.PresenceKey+userID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OnlineUsers 返回 userIDs 中在线的部分，保持入参顺序
func (s *Store) OnlineUsers(ctx context.Context, userIDs []string) ([]string, error) {
	online := make([]string, 0, len(userIDs))
	if len(userIDs) == 0 {
		return online, nil
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = consts.PresenceKey + id
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		if v != nil {
			online = append(online, userIDs[i])
		}
	}
	return online, nil
}
