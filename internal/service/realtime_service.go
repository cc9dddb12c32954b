package service

import (
	"Warbler/internal/pkg/realtime"
	"Warbler/internal/pkg/util"
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
)

const maxPresenceQuery = 500

// Presence 在线状态存储
type Presence interface {
	Bind(ctx context.Context, userID, connID string) error
	Unbind(ctx context.Context, connID string) (string, error)
	IsOnline(ctx context.Context, userID string) (bool, error)
	OnlineUsers(ctx context.Context, userIDs []string) ([]string, error)
}

// RealtimeService 处理 websocket 上行事件
type RealtimeService interface {
	realtime.EventHandler
}

type RealtimeServiceImpl struct {
	hub      *realtime.Hub
	presence Presence
	emitter  realtime.Emitter
}

func NewRealtimeService(hub *realtime.Hub, presence Presence, emitter realtime.Emitter) RealtimeService {
	return &RealtimeServiceImpl{
		hub:      hub,
		presence: presence,
		emitter:  emitter,
	}
}

type userIDsPayload struct {
	UserIDs []string `json:"userIds"`
}

type directMessagePayload struct {
	ReceiverID string          `json:"receiverId"`
	Message    json.RawMessage `json:"message"`
}

type typingPayload struct {
	ReceiverID string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

type tweetEventPayload struct {
	TweetID string `json:"tweetId"`
}

type notificationPayload struct {
	ReceiverID   string          `json:"receiverId"`
	Notification json.RawMessage `json:"notification"`
}

// 上行事件到 tweetUpdate.type 的映射
var tweetEventTypes = map[string]string{
	realtime.EventTweetLiked:     "like",
	realtime.EventTweetRetweeted: "retweet",
	realtime.EventNewReply:       "reply",
}

// OnConnect 升级时已完成鉴权，房间与在线状态在 setup 事件中建立
func (s *RealtimeServiceImpl) OnConnect(ctx context.Context, c *realtime.Client) {
	log.DebugContext(ctx, "ws connected", "conn_id", c.ID(), "user_id", c.UserID())
}

func (s *RealtimeServiceImpl) HandleEvent(ctx context.Context, c *realtime.Client, frame realtime.Frame) {
	switch frame.Event {
	case realtime.EventSetup:
		s.setup(ctx, c)
	case realtime.EventGetOnlineUsers:
		var p userIDsPayload
		if !decodePayload(c, frame, &p) {
			return
		}
		s.onlineUsers(ctx, c, p.UserIDs)
	case realtime.EventSubscribePresence:
		var p userIDsPayload
		if !decodePayload(c, frame, &p) {
			return
		}
		for _, raw := range limitIDs(p.UserIDs) {
			if id, ok := util.ParseObjectID(raw); ok {
				s.hub.Join(c, realtime.PresenceRoom(id.Hex()))
			}
		}
	case realtime.EventSendMessage:
		var p directMessagePayload
		if !decodePayload(c, frame, &p) {
			return
		}
		if room, ok := receiverRoom(c, p.ReceiverID); ok {
			s.sendMessage(ctx, c, room, p.Message)
		}
	case realtime.EventTyping:
		var p typingPayload
		if !decodePayload(c, frame, &p) {
			return
		}
		room, ok := receiverRoom(c, p.ReceiverID)
		if !ok {
			return
		}
		s.emitter.ToRoom(ctx, room, realtime.EventUserTyping, map[string]any{
			"userId":   c.UserID(),
			"isTyping": p.IsTyping,
		})
	case realtime.EventTweetLiked, realtime.EventTweetRetweeted, realtime.EventNewReply:
		var p tweetEventPayload
		if !decodePayload(c, frame, &p) {
			return
		}
		if _, ok := util.ParseObjectID(p.TweetID); !ok {
			c.Send(realtime.EventError, map[string]string{"message": "invalid tweetId"})
			return
		}
		s.emitter.Broadcast(ctx, realtime.EventTweetUpdate, map[string]any{
			"type":    tweetEventTypes[frame.Event],
			"tweetId": p.TweetID,
			"userId":  c.UserID(),
		}, c.ID())
	case realtime.EventSendNotification:
		var p notificationPayload
		if !decodePayload(c, frame, &p) {
			return
		}
		if room, ok := receiverRoom(c, p.ReceiverID); ok {
			s.emitter.ToRoom(ctx, room, realtime.EventNotification, p.Notification)
		}
	default:
		c.Send(realtime.EventError, map[string]string{"message": "unknown event " + frame.Event})
	}
}

// OnDisconnect 同一用户仍有其他在线连接时不广播下线
func (s *RealtimeServiceImpl) OnDisconnect(ctx context.Context, c *realtime.Client) {
	ctx = context.WithoutCancel(ctx)
	userID, err := s.presence.Unbind(ctx, c.ID())
	if err != nil {
		log.WarnContext(ctx, "presence unbind failed", "conn_id", c.ID(), "err", err)
		userID = c.UserID()
	}
	if userID == "" {
		return
	}
	if online, err := s.presence.IsOnline(ctx, userID); err == nil && online {
		return
	}
	s.emitter.Broadcast(ctx, realtime.EventUserOffline, map[string]string{"userId": userID}, c.ID())
	log.DebugContext(ctx, "ws disconnected", "conn_id", c.ID(), "user_id", userID)
}

func (s *RealtimeServiceImpl) setup(ctx context.Context, c *realtime.Client) {
	if err := s.presence.Bind(ctx, c.UserID(), c.ID()); err != nil {
		log.WarnContext(ctx, "presence bind failed", "conn_id", c.ID(), "user_id", c.UserID(), "err", err)
	}
	s.hub.Join(c, realtime.UserRoom(c.UserID()))
	c.Send(realtime.EventConnected, map[string]string{"userId": c.UserID()})
	s.emitter.Broadcast(ctx, realtime.EventUserOnline, map[string]string{"userId": c.UserID()}, c.ID())
}

func (s *RealtimeServiceImpl) onlineUsers(ctx context.Context, c *realtime.Client, userIDs []string) {
	online, err := s.presence.OnlineUsers(ctx, limitIDs(userIDs))
	if err != nil {
		log.WarnContext(ctx, "query online users failed", "err", err)
		online = []string{}
	}
	c.Send(realtime.EventOnlineUsersList, map[string]any{"onlineUsers": online})
}

func (s *RealtimeServiceImpl) sendMessage(ctx context.Context, c *realtime.Client, room string, message json.RawMessage) {
	now := time.Now().UTC()
	s.emitter.ToRoom(ctx, room, realtime.EventNewMessage, map[string]any{
		"senderId":  c.UserID(),
		"message":   message,
		"createdAt": now,
	})
	s.emitter.ToRoom(ctx, room, realtime.EventNotification, map[string]any{
		"type":      "message",
		"senderId":  c.UserID(),
		"message":   message,
		"createdAt": now,
	})
}

func decodePayload(c *realtime.Client, frame realtime.Frame, dst any) bool {
	if len(frame.Data) == 0 {
		c.Send(realtime.EventError, map[string]string{"message": "missing data for " + frame.Event})
		return false
	}
	if err := json.Unmarshal(frame.Data, dst); err != nil {
		c.Send(realtime.EventError, map[string]string{"message": "invalid data for " + frame.Event})
		return false
	}
	return true
}

// receiverRoom 房间名统一使用小写 hex
func receiverRoom(c *realtime.Client, receiverID string) (string, bool) {
	id, ok := util.ParseObjectID(receiverID)
	if !ok {
		c.Send(realtime.EventError, map[string]string{"message": "invalid receiverId"})
		return "", false
	}
	return realtime.UserRoom(id.Hex()), true
}

func limitIDs(ids []string) []string {
	if len(ids) > maxPresenceQuery {
		return ids[:maxPresenceQuery]
	}
	return ids
}
