package realtime

import (
	"github.com/goccy/go-json"
)

// 客户端上行事件
const (
	EventSetup             = "setup"
	EventGetOnlineUsers    = "getOnlineUsers"
	EventSubscribePresence = "subscribePresence"
	EventSendMessage       = "sendMessage"
	EventTyping            = "typing"
	EventTweetLiked        = "tweetLiked"
	EventTweetRetweeted    = "tweetRetweeted"
	EventNewReply          = "newReply"
	EventSendNotification  = "sendNotification"
)

// 服务端下行事件
const (
	EventConnected       = "connected"
	EventOnlineUsersList = "onlineUsersList"
	EventNewMessage      = "newMessage"
	EventUserTyping      = "userTyping"
	EventTweetUpdate     = "tweetUpdate"
	EventNotification    = "notification"
	EventNewTweet        = "newTweet"
	EventUserOnline      = "userOnline"
	EventUserOffline     = "userOffline"
	EventError           = "error"
)

// Frame websocket 上的 JSON 帧
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Envelope 总线上传递的事件，Room 为空表示广播
type Envelope struct {
	Room   string          `json:"room,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
	Except string          `json:"except,omitempty"`
	Origin string          `json:"origin,omitempty"`
}

// UserRoom 用户私有房间
func UserRoom(userID string) string {
	return "user:" + userID
}

// PresenceRoom 订阅某用户在线状态的房间
func PresenceRoom(userID string) string {
	return "presence:" + userID
}

func encodeFrame(event string, data json.RawMessage) ([]byte, error) {
	return json.Marshal(Frame{Event: event, Data: data})
}
