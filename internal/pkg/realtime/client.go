package realtime

import (
	"Warbler/internal/pkg/metrics"
	"context"
	log "log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// EventHandler 处理连接生命周期与客户端上行事件
type EventHandler interface {
	OnConnect(ctx context.Context, c *Client)
	HandleEvent(ctx context.Context, c *Client, frame Frame)
	OnDisconnect(ctx context.Context, c *Client)
}

// Client 一个已鉴权的 websocket 连接
type Client struct {
	id      string
	userID  string
	conn    *websocket.Conn
	send    chan []byte
	limiter *rate.Limiter
	rooms   map[string]struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func NewClient(conn *websocket.Conn, userID string, limiter *rate.Limiter) *Client {
	return &Client{
		id:      uuid.NewString(),
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		limiter: limiter,
		rooms:   make(map[string]struct{}),
		done:    make(chan struct{}),
	}
}

// ID 连接 ID
func (c *Client) ID() string { return c.id }

// UserID 鉴权得到的用户 ID
func (c *Client) UserID() string { return c.userID }

// Send 直接回写给当前连接
func (c *Client) Send(event string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.Error("encode ws payload failed", "event", event, "err", err)
		return
	}
	frame, err := encodeFrame(event, raw)
	if err != nil {
		return
	}
	if !c.enqueue(frame) {
		metrics.WSEventsDropped.WithLabelValues("slow_client").Inc()
	}
}

func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Serve 注册到 hub 并阻塞处理读写，连接断开后返回
func (c *Client) Serve(ctx context.Context, hub *Hub, handler EventHandler) {
	hub.Register(c)
	handler.OnConnect(ctx, c)

	go c.writePump()
	c.readPump(ctx, handler)

	c.close()
	hub.Unregister(c)
	handler.OnDisconnect(ctx, c)
}

func (c *Client) readPump(ctx context.Context, handler EventHandler) {
	defer func() {
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WarnContext(ctx, "unexpected websocket close", "conn_id", c.id, "err", err)
			}
			return
		}

		if c.limiter != nil && !c.limiter.Allow() {
			metrics.WSEventsDropped.WithLabelValues("rate_limited").Inc()
			c.Send(EventError, map[string]string{"message": "rate limit exceeded"})
			continue
		}

		var frame Frame
		if err = json.Unmarshal(raw, &frame); err != nil || frame.Event == "" {
			metrics.WSEventsDropped.WithLabelValues("invalid").Inc()
			c.Send(EventError, map[string]string{"message": "invalid frame"})
			continue
		}

		handler.HandleEvent(ctx, c, frame)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
