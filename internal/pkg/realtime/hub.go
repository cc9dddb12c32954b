package realtime

import (
	"Warbler/internal/pkg/metrics"
	log "log/slog"
	"sync"
)

// Hub 本进程内的连接与房间索引
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	metrics.WSConnections.Inc()
}

// Unregister 移除连接及其所在房间，重复调用无副作用
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	for room := range c.rooms {
		if members, ok := h.rooms[room]; ok {
			delete(members, c.id)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	metrics.WSConnections.Dec()
}

// Join 将连接加入房间
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.id] = c
	c.rooms[room] = struct{}{}
}

// Count 当前连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Deliver 将事件投递给本进程内的目标连接，发送缓冲已满的连接丢弃该事件
func (h *Hub) Deliver(env Envelope) {
	frame, err := encodeFrame(env.Event, env.Data)
	if err != nil {
		log.Error("encode ws frame failed", "event", env.Event, "err", err)
		return
	}

	h.mu.RLock()
	var targets []*Client
	if env.Room == "" {
		targets = make([]*Client, 0, len(h.clients))
		for _, c := range h.clients {
			targets = append(targets, c)
		}
	} else {
		members := h.rooms[env.Room]
		targets = make([]*Client, 0, len(members))
		for _, c := range members {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if c.id == env.Except {
			continue
		}
		if !c.enqueue(frame) {
			metrics.WSEventsDropped.WithLabelValues("slow_client").Inc()
			log.Warn("ws send buffer full, event dropped", "conn_id", c.id, "event", env.Event)
		}
	}
}
