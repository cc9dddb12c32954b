package realtime

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// newTestClient 构造不带网络连接的客户端，只用于投递断言
func newTestClient(id, userID string) *Client {
	return &Client{
		id:     id,
		userID: userID,
		send:   make(chan []byte, 8),
		rooms:  make(map[string]struct{}),
		done:   make(chan struct{}),
	}
}

func receive(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case raw := <-c.send:
		var f Frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return f
	case <-time.After(2 * time.Second):
		t.Fatalf("client %s received nothing", c.id)
	}
	return Frame{}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("client %s should not receive, got %s", c.id, raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRoomDelivery(t *testing.T) {
	hub := NewHub()
	a := newTestClient("a", "u1")
	b := newTestClient("b", "u2")
	hub.Register(a)
	hub.Register(b)
	hub.Join(a, UserRoom("u1"))

	hub.Deliver(Envelope{Room: UserRoom("u1"), Event: EventNotification, Data: json.RawMessage(`{"x":1}`)})

	if f := receive(t, a); f.Event != EventNotification || string(f.Data) != `{"x":1}` {
		t.Errorf("unexpected frame %+v", f)
	}
	assertSilent(t, b)
}

func TestHubBroadcastExcept(t *testing.T) {
	hub := NewHub()
	a := newTestClient("a", "u1")
	b := newTestClient("b", "u2")
	hub.Register(a)
	hub.Register(b)

	hub.Deliver(Envelope{Event: EventUserOnline, Data: json.RawMessage(`{"userId":"u1"}`), Except: "a"})

	assertSilent(t, a)
	if f := receive(t, b); f.Event != EventUserOnline {
		t.Errorf("event = %s", f.Event)
	}
}

func TestHubUnregisterLeavesRooms(t *testing.T) {
	hub := NewHub()
	a := newTestClient("a", "u1")
	hub.Register(a)
	hub.Join(a, PresenceRoom("u9"))
	hub.Unregister(a)
	hub.Unregister(a)

	if hub.Count() != 0 {
		t.Errorf("Count = %d, want 0", hub.Count())
	}
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if len(hub.rooms) != 0 {
		t.Errorf("rooms should be empty, got %v", hub.rooms)
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	a := newTestClient("a", "u1")
	hub.Register(a)

	for i := 0; i < cap(a.send)+5; i++ {
		hub.Deliver(Envelope{Event: EventNewTweet, Data: json.RawMessage(`{}`)})
	}
	if len(a.send) != cap(a.send) {
		t.Errorf("buffer len = %d, want %d", len(a.send), cap(a.send))
	}
}
