package handler

import (
	"Warbler/internal/api/config"
	"Warbler/internal/api/middleware"
	"Warbler/internal/pkg/presence"
	"Warbler/internal/pkg/realtime"
	"Warbler/internal/pkg/security"
	"Warbler/internal/service"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type wsEnv struct {
	server *httptest.Server
	tokens *security.TokenManager
}

func newWsEnv(t *testing.T) *wsEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens := security.NewTokenManager(config.JWTConfig{Secret: "ws-test", Issuer: "warbler"})

	hub := realtime.NewHub()
	bus := realtime.NewBus(nil, "", hub)
	svc := service.NewRealtimeService(hub, presence.NewStore(rdb, time.Hour), bus)
	h := NewWsHandler(middleware.NewAuthenticator(tokens, rdb), hub, svc, config.RealtimeConfig{})

	r := gin.New()
	r.GET("/ws", h.Connect)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return &wsEnv{server: server, tokens: tokens}
}

func (e *wsEnv) dial(t *testing.T, userID primitive.ObjectID) *websocket.Conn {
	t.Helper()
	token, err := e.tokens.GenerateToken(userID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()
	frame := map[string]any{"event": event}
	if data != nil {
		frame["data"] = data
	}
	if err := conn.WriteJSON(frame); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}

// readUntil 跳过其他事件直到收到 event
func readUntil(t *testing.T, conn *websocket.Conn, event string) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", event, err)
		}
		var frame realtime.Frame
		if err = json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("decode frame %s: %v", raw, err)
		}
		if frame.Event != event {
			continue
		}
		out := map[string]any{}
		if len(frame.Data) > 0 {
			if err = json.Unmarshal(frame.Data, &out); err != nil {
				t.Fatalf("decode %s data: %v", event, err)
			}
		}
		return out
	}
}

func TestWsRejectsMissingToken(t *testing.T) {
	env := newWsEnv(t)
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("resp = %+v, want 401", resp)
	}
}

func TestWsPresenceAndMessaging(t *testing.T) {
	env := newWsEnv(t)
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	aliceConn := env.dial(t, alice)
	send(t, aliceConn, realtime.EventSetup, nil)
	if got := readUntil(t, aliceConn, realtime.EventConnected); got["userId"] != alice.Hex() {
		t.Fatalf("connected = %v", got)
	}

	bobConn := env.dial(t, bob)
	send(t, bobConn, realtime.EventSetup, nil)
	readUntil(t, bobConn, realtime.EventConnected)
	if got := readUntil(t, aliceConn, realtime.EventUserOnline); got["userId"] != bob.Hex() {
		t.Fatalf("userOnline = %v", got)
	}

	send(t, aliceConn, realtime.EventGetOnlineUsers, map[string]any{
		"userIds": []string{alice.Hex(), bob.Hex(), primitive.NewObjectID().Hex()},
	})
	list, _ := readUntil(t, aliceConn, realtime.EventOnlineUsersList)["onlineUsers"].([]any)
	if len(list) != 2 {
		t.Fatalf("onlineUsers = %v, want alice and bob", list)
	}

	send(t, aliceConn, realtime.EventSendMessage, map[string]any{
		"receiverId": strings.ToUpper(bob.Hex()),
		"message":    map[string]string{"text": "hi bob"},
	})
	msg := readUntil(t, bobConn, realtime.EventNewMessage)
	if msg["senderId"] != alice.Hex() {
		t.Errorf("newMessage = %v", msg)
	}
	if n := readUntil(t, bobConn, realtime.EventNotification); n["type"] != "message" {
		t.Errorf("notification = %v", n)
	}

	send(t, aliceConn, "dance", map[string]any{})
	if e := readUntil(t, aliceConn, realtime.EventError); !strings.Contains(e["message"].(string), "unknown event") {
		t.Errorf("error = %v", e)
	}

	_ = bobConn.Close()
	if got := readUntil(t, aliceConn, realtime.EventUserOffline); got["userId"] != bob.Hex() {
		t.Errorf("userOffline = %v", got)
	}
}

func TestWsSecondConnectionKeepsUserOnline(t *testing.T) {
	env := newWsEnv(t)
	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()

	aliceConn := env.dial(t, alice)
	send(t, aliceConn, realtime.EventSetup, nil)
	readUntil(t, aliceConn, realtime.EventConnected)

	phone := env.dial(t, bob)
	send(t, phone, realtime.EventSetup, nil)
	readUntil(t, phone, realtime.EventConnected)
	laptop := env.dial(t, bob)
	send(t, laptop, realtime.EventSetup, nil)
	readUntil(t, laptop, realtime.EventConnected)

	_ = phone.Close()
	send(t, aliceConn, realtime.EventGetOnlineUsers, map[string]any{"userIds": []string{bob.Hex()}})

	// 收到在线列表之前不应出现 bob 的下线事件
	_ = aliceConn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		_, raw, err := aliceConn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var frame realtime.Frame
		if err = json.Unmarshal(raw, &frame); err != nil {
			t.Fatal(err)
		}
		if frame.Event == realtime.EventUserOffline {
			t.Fatalf("unexpected userOffline %s", frame.Data)
		}
		if frame.Event == realtime.EventOnlineUsersList {
			if !strings.Contains(string(frame.Data), bob.Hex()) {
				t.Fatalf("bob should still be online: %s", frame.Data)
			}
			return
		}
	}
}
