package api

import (
	"Warbler/internal/api/config"
	"Warbler/internal/api/dto"
	"Warbler/internal/api/handler"
	"Warbler/internal/api/middleware"
	"Warbler/internal/pkg/presence"
	"Warbler/internal/pkg/push"
	"Warbler/internal/pkg/realtime"
	"Warbler/internal/pkg/security"
	"Warbler/internal/repository/memory"
	"Warbler/internal/service"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testApp struct {
	router *gin.Engine
	dbDown bool
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := memory.NewStore()
	tokens := security.NewTokenManager(config.JWTConfig{Secret: "route-test", Issuer: "warbler"})

	hub := realtime.NewHub()
	bus := realtime.NewBus(nil, "", hub)
	notifications := service.NewNotificationService(
		store.Notifications(), store.Users(), store.Tweets(), bus, push.NewClient(config.PushConfig{}), 0,
	)
	media := service.NewMediaService(nil, rdb)
	auth := middleware.NewAuthenticator(tokens, rdb)
	app := &testApp{}

	group := &HandlersGroup{
		Authenticator: auth,
		AuthHandler:   handler.NewAuthHandler(service.NewAuthService(store.Users(), tokens, nil, rdb, nil)),
		TweetHandler: handler.NewTweetHandler(
			service.NewTweetService(store.Tweets(), store.Users(), notifications, bus, media),
			service.NewFeedService(store.Tweets(), store.Users()),
		),
		UserHandler: handler.NewUserHandler(
			service.NewUserService(store.Users(), nil),
			service.NewFollowService(store.Users(), notifications),
		),
		NotificationHandler: handler.NewNotificationHandler(notifications),
		MediaHandler:        handler.NewMediaHandler(media),
		WsHandler: handler.NewWsHandler(auth, hub,
			service.NewRealtimeService(hub, presence.NewStore(rdb, time.Hour), bus), config.RealtimeConfig{}),
		HealthHandler: handler.NewHealthHandler(
			func(context.Context) error {
				if app.dbDown {
					return errors.New("db down")
				}
				return nil
			},
			func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		),
	}
	app.router = SetupRouter(group, io.Discard, "test")
	return app
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w.Code, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return out
}

func (a *testApp) signup(t *testing.T, username string) *dto.AuthDTO {
	t.Helper()
	code, env := a.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name":      username,
		"username":  username,
		"email":     username + "@example.com",
		"password":  "password123",
		"birthDate": "1995-01-02",
	})
	if code != http.StatusCreated || env.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d body %+v", username, code, env)
	}
	return decode[*dto.AuthDTO](t, env)
}

func TestAuthFlow(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")

	code, env := app.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"emailOrUsername": "ALICE", "password": "password123",
	})
	if code != http.StatusOK {
		t.Fatalf("login status = %d (%s)", code, env.Message)
	}

	code, env = app.do(t, http.MethodGet, "/api/auth/me", alice.Token, nil)
	if code != http.StatusOK || decode[*dto.UserDTO](t, env).Username != "alice" {
		t.Fatalf("me status = %d", code)
	}

	if code, _ = app.do(t, http.MethodPost, "/api/auth/logout", alice.Token, nil); code != http.StatusOK {
		t.Fatalf("logout status = %d", code)
	}
	code, env = app.do(t, http.MethodGet, "/api/auth/me", alice.Token, nil)
	if code != http.StatusUnauthorized || env.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d", code)
	}
}

func TestErrorEnvelopes(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")

	tests := []struct {
		name    string
		method  string
		path    string
		token   string
		body    any
		status  int
		message string
	}{
		{"no token", http.MethodGet, "/api/tweets/feed", "", nil, 401, "Not authorized, no token"},
		{"bad token", http.MethodGet, "/api/tweets/feed", "garbage", nil, 401, "Not authorized, token failed"},
		{"duplicate email", http.MethodPost, "/api/auth/signup", "", map[string]string{
			"name": "x", "username": "other", "email": "alice@example.com", "password": "password123", "birthDate": "1990-01-01",
		}, 400, "Email already registered"},
		{"signup missing fields", http.MethodPost, "/api/auth/signup", "", map[string]string{"name": "x"}, 400, ""},
		{"bad credentials", http.MethodPost, "/api/auth/login", "", map[string]string{
			"emailOrUsername": "alice", "password": "nope-nope",
		}, 401, "Invalid credentials"},
		{"empty tweet", http.MethodPost, "/api/tweets", alice.Token, map[string]string{"text": "  "}, 400, "Tweet text is required"},
		{"unknown feed", http.MethodGet, "/api/tweets/feed?feedType=trending", alice.Token, nil, 400, "Invalid feed type"},
		{"missing tweet", http.MethodGet, "/api/tweets/0123456789abcdef01234567", alice.Token, nil, 404, "Tweet not found"},
		{"self follow", http.MethodPost, "/api/users/" + alice.User.ID + "/follow", alice.Token, nil, 400, "You cannot follow yourself"},
		{"upload without file", http.MethodPost, "/api/media/upload", alice.Token, nil, 400, "No file uploaded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := app.do(t, tt.method, tt.path, tt.token, tt.body)
			if code != tt.status || env.Code != tt.status {
				t.Fatalf("status = %d/%d, want %d (%s)", code, env.Code, tt.status, env.Message)
			}
			if tt.message != "" && env.Message != tt.message {
				t.Errorf("message = %q, want %q", env.Message, tt.message)
			}
		})
	}
}

func TestTweetAndFeedFlow(t *testing.T) {
	app := newTestApp(t)
	alice := app.signup(t, "alice")
	bob := app.signup(t, "bob")

	code, env := app.do(t, http.MethodPost, "/api/tweets", bob.Token, map[string]string{"text": "hello world"})
	if code != http.StatusCreated {
		t.Fatalf("create status = %d (%s)", code, env.Message)
	}
	tweet := decode[*dto.TweetDTO](t, env)

	code, env = app.do(t, http.MethodPost, "/api/users/"+bob.User.ID+"/follow", alice.Token, nil)
	if code != http.StatusOK || !decode[*dto.FollowResultDTO](t, env).Following {
		t.Fatalf("follow status = %d", code)
	}

	code, env = app.do(t, http.MethodGet, "/api/tweets/feed?feedType=following&page=1&limit=10", alice.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("feed status = %d", code)
	}
	feed := decode[*dto.TweetListDTO](t, env)
	if len(feed.Tweets) != 1 || feed.Tweets[0].ID != tweet.ID || feed.Tweets[0].Author.Username != "bob" {
		t.Fatalf("feed = %+v", feed.Tweets)
	}

	code, env = app.do(t, http.MethodPost, "/api/tweets/"+tweet.ID+"/like", alice.Token, nil)
	if code != http.StatusOK || !decode[*dto.LikeResultDTO](t, env).Liked {
		t.Fatalf("like status = %d", code)
	}

	code, env = app.do(t, http.MethodGet, "/api/notifications/unread-count", bob.Token, nil)
	if code != http.StatusOK {
		t.Fatalf("unread status = %d", code)
	}
	if got := decode[map[string]int64](t, env)["unreadCount"]; got != 2 {
		t.Errorf("unread = %d, want 2 (follow + like)", got)
	}
	if code, _ = app.do(t, http.MethodPatch, "/api/notifications/read", bob.Token, nil); code != http.StatusOK {
		t.Fatalf("mark read status = %d", code)
	}
	code, env = app.do(t, http.MethodGet, "/api/notifications?page=1&limit=10", bob.Token, nil)
	list := decode[*dto.NotificationListDTO](t, env)
	if code != http.StatusOK || list.UnreadCount != 0 || len(list.Notifications) != 2 {
		t.Errorf("notifications = %d unread=%d", len(list.Notifications), list.UnreadCount)
	}

	code, env = app.do(t, http.MethodGet, "/api/users/bob/followers", alice.Token, nil)
	followers := decode[*dto.UserListDTO](t, env)
	if code != http.StatusOK || len(followers.Users) != 1 || followers.Users[0].Username != "alice" {
		t.Errorf("followers = %+v", followers.Users)
	}

	if code, _ = app.do(t, http.MethodDelete, "/api/tweets/"+tweet.ID, alice.Token, nil); code != http.StatusForbidden {
		t.Errorf("foreign delete status = %d, want 403", code)
	}
	if code, _ = app.do(t, http.MethodDelete, "/api/tweets/"+tweet.ID, bob.Token, nil); code != http.StatusOK {
		t.Errorf("owner delete status = %d", code)
	}
	if code, _ = app.do(t, http.MethodGet, "/api/tweets/"+tweet.ID, alice.Token, nil); code != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	code, env := app.do(t, http.MethodGet, "/health", "", nil)
	if code != http.StatusOK {
		t.Fatalf("health = %d", code)
	}
	status := decode[map[string]any](t, env)
	if status["database"] != "connected" || status["redis"] != "connected" {
		t.Errorf("health = %v", status)
	}

	app.dbDown = true
	code, env = app.do(t, http.MethodGet, "/health", "", nil)
	if code != http.StatusServiceUnavailable || decode[map[string]any](t, env)["database"] != "disconnected" {
		t.Errorf("health with db down = %d", code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("warbler_http_request_duration_seconds")) {
		t.Errorf("metrics status = %d", w.Code)
	}
}
