package push

import (
	"Warbler/internal/api/config"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestSendPostsToOneSignal(t *testing.T) {
	var got notificationRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notifications" {
			t.Errorf("path = %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &got)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"n1"}`))
	}))
	defer srv.Close()

	c := NewClient(config.PushConfig{AppID: "app", APIKey: "secret", BaseURL: srv.URL, Timeout: time.Second, RatePerSec: 5})
	err := c.Send(context.Background(), Message{UserID: "u1", Title: "New like", Body: "alice liked your tweet", Data: map[string]string{"type": "like"}})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if auth != "Key secret" {
		t.Errorf("Authorization = %q", auth)
	}
	if got.AppID != "app" || got.IncludeAliases["external_id"][0] != "u1" || got.Headings["en"] != "New like" {
		t.Errorf("unexpected body %+v", got)
	}
}

func TestSendReportsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"errors":["bad"]}`))
	}))
	defer srv.Close()

	c := NewClient(config.PushConfig{AppID: "app", APIKey: "secret", BaseURL: srv.URL, Timeout: time.Second})
	err := c.Send(context.Background(), Message{UserID: "u1", Title: "t", Body: "b"})
	if err == nil || !strings.Contains(err.Error(), "400") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(config.PushConfig{AppID: "app", APIKey: "secret", BaseURL: srv.URL, Timeout: time.Second, RatePerSec: 100})
	for i := 0; i < 8; i++ {
		_ = c.Send(context.Background(), Message{UserID: "u1"})
	}
	if n := atomic.LoadInt32(&hits); n != 5 {
		t.Errorf("provider hits = %d, want 5 before the breaker opens", n)
	}
}

func TestDisabledClientIsNoop(t *testing.T) {
	c := NewClient(config.PushConfig{})
	if c.Enabled() {
		t.Fatal("client without credentials should be disabled")
	}
	if err := c.Send(context.Background(), Message{UserID: "u1"}); err != nil {
		t.Errorf("Send on disabled client: %v", err)
	}
	c.Dispatch(context.Background(), Message{UserID: "u1"})
}
