package middleware

import (
	"Warbler/internal/api/config"
	"Warbler/internal/pkg/consts"
	"Warbler/internal/pkg/security"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(auth *Authenticator) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthMiddleware(auth), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(consts.UserIDKey))
	})
	return r
}

func doGet(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens := security.NewTokenManager(config.JWTConfig{Secret: "test-secret", Issuer: "warbler"})
	r := newAuthRouter(NewAuthenticator(tokens, rdb))

	userID := primitive.NewObjectID().Hex()
	token, err := tokens.GenerateToken(userID)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer not.a.token", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(r, tt.header)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d, body %s", w.Code, tt.status, w.Body.String())
			}
			if tt.status == http.StatusOK && w.Body.String() != userID {
				t.Errorf("user id = %q, want %q", w.Body.String(), userID)
			}
		})
	}
}

func TestAuthMiddlewareBlacklisted(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tokens := security.NewTokenManager(config.JWTConfig{Secret: "test-secret"})
	r := newAuthRouter(NewAuthenticator(tokens, rdb))

	token, _ := tokens.GenerateToken(primitive.NewObjectID().Hex())
	sig, _ := security.ExtractSignature(token)
	if err := mr.Set(consts.TokenBlacklistKey+sig, "1"); err != nil {
		t.Fatal(err)
	}

	if w := doGet(r, "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddlewareRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1, DialTimeout: 200 * time.Millisecond})
	tokens := security.NewTokenManager(config.JWTConfig{Secret: "test-secret"})
	r := newAuthRouter(NewAuthenticator(tokens, rdb))
	token, _ := tokens.GenerateToken(primitive.NewObjectID().Hex())
	mr.Close()

	if w := doGet(r, "Bearer "+token); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 when blacklist is unreachable", w.Code)
	}
}

func TestRedactBody(t *testing.T) {
	got := redactBody([]byte(`{"email":"a@b.c","password":"hunter22"}`))
	want := `{"email":"a@b.c","password":"***"}`
	if got != want {
		t.Errorf("redactBody = %s, want %s", got, want)
	}
}
