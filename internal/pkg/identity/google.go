package identity

import (
	"Warbler/internal/api/config"
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidIDToken = errors.New("invalid identity token")

// GoogleProfile 第三方身份中解析出的用户资料
type GoogleProfile struct {
	GoogleID string
	Email    string
	Name     string
	Picture  string
}

// Verifier 校验客户端提交的 ID Token
type Verifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleProfile, error)
}

type googleClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// FirebaseVerifier 使用 Google 公布的 x509 证书校验 Firebase ID Token (RS256)
type FirebaseVerifier struct {
	projectID string
	certsURL  string
	client    *resty.Client

	mu        sync.RWMutex
	keys      map[string]*rsa.PublicKey
	expiresAt time.Time
}

func NewFirebaseVerifier(cfg config.IdentityConfig) *FirebaseVerifier {
	return &FirebaseVerifier{
		projectID: cfg.GoogleProjectID,
		certsURL:  cfg.CertsURL,
		client: resty.New().
			SetTimeout(5 * time.Second).
			SetRetryCount(2).
			SetRetryWaitTime(200 * time.Millisecond),
	}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*GoogleProfile, error) {
	keys, err := v.publicKeys(ctx)
	if err != nil {
		return nil, err
	}

	claims := &googleClaims{}
	_, err = jwt.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		key, ok := keys[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.projectID),
		jwt.WithIssuer("https://securetoken.google.com/"+v.projectID),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		log.WarnContext(ctx, "id token rejected", "err", err)
		return nil, ErrInvalidIDToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, ErrInvalidIDToken
	}

	return &GoogleProfile{
		GoogleID: claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Picture:  claims.Picture,
	}, nil
}

// publicKeys 证书按小时缓存
func (v *FirebaseVerifier) publicKeys(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	v.mu.RLock()
	if v.keys != nil && time.Now().Before(v.expiresAt) {
		keys := v.keys
		v.mu.RUnlock()
		return keys, nil
	}
	v.mu.RUnlock()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.keys != nil && time.Now().Before(v.expiresAt) {
		return v.keys, nil
	}

	var certs map[string]string
	resp, err := v.client.R().SetContext(ctx).SetResult(&certs).Get(v.certsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch identity certs: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch identity certs: status %d", resp.StatusCode())
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pem := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			log.WarnContext(ctx, "skip unparsable identity cert", "kid", kid, "err", err)
			continue
		}
		keys[kid] = key
	}
	if len(keys) == 0 {
		return nil, errors.New("no usable identity certs")
	}

	v.keys = keys
	v.expiresAt = time.Now().Add(time.Hour)
	return keys, nil
}
