package security

import (
	"Warbler/internal/api/config"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenManager 签发与校验 HS256 会话令牌
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

func NewTokenManager(cfg config.JWTConfig) *TokenManager {
	days := cfg.ExpireDays
	if days <= 0 {
		days = 60
	}
	return &TokenManager{
		secret: []byte(cfg.Secret),
		ttl:    time.Duration(days) * 24 * time.Hour,
		issuer: cfg.Issuer,
	}
}

// GenerateToken 生成一个新的 JWT Token
func (m *TokenManager) GenerateToken(userID string) (string, error) {
	now := time.Now()
	claims := &UserClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken 验证 Token 字符串并解析出 Claims
func (m *TokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	claims := &UserClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("token invalid or expired")
	}
	return claims, nil
}

// Remaining 令牌剩余有效期，用于黑名单过期时间
func (m *TokenManager) Remaining(claims *UserClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return m.ttl
	}
	d := time.Until(claims.ExpiresAt.Time)
	if d < 0 {
		return 0
	}
	return d
}

// ExtractSignature 从 Token 字符串中提取签名
func ExtractSignature(tokenString string) (string, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 || parts[2] == "" {
		return "", errors.New("malformed token")
	}
	return parts[2], nil
}
