package security

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserClaims 会话令牌中携带的用户身份
type UserClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}
