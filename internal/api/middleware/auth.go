package middleware

import (
	"Warbler/internal/pkg/consts"
	"Warbler/internal/pkg/redis"
	"Warbler/internal/pkg/response"
	"Warbler/internal/pkg/security"
	"Warbler/internal/pkg/util"
	"Warbler/internal/service"
	"context"
	log "log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Authenticator 校验会话令牌与黑名单，HTTP 与 websocket 共用
type Authenticator struct {
	tokens *security.TokenManager
	rdb    redisv9.Cmdable
}

func NewAuthenticator(tokens *security.TokenManager, rdb redisv9.Cmdable) *Authenticator {
	return &Authenticator{tokens: tokens, rdb: rdb}
}

// Authenticate 返回令牌对应的用户 ID；Redis 不可用时跳过黑名单检查
func (a *Authenticator) Authenticate(ctx context.Context, token string) (primitive.ObjectID, error) {
	if token == "" {
		return primitive.NilObjectID, service.UnauthorizedError
	}
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		return primitive.NilObjectID, service.ErrTokenInvalid
	}
	userID, ok := util.ParseObjectID(claims.UserID)
	if !ok {
		return primitive.NilObjectID, service.ErrTokenInvalid
	}

	if a.rdb != nil {
		signature, err := security.ExtractSignature(token)
		if err != nil {
			return primitive.NilObjectID, service.ErrTokenInvalid
		}
		value, err := redis.GetValue(ctx, a.rdb, consts.TokenBlacklistKey+signature)
		if err != nil {
			log.WarnContext(ctx, "token blacklist check skipped", "err", err)
		} else if value != "" {
			return primitive.NilObjectID, service.ErrTokenInvalid
		}
	}
	return userID, nil
}

// AuthMiddleware 负责验证 JWT 并将用户身份信息注入 Context
func AuthMiddleware(auth *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			response.Fail(c, response.Unauthorized, service.UnauthorizedError.Error())
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		userID, err := auth.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			response.Fail(c, response.Unauthorized, err.Error())
			return
		}

		c.Set(consts.UserIDKey, userID.Hex())
		c.Set(consts.TokenKey, tokenString)

		newCtx := context.WithValue(c.Request.Context(), consts.UserIDKey, userID.Hex())
		c.Request = c.Request.WithContext(newCtx)

		c.Next()
	}
}
