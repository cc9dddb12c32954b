package handler

import (
	"Warbler/internal/pkg/consts"
	"Warbler/internal/pkg/response"
	"Warbler/internal/pkg/util"
	"Warbler/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUser 读取鉴权中间件注入的用户 ID，缺失时直接写回 401
func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	id, ok := util.ParseObjectID(c.GetString(consts.UserIDKey))
	if !ok {
		response.Error(c, service.UnauthorizedError)
		return primitive.NilObjectID, false
	}
	return id, true
}

// bindAndValidate 绑定请求并执行 validate 标签校验，失败时已写回响应
func bindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		response.Error(c, err)
		return false
	}
	if err := util.ValidateDTO(obj); err != nil {
		response.Error(c, err)
		return false
	}
	return true
}
