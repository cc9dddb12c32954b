package response

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/pkg/util"
	"Warbler/internal/service"
	stdjson "encoding/json"
	"errors"
	"io"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	Ok                  = http.StatusOK
	Created             = http.StatusCreated
	BadRequest          = http.StatusBadRequest
	Unauthorized        = http.StatusUnauthorized
	Forbidden           = http.StatusForbidden
	NotFound            = http.StatusNotFound
	InternalServerError = http.StatusInternalServerError
)

// Success 成功返回封装
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.Response{
		Code:    Ok,
		Message: "success",
		Data:    data,
	})
}

// SuccessCreated 资源创建成功
func SuccessCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, dto.Response{
		Code:    Created,
		Message: "success",
		Data:    data,
	})
}

// Fail 失败返回封装，HTTP 状态码与 code 一致
func Fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, dto.Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

// Error 处理错误
func Error(c *gin.Context, err error) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		Fail(c, BadRequest, service.ErrParamInvalid.Error())
		return
	}

	var dtoErr *util.ValidationError
	if errors.As(err, &dtoErr) {
		Fail(c, BadRequest, dtoErr.Error())
		return
	}

	if isBodyError(err) {
		Fail(c, BadRequest, "Invalid JSON body")
		return
	}

	for target, code := range service.ErrorMap {
		if errors.Is(err, target) {
			Fail(c, code, target.Error())
			return
		}
	}

	log.ErrorContext(c.Request.Context(), "unhandled error", "path", c.FullPath(), "err", err)
	message := service.UnExpectedError.Error()
	if gin.Mode() == gin.DebugMode {
		message = err.Error()
	}
	Fail(c, InternalServerError, message)
}

// isBodyError gin 默认使用标准库解码，go_json 构建标签下使用 goccy
func isBodyError(err error) bool {
	var unmarshalTypeError *json.UnmarshalTypeError
	var syntaxError *json.SyntaxError
	var stdTypeError *stdjson.UnmarshalTypeError
	var stdSyntaxError *stdjson.SyntaxError
	return errors.As(err, &unmarshalTypeError) || errors.As(err, &syntaxError) ||
		errors.As(err, &stdTypeError) || errors.As(err, &stdSyntaxError) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
