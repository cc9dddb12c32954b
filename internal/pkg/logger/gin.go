package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupGin 注册 JSON 格式的访问日志与 panic 恢复
func SetupGin(r *gin.Engine, out io.Writer, index string) {
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    out,
		SkipPaths: []string{"/health", "/metrics"},
		Formatter: func(p gin.LogFormatterParams) string {
			var traceID, userID string
			if p.Keys != nil {
				if id, ok := p.Keys[TraceIDKey].(string); ok {
					traceID = id
				}
				if id, ok := p.Keys["user_id"].(string); ok {
					userID = id
				}
			}

			if traceID == "" && p.Request != nil {
				traceID = TraceID(p.Request.Context())
			}

			return fmt.Sprintf(
				`{"time":"%s","level":"INFO","msg":"GIN_ACCESS","trace_id":"%s","user_id":"%s","target_index":"%s","method":"%s","path":"%s","status":%d,"latency":"%v","client_ip":"%s"}`+"\n",
				p.TimeStamp.Format(time.RFC3339),
				traceID,
				userID,
				index,
				p.Method,
				p.Path,
				p.StatusCode,
				p.Latency,
				p.ClientIP,
			)
		},
	}))

	r.Use(gin.Recovery())
}
