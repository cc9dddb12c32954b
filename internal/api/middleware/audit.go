package middleware

import (
	"bytes"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const auditBodyLimit = 16384

var passwordField = regexp.MustCompile(`("(?:password|idToken|token)"\s*:\s*)"[^"]*"`)

type responseBodyWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *responseBodyWriter) Write(b []byte) (int, error) {
	if r.body.Len() < auditBodyLimit {
		r.body.Write(b)
	}
	return r.ResponseWriter.Write(b)
}

func (r *responseBodyWriter) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// redactBody 屏蔽口令与令牌字段
func redactBody(body []byte) string {
	if len(body) > auditBodyLimit {
		body = body[:auditBodyLimit]
	}
	return passwordField.ReplaceAllString(string(body), `$1"***"`)
}

// AuditMiddleware 记录请求与响应，multipart 与 websocket 请求不记录正文
func AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
			log.InfoContext(ctx, "Recv Upgrade", log.String("path", c.Request.URL.Path))
			c.Next()
			return
		}

		var reqBody []byte
		contentType := c.ContentType()
		if c.Request.Body != nil && !strings.HasPrefix(contentType, "multipart/") {
			reqBody, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(reqBody))
		}

		rawQuery := c.Request.URL.RawQuery
		decodedQuery, err := url.QueryUnescape(rawQuery)
		if err != nil {
			decodedQuery = rawQuery
		}

		log.InfoContext(ctx, "Recv Request",
			log.String("method", c.Request.Method),
			log.String("path", c.Request.URL.Path),
			log.String("query", decodedQuery),
			log.String("req_body", redactBody(reqBody)),
		)

		w := &responseBodyWriter{body: &bytes.Buffer{}, ResponseWriter: c.Writer}
		c.Writer = w
		startTime := time.Now()

		c.Next()

		log.InfoContext(ctx, "Send Response",
			log.Int("status", c.Writer.Status()),
			log.Duration("latency", time.Since(startTime)),
			log.String("res_body", redactBody(w.body.Bytes())),
		)
	}
}
