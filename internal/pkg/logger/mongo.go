package logger

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/event"
)

// 握手与心跳类命令不记录
var quietMongoCommands = map[string]struct{}{
	"hello":         {},
	"isMaster":      {},
	"ismaster":      {},
	"ping":          {},
	"saslStart":     {},
	"saslContinue":  {},
	"endSessions":   {},
	"buildInfo":     {},
	"getLastError":  {},
	"killCursors":   {},
	"listIndexes":   {},
	"createIndexes": {},
}

// NewMongoMonitor 返回记录命令明细、慢查询与失败的 CommandMonitor
func NewMongoMonitor(slow time.Duration) *event.CommandMonitor {
	if slow <= 0 {
		slow = 200 * time.Millisecond
	}

	return &event.CommandMonitor{
		Started: func(ctx context.Context, evt *event.CommandStartedEvent) {
			if _, ok := quietMongoCommands[evt.CommandName]; ok {
				return
			}
			log.DebugContext(ctx, "MongoDB Started",
				log.String("command", evt.CommandName),
				log.String("database", evt.DatabaseName),
				log.String("request_id", fmt.Sprintf("%d", evt.RequestID)),
				log.String("cmd_detail", truncate(redactPassword(evt.Command.String()), 1000)),
			)
		},
		Succeeded: func(ctx context.Context, evt *event.CommandSucceededEvent) {
			if _, ok := quietMongoCommands[evt.CommandName]; ok {
				return
			}
			fields := []any{
				log.String("command", evt.CommandName),
				log.Duration("latency", evt.Duration),
				log.String("request_id", fmt.Sprintf("%d", evt.RequestID)),
			}

			if evt.Duration > slow {
				log.WarnContext(ctx, "MongoDB Slow", fields...)
			} else {
				log.DebugContext(ctx, "MongoDB Success", fields...)
			}
		},
		Failed: func(ctx context.Context, evt *event.CommandFailedEvent) {
			log.ErrorContext(ctx, "MongoDB Error",
				log.String("command", evt.CommandName),
				log.Duration("latency", evt.Duration),
				log.String("request_id", fmt.Sprintf("%d", evt.RequestID)),
				log.Any("err", evt.Failure),
			)
		},
	}
}

// redactPassword 去掉命令里的密码哈希
func redactPassword(cmd string) string {
	idx := strings.Index(cmd, `"password":`)
	if idx < 0 {
		return cmd
	}
	end := strings.IndexAny(cmd[idx+len(`"password":`):], ",}")
	if end < 0 {
		return cmd[:idx] + `"password":"[PROTECTED]"`
	}
	return cmd[:idx] + `"password":"[PROTECTED]"` + cmd[idx+len(`"password":`)+end:]
}

func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit] + "...[truncated]"
	}
	return s
}
