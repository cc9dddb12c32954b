package logger

import (
	"Warbler/internal/api/config"
	"io"
	log "log/slog"
	"net"
	"os"
	"time"
)

// InitLogger 初始化全局 slog，配置了 Logstash 地址时同时上报远端，返回 gin 访问日志使用的 Writer
func InitLogger(cfg config.LogstashConfig, mode string) io.Writer {
	level := log.LevelInfo
	if mode == "development" {
		level = log.LevelDebug
	}

	hStdout := log.NewJSONHandler(os.Stdout, &log.HandlerOptions{Level: level})

	var finalHandler log.Handler = hStdout
	var writer io.Writer = os.Stdout

	if cfg.Address != "" {
		conn, err := net.DialTimeout("tcp", cfg.Address, 3*time.Second)
		if err == nil {
			hRemote := log.NewJSONHandler(conn, &log.HandlerOptions{Level: level}).
				WithAttrs([]log.Attr{log.String("target_index", cfg.Index)})

			finalHandler = &TeeHandler{
				handlers: []log.Handler{hStdout, &RemoteFilterHandler{next: hRemote}},
			}
			writer = io.MultiWriter(os.Stdout, conn)
		} else {
			log.Warn("Failed to connect to Logstash, logging to stdout only", "addr", cfg.Address, "err", err)
		}
	}

	log.SetDefault(log.New(&ContextHandler{finalHandler}))
	return writer
}
