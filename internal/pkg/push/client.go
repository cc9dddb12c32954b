package push

import (
	"Warbler/internal/api/config"
	"Warbler/internal/pkg/metrics"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Message 发送给单个用户的推送，UserID 对应 OneSignal 的 external_id
type Message struct {
	UserID string
	Title  string
	Body   string
	Image  string
	Data   map[string]string
}

type notificationRequest struct {
	AppID          string              `json:"app_id"`
	TargetChannel  string              `json:"target_channel"`
	IncludeAliases map[string][]string `json:"include_aliases"`
	Headings       map[string]string   `json:"headings"`
	Contents       map[string]string   `json:"contents"`
	Data           map[string]string   `json:"data,omitempty"`
	LargeIcon      string              `json:"large_icon,omitempty"`
	Priority       int                 `json:"priority"`
}

// Client OneSignal 推送客户端，失败只记录日志
type Client struct {
	appID   string
	http    *resty.Client
	cb      *gobreaker.CircuitBreaker[struct{}]
	limiter *rate.Limiter
	timeout time.Duration
}

// NewClient AppID 为空时返回的客户端不发送任何请求
func NewClient(cfg config.PushConfig) *Client {
	c := &Client{appID: cfg.AppID, timeout: cfg.Timeout}
	if cfg.AppID == "" || cfg.APIKey == "" {
		log.Warn("push notifications disabled, onesignal credentials missing")
		return c
	}
	if c.timeout <= 0 {
		c.timeout = 5 * time.Second
	}

	c.http = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(c.timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Key "+cfg.APIKey)

	c.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "onesignal",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("push circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 20
	}
	c.limiter = rate.NewLimiter(rate.Limit(perSec), int(perSec))
	return c
}

// Enabled 是否配置了推送凭据
func (c *Client) Enabled() bool {
	return c.http != nil
}

// Dispatch 异步发送，不阻塞调用方也不返回错误
func (c *Client) Dispatch(ctx context.Context, msg Message) {
	if !c.Enabled() {
		return
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		sendCtx, cancel := context.WithTimeout(bg, c.timeout)
		defer cancel()
		if err := c.Send(sendCtx, msg); err != nil {
			log.WarnContext(sendCtx, "push dispatch failed", "user_id", msg.UserID, "title", msg.Title, "err", err)
		}
	}()
}

// Send 同步发送，受限流与熔断保护
func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.Enabled() {
		return nil
	}
	if !c.limiter.Allow() {
		metrics.PushDispatched.WithLabelValues("rate_limited").Inc()
		return errors.New("push rate limit exceeded")
	}

	_, err := c.cb.Execute(func() (struct{}, error) {
		return struct{}{}, c.post(ctx, msg)
	})
	switch {
	case err == nil:
		metrics.PushDispatched.WithLabelValues("sent").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.PushDispatched.WithLabelValues("rejected").Inc()
	default:
		metrics.PushDispatched.WithLabelValues("failed").Inc()
	}
	return err
}

func (c *Client) post(ctx context.Context, msg Message) error {
	body := notificationRequest{
		AppID:          c.appID,
		TargetChannel:  "push",
		IncludeAliases: map[string][]string{"external_id": {msg.UserID}},
		Headings:       map[string]string{"en": msg.Title},
		Contents:       map[string]string{"en": msg.Body},
		Data:           msg.Data,
		LargeIcon:      msg.Image,
		Priority:       10,
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post("/notifications")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("onesignal responded %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
