package realtime

import (
	"Warbler/internal/pkg/metrics"
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Emitter 业务层使用的实时推送接口
type Emitter interface {
	ToRoom(ctx context.Context, room, event string, data any)
	Broadcast(ctx context.Context, event string, data any, exceptConn string)
}

// Bus 通过 Redis Pub/Sub 在多进程之间转发事件，再投递到本地 Hub。
// Redis 不可用时退化为仅本进程投递
type Bus struct {
	rdb     redis.UniversalClient
	channel string
	hub     *Hub
	origin  string
}

func NewBus(rdb redis.UniversalClient, channel string, hub *Hub) *Bus {
	return &Bus{
		rdb:     rdb,
		channel: channel,
		hub:     hub,
		origin:  uuid.NewString(),
	}
}

func (b *Bus) ToRoom(ctx context.Context, room, event string, data any) {
	b.emit(ctx, Envelope{Room: room, Event: event}, data)
}

func (b *Bus) Broadcast(ctx context.Context, event string, data any, exceptConn string) {
	b.emit(ctx, Envelope{Event: event, Except: exceptConn}, data)
}

func (b *Bus) emit(ctx context.Context, env Envelope, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		log.ErrorContext(ctx, "encode bus payload failed", "event", env.Event, "err", err)
		return
	}
	env.Data = raw
	b.Publish(ctx, env)
}

// Publish 发布到 backplane，失败时本地投递
func (b *Bus) Publish(ctx context.Context, env Envelope) {
	env.Origin = b.origin
	if b.rdb != nil {
		payload, err := json.Marshal(env)
		if err == nil {
			err = b.rdb.Publish(ctx, b.channel, payload).Err()
		}
		if err == nil {
			metrics.BusEventsPublished.WithLabelValues(env.Event, "backplane").Inc()
			return
		}
		log.WarnContext(ctx, "bus backplane unavailable, delivering locally", "event", env.Event, "err", err)
	}
	metrics.BusEventsPublished.WithLabelValues(env.Event, "local").Inc()
	b.hub.Deliver(env)
}

// Run 订阅 backplane 并把事件投递到本地 Hub，断线后退避重连，ctx 结束时返回
func (b *Bus) Run(ctx context.Context) error {
	if b.rdb == nil {
		<-ctx.Done()
		return nil
	}

	backoff := time.Second
	for {
		err := b.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn("bus subscription lost, retrying", "channel", b.channel, "err", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (b *Bus) consume(ctx context.Context) error {
	pubsub := b.rdb.Subscribe(ctx, b.channel)
	defer func() {
		_ = pubsub.Close()
	}()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	log.Info("bus subscribed", "channel", b.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return redis.ErrClosed
			}
			var env Envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				log.Warn("drop malformed bus envelope", "err", err)
				continue
			}
			metrics.BusEventsReceived.WithLabelValues(env.Event).Inc()
			b.hub.Deliver(env)
		}
	}
}
