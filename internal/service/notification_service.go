package service

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/model"
	"Warbler/internal/pkg/consts"
	"Warbler/internal/pkg/metrics"
	"Warbler/internal/pkg/push"
	"Warbler/internal/pkg/realtime"
	"Warbler/internal/pkg/util"
	"Warbler/internal/repository"
	"context"
	log "log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// Pusher 推送侧通道，调用方不等待结果
type Pusher interface {
	Dispatch(ctx context.Context, msg push.Message)
}

type NotificationService interface {
	Create(ctx context.Context, recipient, actor primitive.ObjectID, typ string, tweet *primitive.ObjectID) *model.Notification
	List(ctx context.Context, userID primitive.ObjectID, page, limit int) (*dto.NotificationListDTO, error)
	UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, userID primitive.ObjectID, id string) error
}

type NotificationServiceImpl struct {
	notifications repository.NotificationRepo
	users         repository.UserRepo
	tweets        repository.TweetRepo
	emitter       realtime.Emitter
	pusher        Pusher
	dedupWindow   time.Duration
}

func NewNotificationService(
	notifications repository.NotificationRepo,
	users repository.UserRepo,
	tweets repository.TweetRepo,
	emitter realtime.Emitter,
	pusher Pusher,
	dedupWindow time.Duration,
) NotificationService {
	return &NotificationServiceImpl{
		notifications: notifications,
		users:         users,
		tweets:        tweets,
		emitter:       emitter,
		pusher:        pusher,
		dedupWindow:   dedupWindow,
	}
}

// Create 去重后写入通知并推送实时事件与离线推送。
// 自己触发的、已有未读同类通知的以及写入失败的都返回 nil，错误只记录日志
func (s *NotificationServiceImpl) Create(ctx context.Context, recipient, actor primitive.ObjectID, typ string, tweet *primitive.ObjectID) *model.Notification {
	if recipient == actor {
		return nil
	}

	n := &model.Notification{
		Recipient: recipient,
		Actor:     actor,
		Type:      typ,
		Tweet:     tweet,
	}

	var since time.Time
	if s.dedupWindow > 0 {
		since = time.Now().Add(-s.dedupWindow)
	}
	existing, err := s.notifications.FindUnreadDuplicate(ctx, n, since)
	if err != nil {
		log.ErrorContext(ctx, "notification dedup lookup failed", "type", typ, "err", err)
		return nil
	}
	if existing != nil {
		metrics.NotificationsSuppressed.WithLabelValues(typ).Inc()
		return nil
	}

	if err = s.notifications.Create(ctx, n); err != nil {
		log.ErrorContext(ctx, "create notification failed", "type", typ, "err", err)
		return nil
	}
	metrics.NotificationsCreated.WithLabelValues(typ).Inc()

	actorUser, err := s.users.GetByID(ctx, actor)
	if err != nil {
		log.WarnContext(ctx, "load notification actor failed", "actor", actor.Hex(), "err", err)
	}

	item := &dto.NotificationDTO{
		ID:        n.ID.Hex(),
		Type:      n.Type,
		Actor:     toUserSummary(actorUser),
		Read:      false,
		CreatedAt: n.CreatedAt,
	}
	if tweet != nil {
		item.Tweet = &dto.NotificationTweetDTO{ID: tweet.Hex()}
	}
	s.emitter.ToRoom(ctx, realtime.UserRoom(recipient.Hex()), realtime.EventNotification, item)

	if actorUser != nil {
		s.pusher.Dispatch(ctx, buildPush(n, actorUser))
	}
	return n
}

func buildPush(n *model.Notification, actor *model.User) push.Message {
	msg := push.Message{
		UserID: n.Recipient.Hex(),
		Image:  actor.ProfilePic,
		Data:   map[string]string{"type": n.Type},
	}
	if n.Tweet != nil {
		msg.Data["tweetId"] = n.Tweet.Hex()
	}

	switch n.Type {
	case model.NotificationLike:
		msg.Title, msg.Body = "New like", actor.Name+" liked your tweet"
	case model.NotificationRetweet:
		msg.Title, msg.Body = "New retweet", actor.Name+" retweeted your tweet"
	case model.NotificationFollow:
		msg.Title, msg.Body = "New follower", actor.Name+" started following you"
		msg.Data["userId"] = actor.ID.Hex()
	case model.NotificationReply:
		msg.Title, msg.Body = "New reply", actor.Name+" replied to your tweet"
	}
	return msg
}

// List 通知列表、未读数与总数三个查询并发执行
func (s *NotificationServiceImpl) List(ctx context.Context, userID primitive.ObjectID, page, limit int) (*dto.NotificationListDTO, error) {
	page, limit = util.NormalizePage(page, limit, consts.MaxNoticeLimit)
	skip := int64((page - 1) * limit)

	var (
		list   []*model.Notification
		unread int64
		total  int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.notifications.List(gctx, userID, skip, int64(limit))
		return err
	})
	g.Go(func() error {
		var err error
		unread, err = s.notifications.CountUnread(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.notifications.CountAll(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items, err := s.hydrate(ctx, list)
	if err != nil {
		return nil, err
	}
	return &dto.NotificationListDTO{
		Notifications: items,
		UnreadCount:   unread,
		Pagination:    newPagination(page, limit, total),
	}, nil
}

func (s *NotificationServiceImpl) hydrate(ctx context.Context, list []*model.Notification) ([]*dto.NotificationDTO, error) {
	actorIDs := make([]primitive.ObjectID, 0, len(list))
	var tweetIDs []primitive.ObjectID
	for _, n := range list {
		actorIDs = append(actorIDs, n.Actor)
		if n.Tweet != nil {
			tweetIDs = append(tweetIDs, *n.Tweet)
		}
	}

	actors := make(map[primitive.ObjectID]*model.User)
	if len(actorIDs) > 0 {
		users, err := s.users.GetByIDs(ctx, actorIDs)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			actors[u.ID] = u
		}
	}
	tweets := make(map[primitive.ObjectID]*model.Tweet)
	if len(tweetIDs) > 0 {
		found, err := s.tweets.GetByIDs(ctx, tweetIDs)
		if err != nil {
			return nil, err
		}
		for _, t := range found {
			tweets[t.ID] = t
		}
	}

	out := make([]*dto.NotificationDTO, 0, len(list))
	for _, n := range list {
		item := &dto.NotificationDTO{
			ID:        n.ID.Hex(),
			Type:      n.Type,
			Actor:     toUserSummary(actors[n.Actor]),
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
		if n.Tweet != nil {
			item.Tweet = &dto.NotificationTweetDTO{ID: n.Tweet.Hex()}
			if t, ok := tweets[*n.Tweet]; ok && !t.IsDeleted {
				item.Tweet.Text = t.Text
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.notifications.CountUnread(ctx, userID)
}

// MarkRead id 为空时全部标记已读，否则只标记本人的那一条
func (s *NotificationServiceImpl) MarkRead(ctx context.Context, userID primitive.ObjectID, id string) error {
	if id == "" {
		_, err := s.notifications.MarkAllRead(ctx, userID)
		return err
	}

	nid, ok := util.ParseObjectID(id)
	if !ok {
		return ErrInvalidObjectID
	}
	matched, err := s.notifications.MarkRead(ctx, userID, nid)
	if err != nil {
		return err
	}
	if !matched {
		return ErrNotificationNotFound
	}
	return nil
}
