package service

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/model"
	"Warbler/internal/pkg/consts"
	"Warbler/internal/pkg/metrics"
	"Warbler/internal/pkg/util"
	"Warbler/internal/repository"
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

const (
	FeedFollowing = "following"
	FeedForYou    = "forYou"
)

type FeedService interface {
	GetFeed(ctx context.Context, userID primitive.ObjectID, mode string, page, limit int) (*dto.TweetListDTO, error)
}

type FeedServiceImpl struct {
	tweets   repository.TweetRepo
	users    repository.UserRepo
	hydrator *tweetHydrator
}

func NewFeedService(tweets repository.TweetRepo, users repository.UserRepo) FeedService {
	return &FeedServiceImpl{
		tweets:   tweets,
		users:    users,
		hydrator: &tweetHydrator{users: users, tweets: tweets},
	}
}

// GetFeed 空 mode 视为 forYou，任一查询失败整个请求失败
func (s *FeedServiceImpl) GetFeed(ctx context.Context, userID primitive.ObjectID, mode string, page, limit int) (*dto.TweetListDTO, error) {
	if mode == "" {
		mode = FeedForYou
	}
	if mode != FeedFollowing && mode != FeedForYou {
		return nil, ErrInvalidFeedType
	}
	page, limit = util.NormalizePage(page, limit, consts.MaxFeedLimit)

	start := time.Now()
	defer func() {
		metrics.FeedAssembly.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	authors := append([]primitive.ObjectID{userID}, user.Following...)

	var (
		list  []*model.Tweet
		total int64
	)
	if mode == FeedFollowing {
		list, total, err = s.following(ctx, authors, page, limit)
	} else {
		list, total, err = s.forYou(ctx, authors, page, limit)
	}
	if err != nil {
		return nil, err
	}

	items, err := s.hydrator.hydrate(ctx, list, userID)
	if err != nil {
		return nil, err
	}
	return &dto.TweetListDTO{Tweets: items, Pagination: newPagination(page, limit, total)}, nil
}

// following 关注时间线，总数为精确计数
func (s *FeedServiceImpl) following(ctx context.Context, authors []primitive.ObjectID, page, limit int) ([]*model.Tweet, int64, error) {
	q := repository.TweetQuery{
		AuthorIn:       authors,
		ExcludeReplies: true,
		Sort:           repository.SortRecent,
		Skip:           int64((page - 1) * limit),
		Limit:          int64(limit),
	}
	list, err := s.tweets.Find(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.tweets.Count(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// forYou 关注集合与热度推荐并发查询后合并，按 id 去重（先出现者保留），
// 再按发布时间稳定排序并在内存中分页。总数取合并后的长度，是近似值
func (s *FeedServiceImpl) forYou(ctx context.Context, authors []primitive.ObjectID, page, limit int) ([]*model.Tweet, int64, error) {
	var followed, suggested []*model.Tweet

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		followed, err = s.tweets.Find(gctx, repository.TweetQuery{
			AuthorIn:       authors,
			ExcludeReplies: true,
			Sort:           repository.SortRecent,
			Limit:          int64(limit * 2),
		})
		return err
	})
	g.Go(func() error {
		var err error
		suggested, err = s.tweets.Find(gctx, repository.TweetQuery{
			AuthorNotIn:    authors,
			ExcludeReplies: true,
			Sort:           repository.SortEngagement,
			Limit:          int64(limit),
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	merged := mergeFeed(followed, suggested)
	total := int64(len(merged))

	start := (page - 1) * limit
	if start > len(merged) {
		start = len(merged)
	}
	end := start + limit
	if end > len(merged) {
		end = len(merged)
	}
	return merged[start:end], total, nil
}

func mergeFeed(sets ...[]*model.Tweet) []*model.Tweet {
	seen := make(map[primitive.ObjectID]struct{})
	var merged []*model.Tweet
	for _, set := range sets {
		for _, t := range set {
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			merged = append(merged, t)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	return merged
}
