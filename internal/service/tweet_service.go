package service

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/model"
	"Warbler/internal/pkg/consts"
	"Warbler/internal/pkg/realtime"
	"Warbler/internal/pkg/util"
	"Warbler/internal/repository"
	"context"
	log "log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MediaClaimer 推文引用的上传文件从临时登记中移除
type MediaClaimer interface {
	Claim(ctx context.Context, urls []string)
}

type TweetService interface {
	CreateTweet(ctx context.Context, authorID primitive.ObjectID, req *dto.CreateTweetDTO) (*dto.TweetDTO, error)
	DeleteTweet(ctx context.Context, tweetID string, requesterID primitive.ObjectID) error
	ToggleLike(ctx context.Context, tweetID string, userID primitive.ObjectID) (*dto.LikeResultDTO, error)
	ToggleRetweet(ctx context.Context, tweetID string, userID primitive.ObjectID) (*dto.RetweetResultDTO, error)
	GetTweet(ctx context.Context, tweetID string, viewerID primitive.ObjectID) (*dto.TweetDetailDTO, error)
	GetUserTweets(ctx context.Context, username string, viewerID primitive.ObjectID, page, limit int) (*dto.TweetListDTO, error)
}

type TweetServiceImpl struct {
	tweets        repository.TweetRepo
	users         repository.UserRepo
	notifications NotificationService
	emitter       realtime.Emitter
	media         MediaClaimer
	hydrator      *tweetHydrator
}

func NewTweetService(
	tweets repository.TweetRepo,
	users repository.UserRepo,
	notifications NotificationService,
	emitter realtime.Emitter,
	media MediaClaimer,
) TweetService {
	return &TweetServiceImpl{
		tweets:        tweets,
		users:         users,
		notifications: notifications,
		emitter:       emitter,
		media:         media,
		hydrator:      &tweetHydrator{users: users, tweets: tweets},
	}
}

func validateMedia(items []dto.MediaDTO) ([]model.Media, error) {
	if len(items) > consts.TweetMaxMedia {
		return nil, ErrTweetMediaLimit
	}
	out := make([]model.Media, 0, len(items))
	for _, m := range items {
		switch m.Type {
		case model.MediaTypeImage, model.MediaTypeVideo, model.MediaTypeGIF:
		default:
			return nil, ErrTweetMediaInvalid
		}
		if strings.TrimSpace(m.URL) == "" {
			return nil, ErrTweetMediaInvalid
		}
		out = append(out, model.Media{Type: m.Type, URL: m.URL, Thumbnail: m.Thumbnail})
	}
	return out, nil
}

// loadVisible 读取未删除的推文，不存在时返回 notFound
func (s *TweetServiceImpl) loadVisible(ctx context.Context, id primitive.ObjectID, notFound error) (*model.Tweet, error) {
	t, err := s.tweets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.IsDeleted {
		return nil, notFound
	}
	return t, nil
}

func (s *TweetServiceImpl) CreateTweet(ctx context.Context, authorID primitive.ObjectID, req *dto.CreateTweetDTO) (*dto.TweetDTO, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, ErrTweetTextRequired
	}
	if utf8.RuneCountInString(text) > consts.TweetMaxLength {
		return nil, ErrTweetTooLong
	}
	media, err := validateMedia(req.Media)
	if err != nil {
		return nil, err
	}

	tweet := &model.Tweet{
		Author:      authorID,
		Text:        text,
		Media:       media,
		TweetType:   model.TweetTypeTweet,
		IsPublished: true,
	}

	var parent *model.Tweet
	switch {
	case req.ReplyTo != "":
		parentID, ok := util.ParseObjectID(req.ReplyTo)
		if !ok {
			return nil, ErrInvalidObjectID
		}
		if parent, err = s.loadVisible(ctx, parentID, ErrParentTweetNotFound); err != nil {
			return nil, err
		}
		tweet.TweetType = model.TweetTypeReply
		tweet.ReplyTo = &parent.ID
		tweet.ReplyToUser = &parent.Author
	case req.QuotedTweet != "":
		quotedID, ok := util.ParseObjectID(req.QuotedTweet)
		if !ok {
			return nil, ErrInvalidObjectID
		}
		quoted, err := s.loadVisible(ctx, quotedID, ErrQuotedTweetNotFound)
		if err != nil {
			return nil, err
		}
		tweet.TweetType = model.TweetTypeQuote
		tweet.QuotedTweet = &quoted.ID
	}

	if err = s.tweets.Create(ctx, tweet); err != nil {
		return nil, err
	}

	// 以下写入与推文本身不在同一事务中
	if parent != nil {
		if err = s.tweets.AddReply(ctx, parent.ID, tweet.ID); err != nil {
			return nil, err
		}
	}
	if err = s.users.IncTweetCount(ctx, authorID, 1); err != nil {
		return nil, err
	}
	if parent != nil {
		s.notifications.Create(ctx, parent.Author, authorID, model.NotificationReply, &parent.ID)
	}

	item, err := s.hydrator.hydrateOne(ctx, tweet, authorID)
	if err != nil {
		return nil, err
	}
	s.emitter.Broadcast(ctx, realtime.EventNewTweet, item, "")

	if len(media) > 0 {
		urls := make([]string, 0, len(media)*2)
		for _, m := range media {
			urls = append(urls, m.URL)
			if m.Thumbnail != "" {
				urls = append(urls, m.Thumbnail)
			}
		}
		s.media.Claim(ctx, urls)
	}
	return item, nil
}

// DeleteTweet 软删除，不级联回复与转推
func (s *TweetServiceImpl) DeleteTweet(ctx context.Context, tweetID string, requesterID primitive.ObjectID) error {
	id, ok := util.ParseObjectID(tweetID)
	if !ok {
		return ErrInvalidObjectID
	}
	tweet, err := s.loadVisible(ctx, id, ErrTweetNotFound)
	if err != nil {
		return err
	}
	if tweet.Author != requesterID {
		return ErrTweetDeleteForbidden
	}

	if err = s.tweets.SoftDelete(ctx, id); err != nil {
		return err
	}
	return s.users.IncTweetCount(ctx, requesterID, -1)
}

func (s *TweetServiceImpl) ToggleLike(ctx context.Context, tweetID string, userID primitive.ObjectID) (*dto.LikeResultDTO, error) {
	id, ok := util.ParseObjectID(tweetID)
	if !ok {
		return nil, ErrInvalidObjectID
	}
	if _, err := s.loadVisible(ctx, id, ErrTweetNotFound); err != nil {
		return nil, err
	}

	updated, err := s.tweets.AddLike(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	liked := updated != nil
	if !liked {
		if updated, err = s.tweets.RemoveLike(ctx, id, userID); err != nil {
			return nil, err
		}
	}
	if updated == nil {
		// 两次条件更新都未命中，说明推文刚被删除或状态被并发修改
		if updated, err = s.loadVisible(ctx, id, ErrTweetNotFound); err != nil {
			return nil, err
		}
		liked = updated.LikedBy(userID)
	}

	if liked {
		s.notifications.Create(ctx, updated.Author, userID, model.NotificationLike, &updated.ID)
		count := updated.LikeCount
		s.emitter.Broadcast(ctx, realtime.EventTweetUpdate, &dto.TweetUpdateDTO{
			Type:      model.NotificationLike,
			TweetID:   updated.ID.Hex(),
			UserID:    userID.Hex(),
			LikeCount: &count,
		}, "")
	}
	return &dto.LikeResultDTO{Liked: liked, LikeCount: updated.LikeCount}, nil
}

// ToggleRetweet 计数切换与转推副本的增删是两次独立写入
func (s *TweetServiceImpl) ToggleRetweet(ctx context.Context, tweetID string, userID primitive.ObjectID) (*dto.RetweetResultDTO, error) {
	id, ok := util.ParseObjectID(tweetID)
	if !ok {
		return nil, ErrInvalidObjectID
	}
	if _, err := s.loadVisible(ctx, id, ErrTweetNotFound); err != nil {
		return nil, err
	}

	updated, err := s.tweets.AddRetweet(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if updated != nil {
		satellite := &model.Tweet{
			Author:      userID,
			Text:        "",
			Media:       []model.Media{},
			TweetType:   model.TweetTypeRetweet,
			RetweetOf:   &updated.ID,
			IsPublished: true,
		}
		if err = s.tweets.Create(ctx, satellite); err != nil {
			return nil, err
		}

		s.notifications.Create(ctx, updated.Author, userID, model.NotificationRetweet, &updated.ID)
		count := updated.RetweetCount
		s.emitter.Broadcast(ctx, realtime.EventTweetUpdate, &dto.TweetUpdateDTO{
			Type:         model.NotificationRetweet,
			TweetID:      updated.ID.Hex(),
			UserID:       userID.Hex(),
			RetweetCount: &count,
		}, "")
		return &dto.RetweetResultDTO{Retweeted: true, RetweetCount: updated.RetweetCount}, nil
	}

	if updated, err = s.tweets.RemoveRetweet(ctx, id, userID); err != nil {
		return nil, err
	}
	if updated == nil {
		current, err := s.loadVisible(ctx, id, ErrTweetNotFound)
		if err != nil {
			return nil, err
		}
		return &dto.RetweetResultDTO{Retweeted: current.RetweetedBy(userID), RetweetCount: current.RetweetCount}, nil
	}
	if _, err = s.tweets.DeleteRetweetOf(ctx, userID, id); err != nil {
		return nil, err
	}
	return &dto.RetweetResultDTO{Retweeted: false, RetweetCount: updated.RetweetCount}, nil
}

// GetTweet 读取推文并递增浏览数，附带未删除的回复
func (s *TweetServiceImpl) GetTweet(ctx context.Context, tweetID string, viewerID primitive.ObjectID) (*dto.TweetDetailDTO, error) {
	id, ok := util.ParseObjectID(tweetID)
	if !ok {
		return nil, ErrInvalidObjectID
	}
	tweet, err := s.loadVisible(ctx, id, ErrTweetNotFound)
	if err != nil {
		return nil, err
	}
	if err = s.tweets.IncViewCount(ctx, id); err != nil {
		log.WarnContext(ctx, "increment view count failed", "tweet_id", id.Hex(), "err", err)
	} else {
		tweet.ViewCount++
	}

	var replies []*model.Tweet
	if len(tweet.Replies) > 0 {
		found, err := s.tweets.GetByIDs(ctx, tweet.Replies)
		if err != nil {
			return nil, err
		}
		for _, r := range found {
			if r.Visible() {
				replies = append(replies, r)
			}
		}
		sort.SliceStable(replies, func(i, j int) bool {
			return replies[i].CreatedAt.After(replies[j].CreatedAt)
		})
	}

	item, err := s.hydrator.hydrateOne(ctx, tweet, viewerID)
	if err != nil {
		return nil, err
	}
	replyItems, err := s.hydrator.hydrate(ctx, replies, viewerID)
	if err != nil {
		return nil, err
	}
	return &dto.TweetDetailDTO{Tweet: item, Replies: replyItems}, nil
}

func (s *TweetServiceImpl) GetUserTweets(ctx context.Context, username string, viewerID primitive.ObjectID, page, limit int) (*dto.TweetListDTO, error) {
	page, limit = util.NormalizePage(page, limit, consts.MaxFeedLimit)

	author, err := s.users.GetByUsername(ctx, strings.ToLower(username))
	if err != nil {
		return nil, err
	}
	if author == nil {
		return nil, ErrUserNotFound
	}

	q := repository.TweetQuery{
		AuthorIn: []primitive.ObjectID{author.ID},
		Sort:     repository.SortRecent,
		Skip:     int64((page - 1) * limit),
		Limit:    int64(limit),
	}
	list, err := s.tweets.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	total, err := s.tweets.Count(ctx, q)
	if err != nil {
		return nil, err
	}

	items, err := s.hydrator.hydrate(ctx, list, viewerID)
	if err != nil {
		return nil, err
	}
	return &dto.TweetListDTO{Tweets: items, Pagination: newPagination(page, limit, total)}, nil
}
