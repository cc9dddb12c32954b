package repository

import (
	"Warbler/internal/model"
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TweetSort 候选集排序方式
type TweetSort int

const (
	// SortRecent 按发布时间倒序
	SortRecent TweetSort = iota
	// SortEngagement likeCount, retweetCount, viewCount, createdAt 依次倒序
	SortEngagement
)

// TweetQuery 时间线查询条件，已删除与未发布的推文总是被排除
type TweetQuery struct {
	AuthorIn       []primitive.ObjectID
	AuthorNotIn    []primitive.ObjectID
	ExcludeReplies bool
	Sort           TweetSort
	Skip           int64
	Limit          int64
}

type TweetRepo interface {
	Create(ctx context.Context, tweet *model.Tweet) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Tweet, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Tweet, error)
	Find(ctx context.Context, q TweetQuery) ([]*model.Tweet, error)
	Count(ctx context.Context, q TweetQuery) (int64, error)
	AddReply(ctx context.Context, parentID, replyID primitive.ObjectID) error
	AddLike(ctx context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error)
	RemoveLike(ctx context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error)
	AddRetweet(ctx context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error)
	RemoveRetweet(ctx context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error)
	DeleteRetweetOf(ctx context.Context, authorID, originalID primitive.ObjectID) (int64, error)
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	IncViewCount(ctx context.Context, id primitive.ObjectID) error
}

type tweetRepoImpl struct {
	col *mongo.Collection
}

func NewTweetRepo(db *mongo.Database) TweetRepo {
	return &tweetRepoImpl{
		col: db.Collection(model.CollectionTweets),
	}
}

func (s *tweetRepoImpl) Create(ctx context.Context, tweet *model.Tweet) error {
	now := time.Now()
	if tweet.ID.IsZero() {
		tweet.ID = primitive.NewObjectID()
	}
	if tweet.Media == nil {
		tweet.Media = []model.Media{}
	}
	if tweet.Likes == nil {
		tweet.Likes = []primitive.ObjectID{}
	}
	if tweet.Retweets == nil {
		tweet.Retweets = []primitive.ObjectID{}
	}
	if tweet.Replies == nil {
		tweet.Replies = []primitive.ObjectID{}
	}
	tweet.CreatedAt = now
	tweet.UpdatedAt = now

	_, err := s.col.InsertOne(ctx, tweet)
	return translateWriteErr(err, "insert tweet")
}

func (s *tweetRepoImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Tweet, error) {
	var tweet model.Tweet
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&tweet)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find tweet by id")
	}
	return &tweet, nil
}

// GetByIDs 批量查询，包含已删除的推文，由调用方过滤
func (s *tweetRepoImpl) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*model.Tweet, error) {
	if len(ids) == 0 {
		return []*model.Tweet{}, nil
	}
	return s.findMany(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find(), "find tweets by ids")
}

func buildTweetFilter(q TweetQuery) bson.M {
	filter := bson.M{
		"isDeleted":   false,
		"isPublished": true,
	}

	author := bson.M{}
	if q.AuthorIn != nil {
		author["$in"] = q.AuthorIn
	}
	if len(q.AuthorNotIn) > 0 {
		author["$nin"] = q.AuthorNotIn
	}
	if len(author) > 0 {
		filter["author"] = author
	}

	if q.ExcludeReplies {
		filter["tweetType"] = bson.M{"$ne": model.TweetTypeReply}
	}
	return filter
}

func (s *tweetRepoImpl) Find(ctx context.Context, q TweetQuery) ([]*model.Tweet, error) {
	opts := options.Find()
	switch q.Sort {
	case SortEngagement:
		opts.SetSort(bson.D{
			{Key: "likeCount", Value: -1},
			{Key: "retweetCount", Value: -1},
			{Key: "viewCount", Value: -1},
			{Key: "createdAt", Value: -1},
		})
	default:
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	}
	if q.Skip > 0 {
		opts.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return s.findMany(ctx, buildTweetFilter(q), opts, "find tweets")
}

func (s *tweetRepoImpl) Count(ctx context.Context, q TweetQuery) (int64, error) {
	n, err := s.col.CountDocuments(ctx, buildTweetFilter(q))
	if err != nil {
		return 0, errors.Wrap(err, "count tweets")
	}
	return n, nil
}

func (s *tweetRepoImpl) findMany(ctx context.Context, filter bson.M, opts *options.FindOptions, op string) ([]*model.Tweet, error) {
	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, op)
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	tweets := make([]*model.Tweet, 0)
	if err = cursor.All(ctx, &tweets); err != nil {
		return nil, errors.Wrap(err, op)
	}
	return tweets, nil
}

func (s *tweetRepoImpl) AddReply(ctx context.Context, parentID, replyID primitive.ObjectID) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": parentID},
		bson.M{
			"$push": bson.M{"replies": replyID},
			"$inc":  bson.M{"replyCount": 1},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
	return errors.Wrap(err, "add reply")
}

// toggleMember 原子条件更新：add 时要求 uid 不在集合中，remove 时要求在集合中。
// 条件不满足返回 nil, nil
func (s *tweetRepoImpl) toggleMember(ctx context.Context, tweetID, userID primitive.ObjectID, field, counter string, add bool) (*model.Tweet, error) {
	filter := bson.M{"_id": tweetID, "isDeleted": false}
	var update bson.M
	if add {
		filter[field] = bson.M{"$ne": userID}
		update = bson.M{"$addToSet": bson.M{field: userID}, "$inc": bson.M{counter: 1}}
	} else {
		filter[field] = userID
		update = bson.M{"$pull": bson.M{field: userID}, "$inc": bson.M{counter: -1}}
	}

	var tweet model.Tweet
	err := s.col.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&tweet)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "toggle %s", field)
	}
	return &tweet, nil
}

func (s *tweetRepoImpl) AddLike(ctx context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error) {
	return s.toggleMember(ctx, tweetID, userID, "likes", "likeCount", true)
}

func (s *tweetRepoImpl) RemoveLike(ctx context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error) {
	return s.toggleMember(ctx, tweetID, userID, "likes", "likeCount", false)
}

func (s *tweetRepoImpl) AddRetweet(ctx context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error) {
	return s.toggleMember(ctx, tweetID, userID, "retweets", "retweetCount", true)
}

func (s *tweetRepoImpl) RemoveRetweet(ctx context.Context, tweetID, userID primitive.ObjectID) (*model.Tweet, error) {
	return s.toggleMember(ctx, tweetID, userID, "retweets", "retweetCount", false)
}

// DeleteRetweetOf 删除 author 对 original 的转推卫星记录
func (s *tweetRepoImpl) DeleteRetweetOf(ctx context.Context, authorID, originalID primitive.ObjectID) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{
		"author":    authorID,
		"retweetOf": originalID,
		"tweetType": model.TweetTypeRetweet,
	})
	if err != nil {
		return 0, errors.Wrap(err, "delete retweet satellite")
	}
	return res.DeletedCount, nil
}

func (s *tweetRepoImpl) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"isDeleted": true, "updatedAt": time.Now()}},
	)
	return errors.Wrap(err, "soft delete tweet")
}

func (s *tweetRepoImpl) IncViewCount(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"viewCount": 1}})
	return errors.Wrap(err, "inc view count")
}
