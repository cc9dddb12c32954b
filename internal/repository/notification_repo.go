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

type NotificationRepo interface {
	Create(ctx context.Context, n *model.Notification) error
	FindUnreadDuplicate(ctx context.Context, n *model.Notification, since time.Time) (*model.Notification, error)
	List(ctx context.Context, recipient primitive.ObjectID, skip, limit int64) ([]*model.Notification, error)
	CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	CountAll(ctx context.Context, recipient primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, recipient, id primitive.ObjectID) (bool, error)
	MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error)
}

type notificationRepoImpl struct {
	col *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) NotificationRepo {
	return &notificationRepoImpl{
		col: db.Collection(model.CollectionNotifications),
	}
}

// Create 插入新通知
func (s *notificationRepoImpl) Create(ctx context.Context, n *model.Notification) error {
	now := time.Now()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.CreatedAt = now
	n.UpdatedAt = now
	_, err := s.col.InsertOne(ctx, n)
	return errors.Wrap(err, "insert notification")
}

// FindUnreadDuplicate 查找 (recipient, actor, type, tweet) 相同且未读的最近一条通知，since 为零值时不限时间
func (s *notificationRepoImpl) FindUnreadDuplicate(ctx context.Context, n *model.Notification, since time.Time) (*model.Notification, error) {
	filter := bson.M{
		"recipient": n.Recipient,
		"actor":     n.Actor,
		"type":      n.Type,
		"read":      false,
	}
	if n.Tweet != nil {
		filter["tweet"] = *n.Tweet
	}
	if !since.IsZero() {
		filter["createdAt"] = bson.M{"$gte": since}
	}

	var existing model.Notification
	err := s.col.FindOne(ctx, filter,
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	).Decode(&existing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "find duplicate notification")
	}
	return &existing, nil
}

// List 分页获取用户的通知列表 (按时间倒序)
func (s *notificationRepoImpl) List(ctx context.Context, recipient primitive.ObjectID, skip, limit int64) ([]*model.Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := s.col.Find(ctx, bson.M{"recipient": recipient}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	list := make([]*model.Notification, 0)
	if err = cursor.All(ctx, &list); err != nil {
		return nil, errors.Wrap(err, "decode notifications")
	}
	return list, nil
}

// CountUnread 获取用户的未读通知总数
func (s *notificationRepoImpl) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"recipient": recipient, "read": false})
	return n, errors.Wrap(err, "count unread notifications")
}

func (s *notificationRepoImpl) CountAll(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"recipient": recipient})
	return n, errors.Wrap(err, "count notifications")
}

// MarkRead 标记单条通知为已读，只作用于本人的通知
func (s *notificationRepoImpl) MarkRead(ctx context.Context, recipient, id primitive.ObjectID) (bool, error) {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "recipient": recipient},
		bson.M{"$set": bson.M{"read": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		return false, errors.Wrap(err, "mark notification read")
	}
	return res.MatchedCount > 0, nil
}

// MarkAllRead 将用户所有未读通知标记为已读
func (s *notificationRepoImpl) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	res, err := s.col.UpdateMany(ctx,
		bson.M{"recipient": recipient, "read": false},
		bson.M{"$set": bson.M{"read": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, errors.Wrap(err, "mark all notifications read")
	}
	return res.ModifiedCount, nil
}
