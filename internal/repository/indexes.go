package repository

import (
	"Warbler/internal/model"
	"context"
	log "log/slog"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes 创建集合索引，重复执行无副作用
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		model.CollectionUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "googleId", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "followerCount", Value: -1}}},
		},
		model.CollectionTweets: {
			{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "replyTo", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "retweetOf", Value: 1}}},
			{Keys: bson.D{{Key: "isPublished", Value: 1}, {Key: "isDeleted", Value: 1}}},
		},
		model.CollectionNotifications: {
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "read", Value: 1}}},
		},
	}

	for col, models := range specs {
		names, err := db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return errors.Wrapf(err, "create indexes on %s", col)
		}
		log.InfoContext(ctx, "MongoDB indexes ensured", "collection", col, "indexes", names)
	}
	return nil
}
