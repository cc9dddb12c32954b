package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotificationLike    = "like"
	NotificationRetweet = "retweet"
	NotificationFollow  = "follow"
	NotificationReply   = "reply"
)

// Notification 站内通知，recipient 为分区键
type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"`
	Recipient primitive.ObjectID  `bson:"recipient"`
	Actor     primitive.ObjectID  `bson:"actor"`
	Type      string              `bson:"type"`
	Tweet     *primitive.ObjectID `bson:"tweet"`
	Read      bool                `bson:"read"`
	CreatedAt time.Time           `bson:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt"`
}
