package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TweetTypeTweet   = "tweet"
	TweetTypeReply   = "reply"
	TweetTypeRetweet = "retweet"
	TweetTypeQuote   = "quote"
)

const (
	MediaTypeImage = "image"
	MediaTypeVideo = "video"
	MediaTypeGIF   = "gif"
)

// Media 附件只保存外部存储的地址
type Media struct {
	Type      string `bson:"type"`
	URL       string `bson:"url"`
	Thumbnail string `bson:"thumbnail"`
}

// Tweet 推文文档
type Tweet struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Author       primitive.ObjectID   `bson:"author"`
	Text         string               `bson:"text"`
	Media        []Media              `bson:"media"`
	TweetType    string               `bson:"tweetType"`
	ReplyTo      *primitive.ObjectID  `bson:"replyTo"`
	ReplyToUser  *primitive.ObjectID  `bson:"replyToUser"`
	RetweetOf    *primitive.ObjectID  `bson:"retweetOf"`
	QuotedTweet  *primitive.ObjectID  `bson:"quotedTweet"`
	Likes        []primitive.ObjectID `bson:"likes"`
	Retweets     []primitive.ObjectID `bson:"retweets"`
	Replies      []primitive.ObjectID `bson:"replies"`
	LikeCount    int64                `bson:"likeCount"`
	RetweetCount int64                `bson:"retweetCount"`
	ReplyCount   int64                `bson:"replyCount"`
	ViewCount    int64                `bson:"viewCount"`
	IsDeleted    bool                 `bson:"isDeleted"`
	ScheduledAt  *time.Time           `bson:"scheduledAt"` // 仅保留字段，没有调度逻辑
	IsPublished  bool                 `bson:"isPublished"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

// LikedBy 是否被 uid 点赞
func (t *Tweet) LikedBy(uid primitive.ObjectID) bool {
	return containsID(t.Likes, uid)
}

// RetweetedBy 是否被 uid 转推
func (t *Tweet) RetweetedBy(uid primitive.ObjectID) bool {
	return containsID(t.Retweets, uid)
}

// Visible 未删除且已发布
func (t *Tweet) Visible() bool {
	return !t.IsDeleted && t.IsPublished
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
