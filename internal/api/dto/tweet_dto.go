package dto

import "time"

type MediaDTO struct {
	Type      string `json:"type"`
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

type CreateTweetDTO struct {
	Text        string     `json:"text"`
	Media       []MediaDTO `json:"media"`
	ReplyTo     string     `json:"replyTo"`
	QuotedTweet string     `json:"quotedTweet"`
}

// TweetDTO 已填充作者与当前用户视角标记的推文
type TweetDTO struct {
	ID           string          `json:"_id"`
	Author       *UserSummaryDTO `json:"author" copier:"-"`
	Text         string          `json:"text"`
	Media        []MediaDTO      `json:"media"`
	TweetType    string          `json:"tweetType"`
	ReplyTo      string          `json:"replyTo,omitempty" copier:"-"`
	ReplyToUser  string          `json:"replyToUser,omitempty" copier:"-"`
	RetweetOf    *TweetDTO       `json:"retweetOf,omitempty" copier:"-"`
	QuotedTweet  *TweetDTO       `json:"quotedTweet,omitempty" copier:"-"`
	LikeCount    int64           `json:"likeCount"`
	RetweetCount int64           `json:"retweetCount"`
	ReplyCount   int64           `json:"replyCount"`
	ViewCount    int64           `json:"viewCount"`
	IsLiked      bool            `json:"isLiked"`
	IsRetweeted  bool            `json:"isRetweeted"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type TweetDetailDTO struct {
	Tweet   *TweetDTO   `json:"tweet"`
	Replies []*TweetDTO `json:"replies"`
}

type FeedQueryDTO struct {
	FeedType string `form:"feedType"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

type TweetListDTO struct {
	Tweets     []*TweetDTO `json:"tweets"`
	Pagination *Pagination `json:"pagination"`
}

type LikeResultDTO struct {
	Liked     bool  `json:"liked"`
	LikeCount int64 `json:"likeCount"`
}

type RetweetResultDTO struct {
	Retweeted    bool  `json:"retweeted"`
	RetweetCount int64 `json:"retweetCount"`
}

// TweetUpdateDTO tweetUpdate 实时事件负载
type TweetUpdateDTO struct {
	Type         string `json:"type"`
	TweetID      string `json:"tweetId"`
	UserID       string `json:"userId"`
	LikeCount    *int64 `json:"likeCount,omitempty"`
	RetweetCount *int64 `json:"retweetCount,omitempty"`
}
