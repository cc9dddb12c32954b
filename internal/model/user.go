package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AuthProviderLocal  = "local"
	AuthProviderGoogle = "google"

	DefaultProfilePic = "https://abs.twimg.com/sticky/default_profile_images/default_profile_400x400.png"
)

// User 用户文档，followers/following 为双向反向引用
type User struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty"`
	Name           string               `bson:"name"`
	Username       string               `bson:"username"`
	Email          string               `bson:"email"`
	Password       string               `bson:"password,omitempty"`
	AuthProvider   string               `bson:"authProvider"`
	GoogleID       string               `bson:"googleId,omitempty"`
	Bio            string               `bson:"bio"`
	Location       string               `bson:"location"`
	Website        string               `bson:"website"`
	ProfilePic     string               `bson:"profilePic"`
	CoverPhoto     string               `bson:"coverPhoto"`
	BirthDate      *time.Time           `bson:"birthDate,omitempty"`
	Verified       bool                 `bson:"verified"`
	Followers      []primitive.ObjectID `bson:"followers"`
	Following      []primitive.ObjectID `bson:"following"`
	FollowerCount  int64                `bson:"followerCount"`
	FollowingCount int64                `bson:"followingCount"`
	TweetCount     int64                `bson:"tweetCount"`
	CreatedAt      time.Time            `bson:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt"`
}

// IsFollowing 判断当前用户是否关注了 target
func (u *User) IsFollowing(target primitive.ObjectID) bool {
	for _, id := range u.Following {
		if id == target {
			return true
		}
	}
	return false
}

// ProfileUpdate 可修改的资料字段，nil 表示不修改
type ProfileUpdate struct {
	Name       *string `bson:"name,omitempty"`
	Bio        *string `bson:"bio,omitempty"`
	Location   *string `bson:"location,omitempty"`
	Website    *string `bson:"website,omitempty"`
	ProfilePic *string `bson:"profilePic,omitempty"`
	CoverPhoto *string `bson:"coverPhoto,omitempty"`
}

// IsEmpty 没有任何待更新字段
func (p *ProfileUpdate) IsEmpty() bool {
	return p.Name == nil && p.Bio == nil && p.Location == nil &&
		p.Website == nil && p.ProfilePic == nil && p.CoverPhoto == nil
}
