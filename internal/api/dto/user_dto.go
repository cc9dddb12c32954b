package dto

import "time"

// UserDTO 对外的用户资料，不包含密码与关系数组
type UserDTO struct {
	ID             string     `json:"_id"`
	Name           string     `json:"name"`
	Username       string     `json:"username"`
	Email          string     `json:"email,omitempty"`
	AuthProvider   string     `json:"authProvider,omitempty"`
	Bio            string     `json:"bio"`
	Location       string     `json:"location"`
	Website        string     `json:"website"`
	ProfilePic     string     `json:"profilePic"`
	CoverPhoto     string     `json:"coverPhoto"`
	BirthDate      *time.Time `json:"birthDate,omitempty"`
	Verified       bool       `json:"verified"`
	FollowerCount  int64      `json:"followerCount"`
	FollowingCount int64      `json:"followingCount"`
	TweetCount     int64      `json:"tweetCount"`
	IsFollowing    bool       `json:"isFollowing"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// UserSummaryDTO 推文与通知中内嵌的作者摘要
type UserSummaryDTO struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Username   string `json:"username"`
	ProfilePic string `json:"profilePic"`
	Verified   bool   `json:"verified"`
}

type UpdateProfileDTO struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=50"`
	Bio        *string `json:"bio" validate:"omitempty,max=160"`
	Location   *string `json:"location" validate:"omitempty,max=30"`
	Website    *string `json:"website" validate:"omitempty,max=100"`
	ProfilePic *string `json:"profilePic"`
	CoverPhoto *string `json:"coverPhoto"`
}

type SearchUserDTO struct {
	Q     string `form:"q"`
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
}

type UserListDTO struct {
	Users      []*UserDTO  `json:"users"`
	Pagination *Pagination `json:"pagination"`
}

type FollowResultDTO struct {
	Following     bool  `json:"following"`
	FollowerCount int64 `json:"followerCount"`
}
