package es

// UserES 对应用户索引的文档结构
type UserES struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Username      string `json:"username"`
	Bio           string `json:"bio,omitempty"`
	ProfilePic    string `json:"profilePic"`
	Verified      bool   `json:"verified"`
	FollowerCount int64  `json:"followerCount"`
}
