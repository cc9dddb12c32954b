package consts

const (
	MimePrefixImage = "image"
	MimePrefixVideo = "video"
	MimeGIF         = "image/gif"
)

const (
	TweetMaxLength  = 280
	TweetMaxMedia   = 4
	DefaultPage     = 1
	DefaultLimit    = 20
	MaxFeedLimit    = 100
	MaxNoticeLimit  = 50
	SuggestedLimit  = 5
	UsernameMinLen  = 3
	UsernameMaxLen  = 15
	GeneratedPrefix = 12
)

// 上下文中的当前用户
const (
	UserIDKey = "user_id"
	TokenKey  = "token"
)
