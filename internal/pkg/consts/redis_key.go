package consts

const (
	TokenBlacklistKey = "auth:blacklist:"
	MediaTempKey      = "media:temp"
	SocketUserKey     = "socketUser:"
	UserSocketKey     = "userSocket:"
	PresenceKey       = "presence:"
)

const (
	PresenceOnline = "online"
)
