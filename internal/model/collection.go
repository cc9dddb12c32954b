package model

const (
	CollectionUsers         = "users"
	CollectionTweets        = "tweets"
	CollectionNotifications = "notifications"
)
