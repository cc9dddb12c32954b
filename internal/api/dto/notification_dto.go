package dto

import "time"

type NotificationTweetDTO struct {
	ID   string `json:"_id"`
	Text string `json:"text"`
}

type NotificationDTO struct {
	ID        string                `json:"_id"`
	Type      string                `json:"type"`
	Actor     *UserSummaryDTO       `json:"actor"`
	Tweet     *NotificationTweetDTO `json:"tweet,omitempty"`
	Read      bool                  `json:"read"`
	CreatedAt time.Time             `json:"createdAt"`
}

type NotificationListDTO struct {
	Notifications []*NotificationDTO `json:"notifications"`
	UnreadCount   int64              `json:"unreadCount"`
	Pagination    *Pagination        `json:"pagination"`
}

type MarkReadDTO struct {
	ID string `json:"id"`
}
