package handler

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/pkg/response"
	"Warbler/internal/service"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notificationSvc service.NotificationService
}

func NewNotificationHandler(notificationSvc service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationSvc: notificationSvc}
}

func (s *NotificationHandler) GetNotifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.PageQuery
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := s.notificationSvc.List(c.Request.Context(), userID, req.Page, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *NotificationHandler) GetUnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	count, err := s.notificationSvc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"unreadCount": count})
}

// MarkRead 请求体可为空，此时全部标记为已读
func (s *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.MarkReadDTO
	if c.Request.ContentLength != 0 {
		if !bindAndValidate(c, &req) {
			return
		}
	}
	if err := s.notificationSvc.MarkRead(c.Request.Context(), userID, req.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
