package handler

import (
	"Warbler/internal/pkg/response"
	"Warbler/internal/service"
	log "log/slog"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	mediaSvc service.MediaService
}

func NewMediaHandler(mediaSvc service.MediaService) *MediaHandler {
	return &MediaHandler{mediaSvc: mediaSvc}
}

// Upload 表单字段 file
func (s *MediaHandler) Upload(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrFileRequired)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		log.ErrorContext(c.Request.Context(), "open upload file failed", "err", err)
		response.Error(c, err)
		return
	}
	defer func() {
		_ = file.Close()
	}()

	res, err := s.mediaSvc.Upload(c.Request.Context(), userID, file, fileHeader.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
