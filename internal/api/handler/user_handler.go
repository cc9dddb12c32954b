package handler

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/pkg/response"
	"Warbler/internal/service"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userSvc   service.UserService
	followSvc service.FollowService
}

func NewUserHandler(userSvc service.UserService, followSvc service.FollowService) *UserHandler {
	return &UserHandler{
		userSvc:   userSvc,
		followSvc: followSvc,
	}
}

func (s *UserHandler) SearchUsers(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.SearchUserDTO
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := s.userSvc.Search(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *UserHandler) GetSuggestedUsers(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := s.userSvc.Suggested(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *UserHandler) GetProfileByID(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := s.userSvc.GetProfileByID(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := s.userSvc.GetProfileByUsername(c.Request.Context(), c.Param("user"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.UpdateProfileDTO
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := s.userSvc.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// ToggleFollow 路径参数为目标用户 ID
func (s *UserHandler) ToggleFollow(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := s.followSvc.ToggleFollow(c.Request.Context(), userID, c.Param("user"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetFollowers 路径参数为用户名
func (s *UserHandler) GetFollowers(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.PageQuery
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := s.followSvc.Followers(c.Request.Context(), c.Param("user"), userID, req.Page, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// GetFollowing 路径参数为用户名
func (s *UserHandler) GetFollowing(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.PageQuery
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := s.followSvc.Following(c.Request.Context(), c.Param("user"), userID, req.Page, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
