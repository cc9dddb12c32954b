package handler

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/pkg/consts"
	"Warbler/internal/pkg/response"
	"Warbler/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authSvc service.AuthService
}

func NewAuthHandler(authSvc service.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

func (s *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupDTO
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := s.authSvc.Signup(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessCreated(c, res)
}

func (s *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginDTO
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := s.authSvc.Login(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Google 新建账号时返回 201
func (s *AuthHandler) Google(c *gin.Context) {
	var req dto.GoogleAuthDTO
	if !bindAndValidate(c, &req) {
		return
	}
	res, created, err := s.authSvc.GoogleAuth(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if created {
		response.SuccessCreated(c, res)
		return
	}
	response.Success(c, res)
}

func (s *AuthHandler) Logout(c *gin.Context) {
	if err := s.authSvc.Logout(c.Request.Context(), c.GetString(consts.TokenKey)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := s.authSvc.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
