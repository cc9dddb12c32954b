package handler

import (
	"Warbler/internal/api/dto"
	"Warbler/internal/pkg/response"
	"Warbler/internal/service"

	"github.com/gin-gonic/gin"
)

type TweetHandler struct {
	tweetSvc service.TweetService
	feedSvc  service.FeedService
}

func NewTweetHandler(tweetSvc service.TweetService, feedSvc service.FeedService) *TweetHandler {
	return &TweetHandler{
		tweetSvc: tweetSvc,
		feedSvc:  feedSvc,
	}
}

func (s *TweetHandler) CreateTweet(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateTweetDTO
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := s.tweetSvc.CreateTweet(c.Request.Context(), userID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessCreated(c, res)
}

// GetFeed feedType 缺省为 forYou
func (s *TweetHandler) GetFeed(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.FeedQueryDTO
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := s.feedSvc.GetFeed(c.Request.Context(), userID, req.FeedType, req.Page, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *TweetHandler) GetUserTweets(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.PageQuery
	if !bindAndValidate(c, &req) {
		return
	}
	res, err := s.tweetSvc.GetUserTweets(c.Request.Context(), c.Param("username"), userID, req.Page, req.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *TweetHandler) GetTweet(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := s.tweetSvc.GetTweet(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *TweetHandler) DeleteTweet(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := s.tweetSvc.DeleteTweet(c.Request.Context(), c.Param("id"), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (s *TweetHandler) ToggleLike(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := s.tweetSvc.ToggleLike(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (s *TweetHandler) ToggleRetweet(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := s.tweetSvc.ToggleRetweet(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
