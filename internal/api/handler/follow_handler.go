package handler

import (
	"Ripple/internal/pkg/response"
	"Ripple/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type FollowHandler struct {
	followSvc service.FollowService
}

func NewFollowHandler(followSvc service.FollowService) *FollowHandler {
	return &FollowHandler{followSvc: followSvc}
}

// Follow 关注
func (s *FollowHandler) Follow(c *gin.Context) {
	userID := c.GetUint64("user_id")

	followeeID, err := strconv.ParseUint(c.Param("followee_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.followSvc.Follow(c.Request.Context(), userID, followeeID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Unfollow 取消关注
func (s *FollowHandler) Unfollow(c *gin.Context) {
	userID := c.GetUint64("user_id")

	followeeID, err := strconv.ParseUint(c.Param("followee_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	if err := s.followSvc.Unfollow(c.Request.Context(), userID, followeeID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetFollowing 当前用户的关注列表
func (s *FollowHandler) GetFollowing(c *gin.Context) {
	userID := c.GetUint64("user_id")

	following, err := s.followSvc.GetFollowing(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, following)
}
