package handler

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/pkg/response"
	"Ripple/internal/service"
	"strconv"

	"github.com/gin-gonic/gin"
)

type IMHandler struct {
	imService service.IMService
}

func NewIMHandler(imService service.IMService) *IMHandler {
	return &IMHandler{imService: imService}
}

// SendMessage 发送私信
func (s *IMHandler) SendMessage(c *gin.Context) {
	var req dto.SendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	senderID := c.GetUint64("user_id")

	msg, err := s.imService.SendMessage(c.Request.Context(), senderID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, msg)
}

// MarkDelivered 回执单条送达
func (s *IMHandler) MarkDelivered(c *gin.Context) {
	var req struct {
		MessageID string `json:"message_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	if err := s.imService.MarkDelivered(c.Request.Context(), userID, req.MessageID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkConversationRead 整个会话标记已读
func (s *IMHandler) MarkConversationRead(c *gin.Context) {
	var req struct {
		PeerID uint64 `json:"peer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	if err := s.imService.MarkConversationRead(c.Request.Context(), userID, req.PeerID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// GetChatHistory 会话历史,游标向更早翻页
func (s *IMHandler) GetChatHistory(c *gin.Context) {
	userID := c.GetUint64("user_id")

	peerID, err := strconv.ParseUint(c.Query("peer_id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	cursor := c.Query("cursor")
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	history, err := s.imService.GetChatHistory(c.Request.Context(), userID, peerID, cursor, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, history)
}

// GetConversationList 会话列表,按最后消息时间倒序
func (s *IMHandler) GetConversationList(c *gin.Context) {
	var query dto.PageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	userID := c.GetUint64("user_id")

	list, err := s.imService.GetConversationList(c.Request.Context(), userID, &query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, list)
}
