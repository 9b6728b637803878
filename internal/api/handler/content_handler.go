package handler

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/pkg/response"
	"Ripple/internal/service"

	"github.com/gin-gonic/gin"
)

type ContentHandler struct {
	contentSvc service.ContentService
}

func NewContentHandler(contentSvc service.ContentService) *ContentHandler {
	return &ContentHandler{contentSvc: contentSvc}
}

// CreateContent 发布内容
func (s *ContentHandler) CreateContent(c *gin.Context) {
	var req dto.CreateContentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	authorID := c.GetUint64("user_id")

	content, err := s.contentSvc.CreateContent(c.Request.Context(), authorID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, content)
}

// GetContent 内容明细,点赞数以缓存计数为准
func (s *ContentHandler) GetContent(c *gin.Context) {
	contentID := c.Param("content_id")
	if contentID == "" {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	content, err := s.contentSvc.GetContent(c.Request.Context(), contentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, content)
}
