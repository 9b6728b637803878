package dto

// CreateContentReq 发布内容请求体,话题标签直接写在正文中
type CreateContentReq struct {
	Body string `json:"body" binding:"required,max=5000"`
}

// ContentDTO 内容明细响应
type ContentDTO struct {
	ID           string   `json:"id"`
	AuthorID     uint64   `json:"author_id"`
	Username     string   `json:"username"`
	AvatarURL    string   `json:"avatar_url"`
	Body         string   `json:"body"`
	Tags         []string `json:"tags"`
	LikeCount    int64    `json:"like_count"`
	CommentCount int64    `json:"comment_count"`
	ViewCount    int64    `json:"view_count"`
	CreatedAt    string   `json:"created_at"`
}
