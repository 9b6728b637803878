package dto

// FeedItemDTO 信息流条目
type FeedItemDTO struct {
	ContentDTO
	IsPersonalized bool    `json:"is_personalized"`
	Score          float64 `json:"score"`
}

// FeedPageDTO 信息流分页响应
type FeedPageDTO struct {
	Items      []*FeedItemDTO `json:"items"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

// NewPostEventDTO 新内容事件载荷。FollowerIDs 为发布时的关注者快照,
// 扇出层只做路由,不回查关注关系。
type NewPostEventDTO struct {
	Content     ContentDTO `json:"content"`
	FollowerIDs []uint64   `json:"followerIds"`
}

// LikeUpdateDTO 点赞数变更广播,只携带权威计数
type LikeUpdateDTO struct {
	PostID   string `json:"postId"`
	NewLikes int64  `json:"newLikes"`
}

// ColdStartDTO 冷启动信号,提示下游补充推荐源
type ColdStartDTO struct {
	UserID uint64 `json:"userId"`
}
