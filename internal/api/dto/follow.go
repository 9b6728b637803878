package dto

// FollowEventDTO 关注关系变更事件载荷
type FollowEventDTO struct {
	FollowerID uint64 `json:"followerId"`
	FolloweeID uint64 `json:"followeeId"`
}

// FollowingDTO 关注列表响应
type FollowingDTO struct {
	UserIDs []uint64 `json:"user_ids"`
	Total   int      `json:"total"`
}
