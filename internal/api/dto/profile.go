package dto

// UpdateProfileReq 更新展示资料请求体,缺省字段保持原值
type UpdateProfileReq struct {
	Username *string `json:"username" binding:"omitempty,min=1,max=30"`
	Avatar   *string `json:"avatar" binding:"omitempty,max=500"`
}

// ProfileDTO 用户展示资料响应
type ProfileDTO struct {
	UserID    uint64 `json:"user_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	CreatedAt string `json:"created_at"`
}

// ProfileChangedDTO 展示资料变更事件载荷
type ProfileChangedDTO struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}
