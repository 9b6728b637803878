package dto

// NotificationDTO 通知明细响应,也是 new_notification 事件的载荷
type NotificationDTO struct {
	ID         string `json:"id"`
	ReceiverID uint64 `json:"receiverId"`
	ActorID    uint64 `json:"actorId"`
	ActorName  string `json:"actorName"`
	AvatarURL  string `json:"avatarUrl"`
	ActionType string `json:"actionType"`
	TargetID   string `json:"targetId,omitempty"`
	TargetType string `json:"targetType,omitempty"`
	Preview    string `json:"preview,omitempty"`
	IsRead     bool   `json:"isRead"`
	CreatedAt  string `json:"createdAt"`
}

// NotifyUnreadDTO 未读数响应
type NotifyUnreadDTO struct {
	UnreadCount int64 `json:"unread_count"`
}

// NotifyReadDTO 已读状态变更事件载荷
type NotifyReadDTO struct {
	UserID uint64   `json:"userId"`
	IDs    []string `json:"ids,omitempty"`
	All    bool     `json:"all"`
}
