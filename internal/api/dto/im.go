package dto

// SendMessageReq 发送私信请求体
type SendMessageReq struct {
	RecipientID uint64 `json:"recipient_id" binding:"required"`
	Body        string `json:"body" binding:"required,max=2000"`
}

// MessageDTO 私信明细响应,也是 message_sent 事件的载荷
type MessageDTO struct {
	ID          string `json:"id"`
	PeerKey     string `json:"peerKey"`
	SenderID    uint64 `json:"senderId"`
	RecipientID uint64 `json:"recipientId"`
	Body        string `json:"body"`
	State       int8   `json:"state"`
	CreatedAt   string `json:"createdAt"`
}

// MessageStatusDTO 投递状态变更事件载荷。
// Recipients 为需要收到回执的用户,通常是原消息的发送方。
type MessageStatusDTO struct {
	MessageID  string   `json:"messageId,omitempty"`
	PeerKey    string   `json:"peerKey"`
	State      int8     `json:"state"`
	Recipients []uint64 `json:"recipients"`
}

// ChatHistoryDTO 会话历史分页响应,游标翻页
type ChatHistoryDTO struct {
	Messages   []*MessageDTO `json:"messages"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// ConversationDTO 会话列表项响应
type ConversationDTO struct {
	PeerKey       string `json:"peer_key"`
	PeerID        uint64 `json:"peer_id"`
	UnreadCount   int64  `json:"unread_count"`
	LastMessageAt string `json:"last_message_at"`
}
