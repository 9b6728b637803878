package model

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation 1:1 会话。peer_key 由参与者ID升序拼接而来,
// 唯一索引保证每对用户至多一个会话。
type Conversation struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PeerKey       string             `bson:"peer_key" json:"peerKey"`
	Participants  []uint64           `bson:"participants" json:"participants"`
	Unread        map[string]int64   `bson:"unread" json:"unread"` // key 为参与者ID十进制串
	LastMessageAt time.Time          `bson:"last_message_at" json:"lastMessageAt"`
	CreatedAt     time.Time          `bson:"created_at" json:"createdAt"`
}

// PeerKey 生成单聊会话唯一键,参与者ID升序拼接
func PeerKey(a, b uint64) string {
	if a < b {
		return fmt.Sprintf("%d_%d", a, b)
	}
	return fmt.Sprintf("%d_%d", b, a)
}
