package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message 会话消息。投递状态对接收方单调前进:
// 0-已发送 1-已送达 2-已读,不允许回退。
type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PeerKey     string             `bson:"peer_key" json:"peerKey"`
	SenderID    uint64             `bson:"sender_id" json:"senderId"`
	RecipientID uint64             `bson:"recipient_id" json:"recipientId"`
	Body        string             `bson:"body" json:"body"`
	State       int8               `bson:"state" json:"state"`
	CreatedAt   time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updatedAt"`
}

// CanAdvanceState 判断投递状态能否从 from 前进到 to
func CanAdvanceState(from, to int8) bool {
	return to > from
}
