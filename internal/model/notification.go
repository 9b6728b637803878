package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification 通知记录。落库副本是权威数据,只允许翻转已读标记;
// 缓存侧按固定容量保留最新若干条。
type Notification struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ReceiverID uint64             `bson:"receiver_id" json:"receiverId"`
	ActorID    uint64             `bson:"actor_id" json:"actorId"`
	Actor      AuthorSnapshot     `bson:"actor" json:"actor"` // 动作发起者展示字段快照
	ActionType string             `bson:"action_type" json:"actionType"`
	TargetID   string             `bson:"target_id,omitempty" json:"targetId,omitempty"`
	TargetType string             `bson:"target_type,omitempty" json:"targetType,omitempty"`
	Preview    string             `bson:"preview,omitempty" json:"preview,omitempty"`
	IsRead     bool               `bson:"is_read" json:"isRead"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
}
