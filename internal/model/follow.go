package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Follow 关注边。(follower_id, followee_id) 唯一,不允许自关注,
// 取关即硬删除。
type Follow struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	FollowerID uint64             `bson:"follower_id" json:"followerId"`
	FolloweeID uint64             `bson:"followee_id" json:"followeeId"`
	CreatedAt  time.Time          `bson:"created_at" json:"createdAt"`
}
