package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TagAffinity 用户对标签的偏好权重,只增不减
type TagAffinity struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    uint64             `bson:"user_id" json:"userId"`
	Tag       string             `bson:"tag" json:"tag"`
	Weight    int64              `bson:"weight" json:"weight"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}
