package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Content 内容主体。创建后除计数器与作者快照外不可变,
// 计数器只通过原子自增修改,永不降到零以下。
type Content struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID     uint64             `bson:"author_id" json:"authorId"`
	Author       AuthorSnapshot     `bson:"author" json:"author"` // 冗余的作者展示字段,由资料同步任务维护
	Body         string             `bson:"body" json:"body"`
	Tags         []string           `bson:"tags" json:"tags"`
	LikeCount    int64              `bson:"like_count" json:"likeCount"`
	CommentCount int64              `bson:"comment_count" json:"commentCount"`
	ViewCount    int64              `bson:"view_count" json:"viewCount"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
}

// AuthorSnapshot 作者展示字段快照
type AuthorSnapshot struct {
	Username string `bson:"username" json:"username"`
	Avatar   string `bson:"avatar" json:"avatar"`
}
