package repository

import (
	"Ripple/internal/model"
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ContentRepo interface {
	Create(ctx context.Context, content *model.Content) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Content, error)
	ListRecent(ctx context.Context, since time.Time, cap int64) ([]model.Content, error)
	ListCandidates(ctx context.Context, since time.Time, authorIDs []uint64, tags []string, cap int64) ([]model.Content, error)
	IncrementCounters(ctx context.Context, id primitive.ObjectID, likes, comments, views int64) (*model.Content, error)
	UpdateAuthorSnapshot(ctx context.Context, authorID uint64, username, avatar string) (int64, error)
}

type contentRepoImpl struct {
	col *mongo.Collection
}

func NewContentRepo(db *mongo.Database) ContentRepo {
	return &contentRepoImpl{col: db.Collection("contents")}
}

// Create 插入新内容
func (s *contentRepoImpl) Create(ctx context.Context, content *model.Content) error {
	if content.ID.IsZero() {
		content.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, content)
	return pkgerrors.Wrap(err, "insert content")
}

// GetByID 根据 ID 获取内容
func (s *contentRepoImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Content, error) {
	var content model.Content
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&content)
	if err != nil {
		return nil, err
	}
	return &content, nil
}

// ListRecent 按创建时间倒序取滚动窗口内的内容,上限 cap 条
func (s *contentRepoImpl) ListRecent(ctx context.Context, since time.Time, cap int64) ([]model.Content, error) {
	filter := bson.M{"created_at": bson.M{"$gte": since}}
	return s.find(ctx, filter, cap)
}

// ListCandidates 取窗口内关注作者发布或命中偏好标签的候选内容
func (s *contentRepoImpl) ListCandidates(ctx context.Context, since time.Time, authorIDs []uint64, tags []string, cap int64) ([]model.Content, error) {
	or := make([]bson.M, 0, 2)
	if len(authorIDs) > 0 {
		or = append(or, bson.M{"author_id": bson.M{"$in": authorIDs}})
	}
	if len(tags) > 0 {
		or = append(or, bson.M{"tags": bson.M{"$in": tags}})
	}
	if len(or) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"created_at": bson.M{"$gte": since},
		"$or":        or,
	}
	return s.find(ctx, filter, cap)
}

func (s *contentRepoImpl) find(ctx context.Context, filter bson.M, cap int64) ([]model.Content, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(cap)

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []model.Content
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// IncrementCounters 原子增减计数器并返回更新后的内容。
// 负增量通过过滤条件保证不会把计数器降到零以下,
// 会击穿下限的增量被放弃,返回当前值。
func (s *contentRepoImpl) IncrementCounters(ctx context.Context, id primitive.ObjectID, likes, comments, views int64) (*model.Content, error) {
	filter := bson.M{"_id": id}
	if likes < 0 {
		filter["like_count"] = bson.M{"$gte": -likes}
	}
	if comments < 0 {
		filter["comment_count"] = bson.M{"$gte": -comments}
	}
	if views < 0 {
		filter["view_count"] = bson.M{"$gte": -views}
	}

	update := bson.M{"$inc": bson.M{
		"like_count":    likes,
		"comment_count": comments,
		"view_count":    views,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated model.Content
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		err = s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&updated)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateAuthorSnapshot 批量刷新某作者全部内容上的展示字段快照
func (s *contentRepoImpl) UpdateAuthorSnapshot(ctx context.Context, authorID uint64, username, avatar string) (int64, error) {
	filter := bson.M{"author_id": authorID}
	update := bson.M{"$set": bson.M{
		"author.username": username,
		"author.avatar":   avatar,
	}}

	result, err := s.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, pkgerrors.Wrapf(err, "sync author snapshot for user %d", authorID)
	}
	return result.ModifiedCount, nil
}
