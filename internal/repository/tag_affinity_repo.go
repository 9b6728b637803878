package repository

import (
	"Ripple/internal/model"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TagAffinityRepo interface {
	IncrementWeight(ctx context.Context, userID uint64, tag string, delta int64) error
	TopTags(ctx context.Context, userID uint64, limit int64) ([]string, error)
}

type tagAffinityRepoImpl struct {
	col *mongo.Collection
}

func NewTagAffinityRepo(db *mongo.Database) TagAffinityRepo {
	return &tagAffinityRepoImpl{col: db.Collection("tag_affinities")}
}

// IncrementWeight 累加偏好权重,首次出现时插入。权重只增不减。
func (s *tagAffinityRepoImpl) IncrementWeight(ctx context.Context, userID uint64, tag string, delta int64) error {
	if delta <= 0 {
		return nil
	}

	filter := bson.M{"user_id": userID, "tag": tag}
	update := bson.M{
		"$inc": bson.M{"weight": delta},
		"$set": bson.M{"updated_at": time.Now()},
	}
	opts := options.Update().SetUpsert(true)

	_, err := s.col.UpdateOne(ctx, filter, update, opts)
	return err
}

// TopTags 按权重倒序取用户前 N 个偏好标签
func (s *tagAffinityRepoImpl) TopTags(ctx context.Context, userID uint64, limit int64) ([]string, error) {
	filter := bson.M{"user_id": userID}
	opts := options.Find().
		SetSort(bson.D{{Key: "weight", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var affinities []model.TagAffinity
	if err = cursor.All(ctx, &affinities); err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(affinities))
	for _, a := range affinities {
		tags = append(tags, a.Tag)
	}
	return tags, nil
}
