package repository

import (
	"Ripple/internal/model"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type FollowRepo interface {
	Create(ctx context.Context, followerID, followeeID uint64) error
	Delete(ctx context.Context, followerID, followeeID uint64) error
	FollowingIDs(ctx context.Context, followerID uint64) ([]uint64, error)
	FollowerIDs(ctx context.Context, followeeID uint64) ([]uint64, error)
}

type followRepoImpl struct {
	col *mongo.Collection
}

func NewFollowRepo(db *mongo.Database) FollowRepo {
	return &followRepoImpl{col: db.Collection("follows")}
}

// Create 插入关注边,违反唯一索引时返回驱动的重复键错误
func (s *followRepoImpl) Create(ctx context.Context, followerID, followeeID uint64) error {
	edge := model.Follow{
		FollowerID: followerID,
		FolloweeID: followeeID,
		CreatedAt:  time.Now(),
	}
	_, err := s.col.InsertOne(ctx, edge)
	return err
}

// Delete 硬删除关注边,不存在时返回 mongo.ErrNoDocuments
func (s *followRepoImpl) Delete(ctx context.Context, followerID, followeeID uint64) error {
	filter := bson.M{"follower_id": followerID, "followee_id": followeeID}
	result, err := s.col.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// FollowingIDs 获取用户关注的全部作者ID
func (s *followRepoImpl) FollowingIDs(ctx context.Context, followerID uint64) ([]uint64, error) {
	return s.edgeIDs(ctx, bson.M{"follower_id": followerID}, "followee_id")
}

// FollowerIDs 获取用户的全部粉丝ID
func (s *followRepoImpl) FollowerIDs(ctx context.Context, followeeID uint64) ([]uint64, error) {
	return s.edgeIDs(ctx, bson.M{"followee_id": followeeID}, "follower_id")
}

func (s *followRepoImpl) edgeIDs(ctx context.Context, filter bson.M, field string) ([]uint64, error) {
	cursor, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var edges []model.Follow
	if err = cursor.All(ctx, &edges); err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(edges))
	for _, e := range edges {
		if field == "followee_id" {
			ids = append(ids, e.FolloweeID)
		} else {
			ids = append(ids, e.FollowerID)
		}
	}
	return ids, nil
}
