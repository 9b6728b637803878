package repository

import (
	"Ripple/internal/model"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepo interface {
	GetByUserID(ctx context.Context, userID uint64) (*model.User, error)
	UpdateProfile(ctx context.Context, userID uint64, username, avatar string) error
}

type userRepoImpl struct {
	col *mongo.Collection
}

func NewUserRepo(db *mongo.Database) UserRepo {
	return &userRepoImpl{col: db.Collection("users")}
}

// GetByUserID 根据用户ID获取档案
func (s *userRepoImpl) GetByUserID(ctx context.Context, userID uint64) (*model.User, error) {
	var user model.User
	err := s.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile 更新展示字段
func (s *userRepoImpl) UpdateProfile(ctx context.Context, userID uint64, username, avatar string) error {
	filter := bson.M{"user_id": userID}
	update := bson.M{"$set": bson.M{
		"username":   username,
		"avatar":     avatar,
		"updated_at": time.Now(),
	}}

	result, err := s.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
