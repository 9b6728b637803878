package repository

import (
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepo interface {
	Save(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error)
	GetHistory(ctx context.Context, peerKey string, before time.Time, pageSize int64) ([]model.Message, error)
	AdvanceState(ctx context.Context, id primitive.ObjectID, recipientID uint64, newState int8) (*model.Message, error)
	MarkConversationRead(ctx context.Context, peerKey string, recipientID uint64) (int64, error)
}

type messageRepoImpl struct {
	col *mongo.Collection
}

func NewMessageRepo(db *mongo.Database) MessageRepo {
	return &messageRepoImpl{col: db.Collection("messages")}
}

// Save 将消息存入 MongoDB
func (s *messageRepoImpl) Save(ctx context.Context, msg *model.Message) error {
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, msg)
	return err
}

// GetHistory 历史消息查询,before 为当前页面最旧一条消息的时间。
// 第一页传零值,按创建时间降序返回(最新的在前)。
func (s *messageRepoImpl) GetHistory(ctx context.Context, peerKey string, before time.Time, pageSize int64) ([]model.Message, error) {
	filter := bson.M{"peer_key": peerKey}
	if !before.IsZero() {
		filter["created_at"] = bson.M{"$lt": before}
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(pageSize)

	cursor, err := s.col.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var messages []model.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// GetByID 根据ID获取单条消息
func (s *messageRepoImpl) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error) {
	var msg model.Message
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// AdvanceState 推进消息投递状态并返回更新后的消息。
// 过滤条件限定只能前进,已处于更高状态、不存在或接收方不符时
// 返回 mongo.ErrNoDocuments,由调用方区分。
func (s *messageRepoImpl) AdvanceState(ctx context.Context, id primitive.ObjectID, recipientID uint64, newState int8) (*model.Message, error) {
	filter := bson.M{
		"_id":          id,
		"recipient_id": recipientID,
		"state":        bson.M{"$lt": newState},
	}
	update := bson.M{"$set": bson.M{
		"state":      newState,
		"updated_at": time.Now(),
	}}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg model.Message
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkConversationRead 将会话内接收方的全部未读消息置为已读,返回修改条数
func (s *messageRepoImpl) MarkConversationRead(ctx context.Context, peerKey string, recipientID uint64) (int64, error) {
	filter := bson.M{
		"peer_key":     peerKey,
		"recipient_id": recipientID,
		"state":        bson.M{"$lt": consts.MessageStateRead},
	}
	update := bson.M{"$set": bson.M{
		"state":      consts.MessageStateRead,
		"updated_at": time.Now(),
	}}

	result, err := s.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
