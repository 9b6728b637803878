package repository

import (
	"Ripple/internal/model"
	"context"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ConversationRepo interface {
	UpsertOnMessage(ctx context.Context, peerKey string, participants []uint64, recipientID uint64, at time.Time) error
	ResetUnread(ctx context.Context, peerKey string, userID uint64) error
	GetByPeerKey(ctx context.Context, peerKey string) (*model.Conversation, error)
	ListByUser(ctx context.Context, userID uint64, limit, offset int64) ([]model.Conversation, error)
}

type conversationRepoImpl struct {
	col *mongo.Collection
}

func NewConversationRepo(db *mongo.Database) ConversationRepo {
	return &conversationRepoImpl{col: db.Collection("conversations")}
}

// UpsertOnMessage 发消息时维护会话:不存在则建,
// 刷新最近消息时间并累加接收方未读数
func (s *conversationRepoImpl) UpsertOnMessage(ctx context.Context, peerKey string, participants []uint64, recipientID uint64, at time.Time) error {
	filter := bson.M{"peer_key": peerKey}
	update := bson.M{
		"$setOnInsert": bson.M{
			"peer_key":     peerKey,
			"participants": participants,
			"created_at":   at,
		},
		"$set": bson.M{"last_message_at": at},
		"$inc": bson.M{"unread." + strconv.FormatUint(recipientID, 10): 1},
	}
	opts := options.Update().SetUpsert(true)

	_, err := s.col.UpdateOne(ctx, filter, update, opts)
	return err
}

// ResetUnread 参与者读完后把自己的未读数清零
func (s *conversationRepoImpl) ResetUnread(ctx context.Context, peerKey string, userID uint64) error {
	filter := bson.M{"peer_key": peerKey}
	update := bson.M{"$set": bson.M{"unread." + strconv.FormatUint(userID, 10): 0}}

	_, err := s.col.UpdateOne(ctx, filter, update)
	return err
}

// GetByPeerKey 根据会话键获取会话
func (s *conversationRepoImpl) GetByPeerKey(ctx context.Context, peerKey string) (*model.Conversation, error) {
	var conv model.Conversation
	err := s.col.FindOne(ctx, bson.M{"peer_key": peerKey}).Decode(&conv)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// ListByUser 按最近消息时间倒序取用户的会话列表
func (s *conversationRepoImpl) ListByUser(ctx context.Context, userID uint64, limit, offset int64) ([]model.Conversation, error) {
	filter := bson.M{"participants": userID}
	opts := options.Find().
		SetSort(bson.D{{Key: "last_message_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cursor.Close(ctx)
	}()

	var list []model.Conversation
	if err = cursor.All(ctx, &list); err != nil {
		return nil, err
	}
	return list, nil
}
