package service

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/mongo"
	"Ripple/internal/repository"
	"context"
	"errors"

	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

// FollowService 关注关系服务接口定义
type FollowService interface {
	Follow(ctx context.Context, followerID, followeeID uint64) error
	Unfollow(ctx context.Context, followerID, followeeID uint64) error
	GetFollowing(ctx context.Context, userID uint64) (*dto.FollowingDTO, error)
}

type followServiceImpl struct {
	followRepo repository.FollowRepo
	userRepo   repository.UserRepo
	tx         mongo.TxRunner
	bus        *eventbus.Bus
}

func NewFollowService(follow repository.FollowRepo, user repository.UserRepo, tx mongo.TxRunner, bus *eventbus.Bus) FollowService {
	return &followServiceImpl{
		followRepo: follow,
		userRepo:   user,
		tx:         tx,
		bus:        bus,
	}
}

// Follow 建立关注边。重复关注返回冲突,关注自己被拒绝,
// 成功后的事件在事务提交后才会扇出。
func (s *followServiceImpl) Follow(ctx context.Context, followerID, followeeID uint64) error {
	if followerID == followeeID {
		return ErrUserFollowSelf
	}
	if _, err := s.userRepo.GetByUserID(ctx, followeeID); err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			return ErrUserNotFound
		}
		return err
	}

	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.followRepo.Create(txCtx, followerID, followeeID); err != nil {
			if mongoDB.IsDuplicateKeyError(err) {
				return ErrUserFollowExist
			}
			return err
		}
		s.bus.QueueTransactional(txCtx, eventbus.Event{
			Type:    consts.EventFollowCreated,
			Payload: dto.FollowEventDTO{FollowerID: followerID, FolloweeID: followeeID},
		})
		return nil
	})
}

// Unfollow 删除关注边,不存在的边返回未关注
func (s *followServiceImpl) Unfollow(ctx context.Context, followerID, followeeID uint64) error {
	if followerID == followeeID {
		return ErrUserFollowSelf
	}

	return s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.followRepo.Delete(txCtx, followerID, followeeID); err != nil {
			if errors.Is(err, mongoDB.ErrNoDocuments) {
				return ErrUserFollowNotFound
			}
			return err
		}
		s.bus.QueueTransactional(txCtx, eventbus.Event{
			Type:    consts.EventFollowRemoved,
			Payload: dto.FollowEventDTO{FollowerID: followerID, FolloweeID: followeeID},
		})
		return nil
	})
}

// GetFollowing 获取用户关注的作者ID列表
func (s *followServiceImpl) GetFollowing(ctx context.Context, userID uint64) (*dto.FollowingDTO, error) {
	ids, err := s.followRepo.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.FollowingDTO{UserIDs: ids, Total: len(ids)}, nil
}
