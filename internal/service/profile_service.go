package service

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/repository"
	"context"
	"errors"
	"time"

	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

// ProfileService 用户展示资料服务接口定义
type ProfileService interface {
	GetProfile(ctx context.Context, userID uint64) (*dto.ProfileDTO, error)
	UpdateProfile(ctx context.Context, userID uint64, req *dto.UpdateProfileReq) (*dto.ProfileDTO, error)
}

type profileServiceImpl struct {
	userRepo repository.UserRepo
	bus      *eventbus.Bus
}

func NewProfileService(user repository.UserRepo, bus *eventbus.Bus) ProfileService {
	return &profileServiceImpl{
		userRepo: user,
		bus:      bus,
	}
}

// GetProfile 获取用户展示资料
func (s *profileServiceImpl) GetProfile(ctx context.Context, userID uint64) (*dto.ProfileDTO, error) {
	user, err := s.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return toProfileDTO(user), nil
}

// UpdateProfile 更新展示资料,缺省字段保持原值。落库成功后发布变更事件,
// 历史内容上的快照由后台任务合并刷新。
func (s *profileServiceImpl) UpdateProfile(ctx context.Context, userID uint64, req *dto.UpdateProfileReq) (*dto.ProfileDTO, error) {
	user, err := s.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	username := user.Username
	if req.Username != nil {
		username = *req.Username
	}
	avatar := user.Avatar
	if req.Avatar != nil {
		avatar = *req.Avatar
	}
	if username == user.Username && avatar == user.Avatar {
		return toProfileDTO(user), nil
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, username, avatar); err != nil {
		return nil, err
	}
	user.Username = username
	user.Avatar = avatar
	user.UpdatedAt = time.Now()

	s.bus.Publish(ctx, eventbus.Event{
		Type:    consts.EventProfileChanged,
		Payload: dto.ProfileChangedDTO{UserID: userID, Username: username, Avatar: avatar},
	})

	return toProfileDTO(user), nil
}

func toProfileDTO(u *model.User) *dto.ProfileDTO {
	avatar := u.Avatar
	if avatar == "" {
		avatar = consts.DefaultAvatarURL
	}
	return &dto.ProfileDTO{
		UserID:    u.UserID,
		Username:  u.Username,
		AvatarURL: avatar,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
	}
}
