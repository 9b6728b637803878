package service

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/mongo"
	"Ripple/internal/pkg/redis"
	"Ripple/internal/pkg/util"
	"Ripple/internal/repository"
	"context"
	"errors"
	"time"

	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

// ContentService 内容服务接口定义
type ContentService interface {
	CreateContent(ctx context.Context, authorID uint64, req *dto.CreateContentReq) (*dto.ContentDTO, error)
	GetContent(ctx context.Context, id string) (*dto.ContentDTO, error)
}

type contentServiceImpl struct {
	contentRepo repository.ContentRepo
	userRepo    repository.UserRepo
	followRepo  repository.FollowRepo
	tx          mongo.TxRunner
	bus         *eventbus.Bus
}

func NewContentService(content repository.ContentRepo, user repository.UserRepo, follow repository.FollowRepo, tx mongo.TxRunner, bus *eventbus.Bus) ContentService {
	return &contentServiceImpl{
		contentRepo: content,
		userRepo:    user,
		followRepo:  follow,
		tx:          tx,
		bus:         bus,
	}
}

// CreateContent 发布内容。正文中的 #话题 提取为标签,
// 落库与事件入队在同一事务内,提交后才会扇出。
func (s *contentServiceImpl) CreateContent(ctx context.Context, authorID uint64, req *dto.CreateContentReq) (*dto.ContentDTO, error) {
	author, err := s.userRepo.GetByUserID(ctx, authorID)
	if err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	// 发布时点的关注者快照,扇出层只做路由不回查关注关系
	followerIDs, err := s.followRepo.FollowerIDs(ctx, authorID)
	if err != nil {
		return nil, err
	}

	content := &model.Content{
		AuthorID:  authorID,
		Author:    model.AuthorSnapshot{Username: author.Username, Avatar: author.Avatar},
		Body:      req.Body,
		Tags:      util.ExtractTags(req.Body),
		CreatedAt: time.Now(),
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.contentRepo.Create(txCtx, content); err != nil {
			return err
		}
		s.bus.QueueTransactional(txCtx, eventbus.Event{
			Type: consts.EventNewPost,
			Payload: dto.NewPostEventDTO{
				Content:     *toContentDTO(content),
				FollowerIDs: followerIDs,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return toContentDTO(content), nil
}

// GetContent 获取内容明细,点赞计数以缓存中的实时值优先
func (s *contentServiceImpl) GetContent(ctx context.Context, id string) (*dto.ContentDTO, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrParamInvalid
	}

	content, err := s.contentRepo.GetByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			return nil, ErrContentNotFound
		}
		return nil, err
	}

	d := toContentDTO(content)
	likes, err := redis.Attempt(ctx, "content like read", func(c context.Context) (int64, error) {
		v, found, err := redis.GetInt64(c, consts.ContentLikeKey+id)
		if err != nil {
			return 0, err
		}
		if !found {
			return content.LikeCount, nil
		}
		return v, nil
	}, redis.AttemptOptions[int64]{Fallback: util.PtrInt64(content.LikeCount)})
	if err == nil {
		d.LikeCount = likes
	}

	return d, nil
}

func toContentDTO(c *model.Content) *dto.ContentDTO {
	d := &dto.ContentDTO{}
	_ = copier.Copy(d, c)
	d.ID = c.ID.Hex()
	d.Username = c.Author.Username
	d.AvatarURL = c.Author.Avatar
	if d.AvatarURL == "" {
		d.AvatarURL = consts.DefaultAvatarURL
	}
	d.CreatedAt = c.CreatedAt.UTC().Format(time.RFC3339)
	return d
}
