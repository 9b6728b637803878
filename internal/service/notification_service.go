package service

import (
	"Ripple/internal/api/config"
	"Ripple/internal/api/dto"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/redis"
	"Ripple/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

const backfillTimeout = 3 * time.Second

// NotificationService 通知服务接口定义
type NotificationService interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	GetNotifications(ctx context.Context, userID uint64, limit int, before *time.Time) ([]*dto.NotificationDTO, error)
	MarkAsRead(ctx context.Context, userID uint64, id string) error
	MarkAllAsRead(ctx context.Context, userID uint64) error
	GetUnreadCount(ctx context.Context, userID uint64) (*dto.NotifyUnreadDTO, error)
	HandleFollowCreated(ctx context.Context, evt eventbus.Event) error
}

type notificationServiceImpl struct {
	notifyRepo repository.NotificationRepo
	userRepo   repository.UserRepo
	bus        *eventbus.Bus
}

func NewNotificationService(notify repository.NotificationRepo, user repository.UserRepo, bus *eventbus.Bus) NotificationService {
	return &notificationServiceImpl{
		notifyRepo: notify,
		userRepo:   user,
		bus:        bus,
	}
}

// CreateNotification 通知先落库,再推入缓存盒子,最后广播给在线客户端。
// 缓存与广播都是尽力而为,落库失败才算失败。
func (s *notificationServiceImpl) CreateNotification(ctx context.Context, n *model.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	if err := s.notifyRepo.Create(ctx, n); err != nil {
		return err
	}

	s.pushToBox(ctx, n)

	s.bus.Publish(ctx, eventbus.Event{
		Type:    consts.EventNotification,
		Payload: *toNotificationDTO(n),
	})
	return nil
}

// GetNotifications 读取通知列表。带时间游标的请求绕过缓存直接走落库副本;
// 其余请求先查缓存盒子,不足 limit 条按未命中处理并异步回填。
func (s *notificationServiceImpl) GetNotifications(ctx context.Context, userID uint64, limit int, before *time.Time) ([]*dto.NotificationDTO, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	if before != nil {
		list, err := s.notifyRepo.ListByReceiver(ctx, userID, int64(limit), before)
		if err != nil {
			return nil, err
		}
		return toNotificationDTOs(list), nil
	}

	key := notifyBoxKey(userID)
	entries, err := redis.Attempt(ctx, "notify box read", func(c context.Context) ([]string, error) {
		return redis.ListRange(c, key, 0, int64(limit-1))
	}, redis.AttemptOptions[[]string]{})
	if err == nil && len(entries) >= limit {
		res := make([]*dto.NotificationDTO, 0, len(entries))
		broken := false
		for _, raw := range entries {
			var n model.Notification
			if err := json.Unmarshal([]byte(raw), &n); err != nil {
				broken = true
				break
			}
			res = append(res, toNotificationDTO(&n))
		}
		if !broken {
			return res, nil
		}
		log.WarnContext(ctx, "broken notify box entry, fall back to durable store", "key", key)
	}

	list, err := s.notifyRepo.ListByReceiver(ctx, userID, int64(limit), nil)
	if err != nil {
		return nil, err
	}

	s.backfillBox(userID)

	return toNotificationDTOs(list), nil
}

// MarkAsRead 落库副本为权威写,成功后尽力刷新缓存并向所属房间广播已读状态
func (s *notificationServiceImpl) MarkAsRead(ctx context.Context, userID uint64, id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return ErrParamInvalid
	}

	if err := s.notifyRepo.MarkAsRead(ctx, userID, id); err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			return ErrNotifyNotFound
		}
		return err
	}

	s.flipCachedRead(ctx, userID, id)

	s.bus.Publish(ctx, eventbus.Event{
		Type:    consts.EventNotifyRead,
		Payload: dto.NotifyReadDTO{UserID: userID, IDs: []string{id}},
	})
	return nil
}

// MarkAllAsRead 全量已读,缓存盒子按落库副本整体重建
func (s *notificationServiceImpl) MarkAllAsRead(ctx context.Context, userID uint64) error {
	if _, err := s.notifyRepo.MarkAllAsRead(ctx, userID); err != nil {
		return err
	}

	list, err := s.notifyRepo.ListByReceiver(ctx, userID, int64(config.Cfg.Notification.CacheCap), nil)
	if err != nil {
		log.WarnContext(ctx, "notify box rebuild query failed", "user_id", userID, "err", err)
	} else {
		s.rewriteBox(ctx, userID, list)
	}

	s.bus.Publish(ctx, eventbus.Event{
		Type:    consts.EventNotifyRead,
		Payload: dto.NotifyReadDTO{UserID: userID, All: true},
	})
	return nil
}

// GetUnreadCount 获取未读数
func (s *notificationServiceImpl) GetUnreadCount(ctx context.Context, userID uint64) (*dto.NotifyUnreadDTO, error) {
	count, err := s.notifyRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &dto.NotifyUnreadDTO{UnreadCount: count}, nil
}

// HandleFollowCreated 关注成功后给被关注者生成通知
func (s *notificationServiceImpl) HandleFollowCreated(ctx context.Context, evt eventbus.Event) error {
	payload, ok := evt.Payload.(dto.FollowEventDTO)
	if !ok {
		return fmt.Errorf("unexpected follow payload: %T", evt.Payload)
	}

	n := &model.Notification{
		ReceiverID: payload.FolloweeID,
		ActorID:    payload.FollowerID,
		ActionType: consts.ActionTypeFollow,
		CreatedAt:  time.Now(),
	}
	if actor, err := s.userRepo.GetByUserID(ctx, payload.FollowerID); err == nil {
		n.Actor = model.AuthorSnapshot{Username: actor.Username, Avatar: actor.Avatar}
	}

	return s.CreateNotification(ctx, n)
}

// pushToBox 把新通知推到缓存盒子头部,超出容量的最旧条目被淘汰
func (s *notificationServiceImpl) pushToBox(ctx context.Context, n *model.Notification) {
	payload, err := json.Marshal(n)
	if err != nil {
		return
	}

	key := notifyBoxKey(n.ReceiverID)
	redis.AttemptWarm(ctx, "notify box push", func(c context.Context) error {
		return redis.LPushCapped(c, key, int64(config.Cfg.Notification.CacheCap), boxTTL(), payload)
	})
}

// backfillBox 异步用落库副本回填缓存盒子,失败只记日志不影响本次响应
func (s *notificationServiceImpl) backfillBox(userID uint64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), backfillTimeout)
		defer cancel()

		list, err := s.notifyRepo.ListByReceiver(ctx, userID, int64(config.Cfg.Notification.CacheCap), nil)
		if err != nil {
			log.Warn("notify box backfill query failed", "user_id", userID, "err", err)
			return
		}
		s.rewriteBox(ctx, userID, list)
	}()
}

// rewriteBox 以最新在前的顺序整体重建缓存盒子
func (s *notificationServiceImpl) rewriteBox(ctx context.Context, userID uint64, list []model.Notification) {
	values := make([]interface{}, 0, len(list))
	for i := range list {
		payload, err := json.Marshal(list[i])
		if err != nil {
			return
		}
		values = append(values, payload)
	}

	redis.AttemptWarm(ctx, "notify box rewrite", func(c context.Context) error {
		return redis.ListSetAll(c, notifyBoxKey(userID), values, boxTTL())
	})
}

// flipCachedRead 尽力把缓存盒子里对应条目翻成已读
func (s *notificationServiceImpl) flipCachedRead(ctx context.Context, userID uint64, id string) {
	key := notifyBoxKey(userID)
	redis.AttemptWarm(ctx, "notify box mark read", func(c context.Context) error {
		entries, err := redis.ListRange(c, key, 0, -1)
		if err != nil {
			return err
		}
		for i, raw := range entries {
			var n model.Notification
			if err := json.Unmarshal([]byte(raw), &n); err != nil {
				continue
			}
			if n.ID.Hex() != id {
				continue
			}
			n.IsRead = true
			payload, err := json.Marshal(n)
			if err != nil {
				return err
			}
			return redis.ListSet(c, key, int64(i), payload)
		}
		return nil
	})
}

func notifyBoxKey(userID uint64) string {
	return consts.NotifyBoxKey + strconv.FormatUint(userID, 10)
}

func boxTTL() time.Duration {
	return time.Duration(config.Cfg.Notification.CacheTTLMin) * time.Minute
}

func toNotificationDTO(n *model.Notification) *dto.NotificationDTO {
	d := &dto.NotificationDTO{}
	_ = copier.Copy(d, n)
	d.ID = n.ID.Hex()
	d.ActorName = n.Actor.Username
	d.AvatarURL = n.Actor.Avatar
	if d.AvatarURL == "" {
		d.AvatarURL = consts.DefaultAvatarURL
	}
	d.CreatedAt = n.CreatedAt.UTC().Format(time.RFC3339)
	return d
}

func toNotificationDTOs(list []model.Notification) []*dto.NotificationDTO {
	res := make([]*dto.NotificationDTO, 0, len(list))
	for i := range list {
		res = append(res, toNotificationDTO(&list[i]))
	}
	return res
}
