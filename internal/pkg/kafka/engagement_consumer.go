package kafka

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/redis"
	"Ripple/internal/repository"
	"Ripple/internal/service"
	"context"
	"errors"
	log "log/slog"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

// 互动动作类型
const (
	ActionLike   = "like"
	ActionUnlike = "unlike"
	ActionView   = "view"
)

const (
	likeCountTTL = time.Hour
	previewLimit = 50
)

// EngagementEvent 客户端埋点上报的互动事件
type EngagementEvent struct {
	Action    string `json:"action"`
	ContentID string `json:"contentId"`
	UserID    uint64 `json:"userId"`
}

// counterDelta 单个内容在一批消息内聚合出的计数增量
type counterDelta struct {
	likes int64
	views int64
}

type EngagementHandler struct {
	contentRepo repository.ContentRepo
	tagRepo     repository.TagAffinityRepo
	userRepo    repository.UserRepo
	notifySvc   service.NotificationService
	bus         *eventbus.Bus
}

func NewEngagementHandler(
	content repository.ContentRepo,
	tag repository.TagAffinityRepo,
	user repository.UserRepo,
	notify service.NotificationService,
	bus *eventbus.Bus,
) *EngagementHandler {
	return &EngagementHandler{
		contentRepo: content,
		tagRepo:     tag,
		userRepo:    user,
		notifySvc:   notify,
		bus:         bus,
	}
}

func (s *EngagementHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("engagement consumer setup")
	return nil
}

func (s *EngagementHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("engagement consumer cleanup")
	return nil
}

func (s *EngagementHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("engagement consume claim")
	err := pullMessageBatch(session, claim, s.processEngagements)
	if err != nil {
		log.Error("engagement process batch error", "err", err)
		return err
	}
	return nil
}

// processEngagements 处理一批互动事件:同一内容的计数增量先聚合再一次落库,
// 点赞的偏好累积与通知按事件逐条补做。坏消息记日志后丢弃,不阻塞整批。
func (s *EngagementHandler) processEngagements(ctx context.Context, msgs []*sarama.ConsumerMessage) error {
	events := make([]EngagementEvent, 0, len(msgs))
	for _, m := range msgs {
		var evt EngagementEvent
		if err := json.Unmarshal(m.Value, &evt); err != nil {
			log.WarnContext(ctx, "undecodable engagement event dropped", "offset", m.Offset, "err", err)
			continue
		}
		if evt.ContentID == "" {
			log.WarnContext(ctx, "engagement event without content id dropped", "offset", m.Offset)
			continue
		}
		events = append(events, evt)
	}

	deltas := make(map[string]*counterDelta)
	for _, evt := range events {
		delta, ok := deltas[evt.ContentID]
		if !ok {
			delta = &counterDelta{}
			deltas[evt.ContentID] = delta
		}
		switch evt.Action {
		case ActionLike:
			delta.likes++
		case ActionUnlike:
			delta.likes--
		case ActionView:
			delta.views++
		default:
			log.WarnContext(ctx, "unknown engagement action dropped", "action", evt.Action)
		}
	}

	updated := make(map[string]*model.Content, len(deltas))
	for contentID, delta := range deltas {
		if delta.likes == 0 && delta.views == 0 {
			continue
		}
		content, err := s.applyDelta(ctx, contentID, delta)
		if err != nil {
			return err
		}
		updated[contentID] = content
	}

	for _, evt := range events {
		if evt.Action != ActionLike {
			continue
		}
		content := updated[evt.ContentID]
		if content == nil {
			continue
		}
		s.recordAffinity(ctx, evt.UserID, content.Tags)
		s.sendLikeNotification(ctx, evt.UserID, content)
	}
	return nil
}

// applyDelta 原子更新计数并广播权威值。内容不存在或ID非法属于永久失败,
// 丢弃该条;其余错误返回给上层重试整批。
func (s *EngagementHandler) applyDelta(ctx context.Context, contentID string, delta *counterDelta) (*model.Content, error) {
	objectID, err := primitive.ObjectIDFromHex(contentID)
	if err != nil {
		log.WarnContext(ctx, "engagement event with broken content id dropped", "content_id", contentID)
		return nil, nil
	}

	content, err := s.contentRepo.IncrementCounters(ctx, objectID, delta.likes, 0, delta.views)
	if err != nil {
		if errors.Is(err, mongoDB.ErrNoDocuments) {
			log.WarnContext(ctx, "engagement for missing content dropped", "content_id", contentID)
			return nil, nil
		}
		return nil, err
	}

	redis.AttemptWarm(ctx, "like count refresh", func(c context.Context) error {
		return redis.SetWithExpiration(c, consts.ContentLikeKey+contentID, content.LikeCount, likeCountTTL)
	})

	if delta.likes != 0 {
		s.bus.Publish(ctx, eventbus.Event{
			Type:    consts.EventLikeUpdate,
			Payload: dto.LikeUpdateDTO{PostID: contentID, NewLikes: content.LikeCount},
		})
	}

	log.InfoContext(ctx, "engagement counters applied",
		"content_id", contentID, "likes", delta.likes, "views", delta.views)
	return content, nil
}

// recordAffinity 把被点赞内容的标签累加进点赞者的偏好,并失效偏好缓存
func (s *EngagementHandler) recordAffinity(ctx context.Context, userID uint64, tags []string) {
	if userID == 0 || len(tags) == 0 {
		return
	}

	for _, tag := range tags {
		if err := s.tagRepo.IncrementWeight(ctx, userID, tag, 1); err != nil {
			log.WarnContext(ctx, "tag affinity bump failed", "user_id", userID, "tag", tag, "err", err)
		}
	}

	redis.AttemptWarm(ctx, "affinity cache invalidate", func(c context.Context) error {
		return redis.DeleteKey(c, consts.UserAffinityKey+strconv.FormatUint(userID, 10))
	})
}

// sendLikeNotification 给作者生成点赞通知,自己赞自己不通知
func (s *EngagementHandler) sendLikeNotification(ctx context.Context, likerID uint64, content *model.Content) {
	if likerID == 0 || content.AuthorID == likerID {
		return
	}

	n := &model.Notification{
		ReceiverID: content.AuthorID,
		ActorID:    likerID,
		ActionType: consts.ActionTypeLike,
		TargetID:   content.ID.Hex(),
		TargetType: "content",
		Preview:    preview(content.Body),
		CreatedAt:  time.Now(),
	}
	if actor, err := s.userRepo.GetByUserID(ctx, likerID); err == nil {
		n.Actor = model.AuthorSnapshot{Username: actor.Username, Avatar: actor.Avatar}
	}

	if err := s.notifySvc.CreateNotification(ctx, n); err != nil {
		log.ErrorContext(ctx, "failed to create like notification",
			"content_id", content.ID.Hex(), "err", err)
	}
}

// preview 通知里携带的正文摘要
func preview(body string) string {
	r := []rune(body)
	if len(r) <= previewLimit {
		return body
	}
	return string(r[:previewLimit])
}
