package kafka

import (
	"Ripple/internal/api/config"
	"Ripple/internal/api/dto"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/redis"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

type incrCall struct {
	id    primitive.ObjectID
	likes int64
	views int64
}

type engContentRepo struct {
	contents  map[primitive.ObjectID]*model.Content
	incrCalls []incrCall
	incrErr   error
}

func (s *engContentRepo) Create(ctx context.Context, content *model.Content) error { return nil }

func (s *engContentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Content, error) {
	if c, ok := s.contents[id]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, mongoDB.ErrNoDocuments
}

func (s *engContentRepo) ListRecent(ctx context.Context, since time.Time, cap int64) ([]model.Content, error) {
	return nil, nil
}

func (s *engContentRepo) ListCandidates(ctx context.Context, since time.Time, authorIDs []uint64, tags []string, cap int64) ([]model.Content, error) {
	return nil, nil
}

func (s *engContentRepo) IncrementCounters(ctx context.Context, id primitive.ObjectID, likes, comments, views int64) (*model.Content, error) {
	s.incrCalls = append(s.incrCalls, incrCall{id: id, likes: likes, views: views})
	if s.incrErr != nil {
		return nil, s.incrErr
	}
	c, ok := s.contents[id]
	if !ok {
		return nil, mongoDB.ErrNoDocuments
	}
	if c.LikeCount+likes >= 0 {
		c.LikeCount += likes
	}
	if c.ViewCount+views >= 0 {
		c.ViewCount += views
	}
	copied := *c
	return &copied, nil
}

func (s *engContentRepo) UpdateAuthorSnapshot(ctx context.Context, authorID uint64, username, avatar string) (int64, error) {
	return 0, nil
}

type engTagRepo struct {
	bumps map[string]int64
}

func (s *engTagRepo) IncrementWeight(ctx context.Context, userID uint64, tag string, delta int64) error {
	s.bumps[fmt.Sprintf("%d:%s", userID, tag)] += delta
	return nil
}

func (s *engTagRepo) TopTags(ctx context.Context, userID uint64, limit int64) ([]string, error) {
	return nil, nil
}

type engUserRepo struct {
	users map[uint64]*model.User
}

func (s *engUserRepo) GetByUserID(ctx context.Context, userID uint64) (*model.User, error) {
	if u, ok := s.users[userID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, mongoDB.ErrNoDocuments
}

func (s *engUserRepo) UpdateProfile(ctx context.Context, userID uint64, username, avatar string) error {
	return nil
}

// recordingNotify 只记录写入的通知,其余接口为空实现
type recordingNotify struct {
	saved []*model.Notification
}

func (s *recordingNotify) CreateNotification(ctx context.Context, n *model.Notification) error {
	s.saved = append(s.saved, n)
	return nil
}

func (s *recordingNotify) GetNotifications(ctx context.Context, userID uint64, limit int, before *time.Time) ([]*dto.NotificationDTO, error) {
	return nil, nil
}

func (s *recordingNotify) MarkAsRead(ctx context.Context, userID uint64, id string) error { return nil }

func (s *recordingNotify) MarkAllAsRead(ctx context.Context, userID uint64) error { return nil }

func (s *recordingNotify) GetUnreadCount(ctx context.Context, userID uint64) (*dto.NotifyUnreadDTO, error) {
	return nil, nil
}

func (s *recordingNotify) HandleFollowCreated(ctx context.Context, evt eventbus.Event) error {
	return nil
}

type engagementFixture struct {
	handler     *EngagementHandler
	contentRepo *engContentRepo
	tagRepo     *engTagRepo
	notify      *recordingNotify
	events      *[]eventbus.Event
	mr          *miniredis.Miniredis
}

func setupEngagementTest(t *testing.T) *engagementFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	require.NoError(t, redis.InitRedis(config.RedisConfig{Addr: mr.Addr()}))
	config.Cfg = &config.Config{
		Cache: config.CacheConfig{MaxAttempts: 2, BaseBackoffMs: 1},
	}

	contentRepo := &engContentRepo{contents: map[primitive.ObjectID]*model.Content{}}
	tagRepo := &engTagRepo{bumps: map[string]int64{}}
	userRepo := &engUserRepo{users: map[uint64]*model.User{
		2: {UserID: 2, Username: "bob", Avatar: "bob.png"},
	}}
	notify := &recordingNotify{}

	bus := eventbus.NewBus()
	captured := &[]eventbus.Event{}
	bus.Subscribe(consts.EventLikeUpdate, func(ctx context.Context, evt eventbus.Event) error {
		*captured = append(*captured, evt)
		return nil
	})

	return &engagementFixture{
		handler:     NewEngagementHandler(contentRepo, tagRepo, userRepo, notify, bus),
		contentRepo: contentRepo,
		tagRepo:     tagRepo,
		notify:      notify,
		events:      captured,
		mr:          mr,
	}
}

func (f *engagementFixture) seedContent(authorID uint64, likes int64, tags ...string) *model.Content {
	c := &model.Content{
		ID:        primitive.NewObjectID(),
		AuthorID:  authorID,
		Body:      "hello world",
		Tags:      tags,
		LikeCount: likes,
		CreatedAt: time.Now(),
	}
	f.contentRepo.contents[c.ID] = c
	return c
}

func engagementMsg(t *testing.T, action, contentID string, userID uint64) *sarama.ConsumerMessage {
	t.Helper()
	raw, err := json.Marshal(EngagementEvent{Action: action, ContentID: contentID, UserID: userID})
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Value: raw}
}

func TestProcessEngagementsAggregatesPerContent(t *testing.T) {
	f := setupEngagementTest(t)
	content := f.seedContent(1, 0, "go")
	hexID := content.ID.Hex()

	msgs := []*sarama.ConsumerMessage{
		engagementMsg(t, ActionLike, hexID, 2),
		engagementMsg(t, ActionLike, hexID, 3),
		engagementMsg(t, ActionView, hexID, 4),
	}
	require.NoError(t, f.handler.processEngagements(context.Background(), msgs))

	require.Len(t, f.contentRepo.incrCalls, 1)
	assert.Equal(t, incrCall{id: content.ID, likes: 2, views: 1}, f.contentRepo.incrCalls[0])

	cached, err := f.mr.Get(consts.ContentLikeKey + hexID)
	require.NoError(t, err)
	assert.Equal(t, "2", cached)

	require.Len(t, *f.events, 1)
	assert.Equal(t, dto.LikeUpdateDTO{PostID: hexID, NewLikes: 2}, (*f.events)[0].Payload)

	require.Len(t, f.notify.saved, 2)
	assert.Equal(t, uint64(1), f.notify.saved[0].ReceiverID)
	assert.Equal(t, uint64(2), f.notify.saved[0].ActorID)
	assert.Equal(t, "bob", f.notify.saved[0].Actor.Username)
	assert.Equal(t, hexID, f.notify.saved[0].TargetID)
	assert.Equal(t, "hello world", f.notify.saved[0].Preview)
	assert.Equal(t, uint64(3), f.notify.saved[1].ActorID)

	assert.Equal(t, int64(1), f.tagRepo.bumps["2:go"])
	assert.Equal(t, int64(1), f.tagRepo.bumps["3:go"])
}

func TestProcessEngagementsSkipsPoisonMessages(t *testing.T) {
	f := setupEngagementTest(t)
	content := f.seedContent(1, 0)
	missing := primitive.NewObjectID().Hex()

	msgs := []*sarama.ConsumerMessage{
		{Value: []byte("not json at all")},
		engagementMsg(t, "bookmark", content.ID.Hex(), 2),
		engagementMsg(t, ActionLike, "not-a-hex-id", 2),
		engagementMsg(t, ActionLike, missing, 2),
		engagementMsg(t, ActionLike, content.ID.Hex(), 3),
	}
	require.NoError(t, f.handler.processEngagements(context.Background(), msgs))

	assert.Equal(t, int64(1), f.contentRepo.contents[content.ID].LikeCount)
	require.Len(t, *f.events, 1)
	require.Len(t, f.notify.saved, 1)
	assert.Equal(t, uint64(3), f.notify.saved[0].ActorID)
}

func TestProcessEngagementsRetryableErrorPropagates(t *testing.T) {
	f := setupEngagementTest(t)
	content := f.seedContent(1, 0)
	f.contentRepo.incrErr = fmt.Errorf("connection reset")

	msgs := []*sarama.ConsumerMessage{engagementMsg(t, ActionLike, content.ID.Hex(), 2)}
	err := f.handler.processEngagements(context.Background(), msgs)

	require.Error(t, err)
	assert.Empty(t, *f.events)
	assert.Empty(t, f.notify.saved)
}

func TestProcessEngagementsNetZeroLikesSkipWrite(t *testing.T) {
	f := setupEngagementTest(t)
	content := f.seedContent(1, 3, "go")

	msgs := []*sarama.ConsumerMessage{
		engagementMsg(t, ActionLike, content.ID.Hex(), 2),
		engagementMsg(t, ActionUnlike, content.ID.Hex(), 2),
	}
	require.NoError(t, f.handler.processEngagements(context.Background(), msgs))

	assert.Empty(t, f.contentRepo.incrCalls)
	assert.Empty(t, *f.events)
	assert.Empty(t, f.notify.saved)
	assert.Empty(t, f.tagRepo.bumps)
}

func TestProcessEngagementsSelfLikeSkipsNotification(t *testing.T) {
	f := setupEngagementTest(t)
	content := f.seedContent(2, 0, "go")

	msgs := []*sarama.ConsumerMessage{engagementMsg(t, ActionLike, content.ID.Hex(), 2)}
	require.NoError(t, f.handler.processEngagements(context.Background(), msgs))

	assert.Equal(t, int64(1), f.contentRepo.contents[content.ID].LikeCount)
	require.Len(t, *f.events, 1)
	assert.Empty(t, f.notify.saved)
	assert.Equal(t, int64(1), f.tagRepo.bumps["2:go"])
}

func TestProcessEngagementsViewOnlyStaysSilent(t *testing.T) {
	f := setupEngagementTest(t)
	content := f.seedContent(1, 3)

	msgs := []*sarama.ConsumerMessage{
		engagementMsg(t, ActionView, content.ID.Hex(), 0),
		engagementMsg(t, ActionView, content.ID.Hex(), 4),
	}
	require.NoError(t, f.handler.processEngagements(context.Background(), msgs))

	require.Len(t, f.contentRepo.incrCalls, 1)
	assert.Equal(t, int64(2), f.contentRepo.incrCalls[0].views)
	assert.Empty(t, *f.events)
	assert.Empty(t, f.notify.saved)

	cached, err := f.mr.Get(consts.ContentLikeKey + content.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "3", cached)
}
