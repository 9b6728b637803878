package service

import (
	"Ripple/internal/api/config"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/redis"
	"context"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongoDB "go.mongodb.org/mongo-driver/mongo"
)

// setupServiceTest 启动内存 Redis 并装载测试配置
func setupServiceTest(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	mr := miniredis.RunT(t)
	require.NoError(t, redis.InitRedis(config.RedisConfig{Addr: mr.Addr()}))

	config.Cfg = &config.Config{
		Cache: config.CacheConfig{MaxAttempts: 2, BaseBackoffMs: 1},
		Feed: config.FeedConfig{
			RankedWindowDays:   90,
			RecencyWeight:      0.5,
			PopularityWeight:   0.3,
			TagMatchWeight:     0.2,
			TrendingWindowDays: 14,
			TrendingRecency:    0.4,
			TrendingPopularity: 0.5,
			TrendingComments:   0.1,
			CacheTTLSec:        60,
			FavoriteTagLimit:   5,
		},
		Notification: config.NotificationConfig{CacheCap: 5, CacheTTLMin: 30},
	}
	return mr
}

// fakeTxRunner 复刻提交后派发的语义:回调失败丢弃暂存事件,成功则冲刷
type fakeTxRunner struct {
	bus *eventbus.Bus
}

func (f *fakeTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	queue := eventbus.NewQueue(f.bus)
	if err := fn(eventbus.ContextWithQueue(ctx, queue)); err != nil {
		queue.Discard()
		return err
	}
	queue.Flush(ctx)
	return nil
}

// captureEvents 订阅给定类型并按派发顺序记录事件
func captureEvents(bus *eventbus.Bus, types ...string) *[]eventbus.Event {
	captured := &[]eventbus.Event{}
	for _, typ := range types {
		bus.Subscribe(typ, func(ctx context.Context, evt eventbus.Event) error {
			*captured = append(*captured, evt)
			return nil
		})
	}
	return captured
}

func duplicateKeyErr() error {
	return mongoDB.WriteException{WriteErrors: mongoDB.WriteErrors{{Code: 11000}}}
}

type stubUserRepo struct {
	users map[uint64]*model.User
}

func (s *stubUserRepo) GetByUserID(ctx context.Context, userID uint64) (*model.User, error) {
	if u, ok := s.users[userID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, mongoDB.ErrNoDocuments
}

func (s *stubUserRepo) UpdateProfile(ctx context.Context, userID uint64, username, avatar string) error {
	u, ok := s.users[userID]
	if !ok {
		return mongoDB.ErrNoDocuments
	}
	u.Username = username
	u.Avatar = avatar
	return nil
}

type stubContentRepo struct {
	contents       []model.Content
	created        []*model.Content
	createErr      error
	recentCalls    int
	candidateCalls int
}

func (s *stubContentRepo) Create(ctx context.Context, content *model.Content) error {
	if s.createErr != nil {
		return s.createErr
	}
	if content.ID.IsZero() {
		content.ID = primitive.NewObjectID()
	}
	s.created = append(s.created, content)
	s.contents = append(s.contents, *content)
	return nil
}

func (s *stubContentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Content, error) {
	for i := range s.contents {
		if s.contents[i].ID == id {
			copied := s.contents[i]
			return &copied, nil
		}
	}
	return nil, mongoDB.ErrNoDocuments
}

func (s *stubContentRepo) ListRecent(ctx context.Context, since time.Time, cap int64) ([]model.Content, error) {
	s.recentCalls++
	res := make([]model.Content, 0, len(s.contents))
	for _, c := range s.contents {
		if !c.CreatedAt.Before(since) {
			res = append(res, c)
		}
	}
	return res, nil
}

func (s *stubContentRepo) ListCandidates(ctx context.Context, since time.Time, authorIDs []uint64, tags []string, cap int64) ([]model.Content, error) {
	s.candidateCalls++
	authors := make(map[uint64]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = struct{}{}
	}
	wanted := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		wanted[t] = struct{}{}
	}

	res := make([]model.Content, 0, len(s.contents))
	for _, c := range s.contents {
		if c.CreatedAt.Before(since) {
			continue
		}
		_, byAuthor := authors[c.AuthorID]
		byTag := false
		for _, t := range c.Tags {
			if _, ok := wanted[t]; ok {
				byTag = true
				break
			}
		}
		if byAuthor || byTag {
			res = append(res, c)
		}
	}
	return res, nil
}

func (s *stubContentRepo) IncrementCounters(ctx context.Context, id primitive.ObjectID, likes, comments, views int64) (*model.Content, error) {
	for i := range s.contents {
		if s.contents[i].ID != id {
			continue
		}
		c := &s.contents[i]
		if c.LikeCount+likes >= 0 {
			c.LikeCount += likes
		}
		if c.CommentCount+comments >= 0 {
			c.CommentCount += comments
		}
		if c.ViewCount+views >= 0 {
			c.ViewCount += views
		}
		copied := *c
		return &copied, nil
	}
	return nil, mongoDB.ErrNoDocuments
}

func (s *stubContentRepo) UpdateAuthorSnapshot(ctx context.Context, authorID uint64, username, avatar string) (int64, error) {
	var n int64
	for i := range s.contents {
		if s.contents[i].AuthorID == authorID {
			s.contents[i].Author = model.AuthorSnapshot{Username: username, Avatar: avatar}
			n++
		}
	}
	return n, nil
}

type followEdge struct {
	follower uint64
	followee uint64
}

type stubFollowRepo struct {
	edges     map[followEdge]struct{}
	createErr error
}

func newStubFollowRepo() *stubFollowRepo {
	return &stubFollowRepo{edges: make(map[followEdge]struct{})}
}

func (s *stubFollowRepo) Create(ctx context.Context, followerID, followeeID uint64) error {
	if s.createErr != nil {
		return s.createErr
	}
	edge := followEdge{followerID, followeeID}
	if _, ok := s.edges[edge]; ok {
		return duplicateKeyErr()
	}
	s.edges[edge] = struct{}{}
	return nil
}

func (s *stubFollowRepo) Delete(ctx context.Context, followerID, followeeID uint64) error {
	edge := followEdge{followerID, followeeID}
	if _, ok := s.edges[edge]; !ok {
		return mongoDB.ErrNoDocuments
	}
	delete(s.edges, edge)
	return nil
}

func (s *stubFollowRepo) FollowingIDs(ctx context.Context, followerID uint64) ([]uint64, error) {
	var ids []uint64
	for edge := range s.edges {
		if edge.follower == followerID {
			ids = append(ids, edge.followee)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *stubFollowRepo) FollowerIDs(ctx context.Context, followeeID uint64) ([]uint64, error) {
	var ids []uint64
	for edge := range s.edges {
		if edge.followee == followeeID {
			ids = append(ids, edge.follower)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type stubTagRepo struct {
	top     map[uint64][]string
	bumps   map[string]int64
	bumpErr error
}

func newStubTagRepo() *stubTagRepo {
	return &stubTagRepo{top: make(map[uint64][]string), bumps: make(map[string]int64)}
}

func (s *stubTagRepo) IncrementWeight(ctx context.Context, userID uint64, tag string, delta int64) error {
	if s.bumpErr != nil {
		return s.bumpErr
	}
	s.bumps[tag] += delta
	return nil
}

func (s *stubTagRepo) TopTags(ctx context.Context, userID uint64, limit int64) ([]string, error) {
	return s.top[userID], nil
}

type stubNotifyRepo struct {
	notifications []model.Notification
	createErr     error
	listCalls     int
	lastBefore    *time.Time
}

func (s *stubNotifyRepo) Create(ctx context.Context, n *model.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	// 最新在前,和落库副本的排序口径一致
	s.notifications = append([]model.Notification{*n}, s.notifications...)
	return nil
}

func (s *stubNotifyRepo) ListByReceiver(ctx context.Context, userID uint64, limit int64, before *time.Time) ([]model.Notification, error) {
	s.listCalls++
	s.lastBefore = before
	res := make([]model.Notification, 0, limit)
	for _, n := range s.notifications {
		if n.ReceiverID != userID {
			continue
		}
		if before != nil && !n.CreatedAt.Before(*before) {
			continue
		}
		res = append(res, n)
		if int64(len(res)) >= limit {
			break
		}
	}
	return res, nil
}

func (s *stubNotifyRepo) MarkAsRead(ctx context.Context, userID uint64, id string) error {
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID.Hex() == id && n.ReceiverID == userID {
			n.IsRead = true
			return nil
		}
	}
	return mongoDB.ErrNoDocuments
}

func (s *stubNotifyRepo) MarkAllAsRead(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	for i := range s.notifications {
		if s.notifications[i].ReceiverID == userID && !s.notifications[i].IsRead {
			s.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (s *stubNotifyRepo) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	var n int64
	for _, notification := range s.notifications {
		if notification.ReceiverID == userID && !notification.IsRead {
			n++
		}
	}
	return n, nil
}

type stubMessageRepo struct {
	messages map[primitive.ObjectID]*model.Message
	saveErr  error
}

func newStubMessageRepo() *stubMessageRepo {
	return &stubMessageRepo{messages: make(map[primitive.ObjectID]*model.Message)}
}

func (s *stubMessageRepo) Save(ctx context.Context, msg *model.Message) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	if msg.ID.IsZero() {
		msg.ID = primitive.NewObjectID()
	}
	copied := *msg
	s.messages[msg.ID] = &copied
	return nil
}

func (s *stubMessageRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Message, error) {
	if m, ok := s.messages[id]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, mongoDB.ErrNoDocuments
}

func (s *stubMessageRepo) GetHistory(ctx context.Context, peerKey string, before time.Time, pageSize int64) ([]model.Message, error) {
	var res []model.Message
	for _, m := range s.messages {
		if m.PeerKey != peerKey {
			continue
		}
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		res = append(res, *m)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	if int64(len(res)) > pageSize {
		res = res[:pageSize]
	}
	return res, nil
}

func (s *stubMessageRepo) AdvanceState(ctx context.Context, id primitive.ObjectID, recipientID uint64, newState int8) (*model.Message, error) {
	m, ok := s.messages[id]
	if !ok || m.RecipientID != recipientID || !model.CanAdvanceState(m.State, newState) {
		return nil, mongoDB.ErrNoDocuments
	}
	m.State = newState
	m.UpdatedAt = time.Now()
	copied := *m
	return &copied, nil
}

func (s *stubMessageRepo) MarkConversationRead(ctx context.Context, peerKey string, recipientID uint64) (int64, error) {
	var n int64
	for _, m := range s.messages {
		if m.PeerKey == peerKey && m.RecipientID == recipientID && m.State < consts.MessageStateRead {
			m.State = consts.MessageStateRead
			n++
		}
	}
	return n, nil
}

type stubConvRepo struct {
	convs map[string]*model.Conversation
}

func newStubConvRepo() *stubConvRepo {
	return &stubConvRepo{convs: make(map[string]*model.Conversation)}
}

func (s *stubConvRepo) UpsertOnMessage(ctx context.Context, peerKey string, participants []uint64, recipientID uint64, at time.Time) error {
	conv, ok := s.convs[peerKey]
	if !ok {
		conv = &model.Conversation{
			ID:           primitive.NewObjectID(),
			PeerKey:      peerKey,
			Participants: participants,
			Unread:       make(map[string]int64),
			CreatedAt:    at,
		}
		s.convs[peerKey] = conv
	}
	conv.LastMessageAt = at
	conv.Unread[decimalID(recipientID)]++
	return nil
}

func (s *stubConvRepo) ResetUnread(ctx context.Context, peerKey string, userID uint64) error {
	if conv, ok := s.convs[peerKey]; ok {
		conv.Unread[decimalID(userID)] = 0
	}
	return nil
}

func (s *stubConvRepo) GetByPeerKey(ctx context.Context, peerKey string) (*model.Conversation, error) {
	if conv, ok := s.convs[peerKey]; ok {
		copied := *conv
		return &copied, nil
	}
	return nil, mongoDB.ErrNoDocuments
}

func (s *stubConvRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int64) ([]model.Conversation, error) {
	var res []model.Conversation
	for _, conv := range s.convs {
		for _, p := range conv.Participants {
			if p == userID {
				res = append(res, *conv)
				break
			}
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].LastMessageAt.After(res[j].LastMessageAt) })
	if offset >= int64(len(res)) {
		return nil, nil
	}
	res = res[offset:]
	if int64(len(res)) > limit {
		res = res[:limit]
	}
	return res, nil
}

func decimalID(id uint64) string {
	return strconv.FormatUint(id, 10)
}
