package service

import (
	"Ripple/internal/api/config"
	"Ripple/internal/api/dto"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type feedFixture struct {
	svc         FeedService
	contentRepo *stubContentRepo
	followRepo  *stubFollowRepo
	tagRepo     *stubTagRepo
	bus         *eventbus.Bus
	mr          *miniredis.Miniredis
}

func newFeedFixture(t *testing.T) *feedFixture {
	t.Helper()
	mr := setupServiceTest(t)

	f := &feedFixture{
		contentRepo: &stubContentRepo{},
		followRepo:  newStubFollowRepo(),
		tagRepo:     newStubTagRepo(),
		bus:         eventbus.NewBus(),
		mr:          mr,
	}
	f.svc = NewFeedService(f.contentRepo, f.followRepo, f.tagRepo, f.bus)
	return f
}

func feedContent(authorID uint64, age time.Duration, likes int64, tags ...string) model.Content {
	return model.Content{
		ID:        primitive.NewObjectID(),
		AuthorID:  authorID,
		Author:    model.AuthorSnapshot{Username: fmt.Sprintf("user-%d", authorID)},
		Body:      "body",
		Tags:      tags,
		LikeCount: likes,
		CreatedAt: time.Now().Add(-age),
	}
}

func userFeedKey(userID uint64) string {
	return fmt.Sprintf("%s%d:p1:l20", consts.UserFeedKey, userID)
}

func TestGetUserFeedColdStartSignalOnlyOnFirstPage(t *testing.T) {
	f := newFeedFixture(t)
	f.contentRepo.contents = []model.Content{
		feedContent(7, time.Hour, 10, "go"),
		feedContent(8, 2*time.Hour, 3),
		feedContent(9, 3*time.Hour, 0),
	}
	signals := captureEvents(f.bus, consts.EventColdStart)

	page1, err := f.svc.GetUserFeed(context.Background(), 1, &dto.PageQuery{Limit: 2, Skip: 0})
	require.NoError(t, err)
	assert.Len(t, page1.Items, 2)
	assert.Equal(t, int64(3), page1.Total)
	require.Len(t, *signals, 1)
	assert.Equal(t, dto.ColdStartDTO{UserID: 1}, (*signals)[0].Payload)

	page2, err := f.svc.GetUserFeed(context.Background(), 1, &dto.PageQuery{Limit: 2, Skip: 2})
	require.NoError(t, err)
	assert.Len(t, page2.Items, 1)
	assert.Len(t, *signals, 1, "second page must not signal again")
}

func TestGetUserFeedPersonalizedForFollowedAuthor(t *testing.T) {
	f := newFeedFixture(t)
	followed := feedContent(7, time.Hour, 0)
	stranger := feedContent(8, 30*time.Minute, 50)
	f.contentRepo.contents = []model.Content{followed, stranger}
	require.NoError(t, f.followRepo.Create(context.Background(), 1, 7))
	signals := captureEvents(f.bus, consts.EventColdStart)

	page, err := f.svc.GetUserFeed(context.Background(), 1, &dto.PageQuery{})
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, followed.ID.Hex(), page.Items[0].ID)
	assert.True(t, page.Items[0].IsPersonalized)
	assert.Equal(t, 1, f.contentRepo.candidateCalls)
	assert.Empty(t, *signals, "a viewer with follows is not cold")
}

func TestGetUserFeedServesCachedPage(t *testing.T) {
	f := newFeedFixture(t)
	f.contentRepo.contents = []model.Content{feedContent(7, time.Hour, 1)}

	first, err := f.svc.GetUserFeed(context.Background(), 1, &dto.PageQuery{})
	require.NoError(t, err)
	recomputes := f.contentRepo.recentCalls
	require.True(t, f.mr.Exists(userFeedKey(1)))

	second, err := f.svc.GetUserFeed(context.Background(), 1, &dto.PageQuery{})
	require.NoError(t, err)

	assert.Equal(t, recomputes, f.contentRepo.recentCalls, "cached page must not recompute")
	assert.Equal(t, first.Total, second.Total)
	require.Len(t, second.Items, len(first.Items))
	assert.Equal(t, first.Items[0].ID, second.Items[0].ID)
}

func TestHandleFollowChangedInvalidatesOnlyThatViewer(t *testing.T) {
	f := newFeedFixture(t)
	f.contentRepo.contents = []model.Content{feedContent(7, time.Hour, 1)}
	warmViewerPages(t, f)

	err := f.svc.HandleFollowChanged(context.Background(), eventbus.Event{
		Type:    consts.EventFollowCreated,
		Payload: dto.FollowEventDTO{FollowerID: 1, FolloweeID: 7},
	})
	require.NoError(t, err)

	assert.False(t, f.mr.Exists(userFeedKey(1)), "follower's pages are stale")
	assert.True(t, f.mr.Exists(userFeedKey(2)), "other viewers keep their cache")
	assert.True(t, f.mr.Exists(fmt.Sprintf("%s:p1:l20", consts.TrendingFeedKey)))
}

func TestHandleFollowChangedRejectsForeignPayload(t *testing.T) {
	f := newFeedFixture(t)

	err := f.svc.HandleFollowChanged(context.Background(), eventbus.Event{
		Type:    consts.EventFollowCreated,
		Payload: "not a follow event",
	})
	assert.Error(t, err)
}

func TestHandleNewPostInvalidatesEveryFeedPage(t *testing.T) {
	f := newFeedFixture(t)
	f.contentRepo.contents = []model.Content{feedContent(7, time.Hour, 1)}
	warmViewerPages(t, f)

	err := f.svc.HandleNewPost(context.Background(), eventbus.Event{Type: consts.EventNewPost})
	require.NoError(t, err)

	assert.False(t, f.mr.Exists(userFeedKey(1)))
	assert.False(t, f.mr.Exists(userFeedKey(2)))
	assert.False(t, f.mr.Exists(fmt.Sprintf("%s:p1:l20", consts.TrendingFeedKey)))
}

func TestPrewarmDiscoveryWritesSharedPages(t *testing.T) {
	f := newFeedFixture(t)
	f.contentRepo.contents = []model.Content{
		feedContent(7, time.Hour, 5),
		feedContent(8, 2*time.Hour, 1),
	}

	require.NoError(t, f.svc.PrewarmDiscovery(context.Background()))
	scans := f.contentRepo.recentCalls

	trending, err := f.svc.GetTrendingFeed(context.Background(), &dto.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, scans, f.contentRepo.recentCalls, "prewarmed trending page served from cache")
	assert.Len(t, trending.Items, 2)

	newest, err := f.svc.GetNewestFeed(context.Background(), &dto.PageQuery{})
	require.NoError(t, err)
	assert.Equal(t, scans, f.contentRepo.recentCalls, "prewarmed newest page served from cache")
	require.Len(t, newest.Items, 2)
	assert.Equal(t, f.contentRepo.contents[0].ID.Hex(), newest.Items[0].ID)
}

func TestGetForYouFeedWeighsFavoriteTags(t *testing.T) {
	f := newFeedFixture(t)
	tagged := feedContent(7, time.Hour, 0, "go")
	plain := feedContent(8, time.Hour, 0)
	f.contentRepo.contents = []model.Content{plain, tagged}
	f.tagRepo.top[1] = []string{"go"}

	page, err := f.svc.GetForYouFeed(context.Background(), 1, &dto.PageQuery{})
	require.NoError(t, err)

	require.Len(t, page.Items, 2)
	assert.Equal(t, tagged.ID.Hex(), page.Items[0].ID, "tag match outranks equally fresh content")
	assert.Greater(t, page.Items[0].Score, page.Items[1].Score)
}

func TestGetTrendingFeedHonorsMinLikes(t *testing.T) {
	f := newFeedFixture(t)
	hot := feedContent(7, time.Hour, 10)
	quiet := feedContent(8, time.Hour, 1)
	f.contentRepo.contents = []model.Content{hot, quiet}
	config.Cfg.Feed.TrendingMinLikes = 5

	page, err := f.svc.GetTrendingFeed(context.Background(), &dto.PageQuery{})
	require.NoError(t, err)

	require.Len(t, page.Items, 1)
	assert.Equal(t, hot.ID.Hex(), page.Items[0].ID)
}

// warmViewerPages 预热两个观众的个性化第一页和共享热门页
func warmViewerPages(t *testing.T, f *feedFixture) {
	t.Helper()
	_, err := f.svc.GetUserFeed(context.Background(), 1, &dto.PageQuery{})
	require.NoError(t, err)
	_, err = f.svc.GetUserFeed(context.Background(), 2, &dto.PageQuery{})
	require.NoError(t, err)
	_, err = f.svc.GetTrendingFeed(context.Background(), &dto.PageQuery{})
	require.NoError(t, err)
	require.True(t, f.mr.Exists(userFeedKey(1)))
	require.True(t, f.mr.Exists(userFeedKey(2)))
}
