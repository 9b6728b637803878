package service

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contentFixture struct {
	svc         ContentService
	contentRepo *stubContentRepo
	userRepo    *stubUserRepo
	followRepo  *stubFollowRepo
	bus         *eventbus.Bus
	mr          *miniredis.Miniredis
}

func newContentFixture(t *testing.T) *contentFixture {
	t.Helper()

	f := &contentFixture{
		contentRepo: &stubContentRepo{},
		userRepo: &stubUserRepo{users: map[uint64]*model.User{
			1: {UserID: 1, Username: "alice", Avatar: "alice.png"},
		}},
		followRepo: newStubFollowRepo(),
		bus:        eventbus.NewBus(),
		mr:         setupServiceTest(t),
	}
	f.svc = NewContentService(f.contentRepo, f.userRepo, f.followRepo, &fakeTxRunner{bus: f.bus}, f.bus)
	return f
}

func TestCreateContentExtractsTagsAndFansOut(t *testing.T) {
	f := newContentFixture(t)
	require.NoError(t, f.followRepo.Create(context.Background(), 2, 1))
	require.NoError(t, f.followRepo.Create(context.Background(), 3, 1))
	events := captureEvents(f.bus, consts.EventNewPost)

	d, err := f.svc.CreateContent(context.Background(), 1, &dto.CreateContentReq{Body: "hello #go and #redis"})
	require.NoError(t, err)

	assert.Equal(t, []string{"go", "redis"}, d.Tags)
	assert.Equal(t, "alice", d.Username)
	assert.Equal(t, "alice.png", d.AvatarURL)

	require.Len(t, f.contentRepo.created, 1)
	assert.Equal(t, "alice", f.contentRepo.created[0].Author.Username)

	require.Len(t, *events, 1)
	payload, ok := (*events)[0].Payload.(dto.NewPostEventDTO)
	require.True(t, ok)
	assert.Equal(t, d.ID, payload.Content.ID)
	assert.Equal(t, []uint64{2, 3}, payload.FollowerIDs)
}

func TestCreateContentRolledBackWriteEmitsNothing(t *testing.T) {
	f := newContentFixture(t)
	f.contentRepo.createErr = errors.New("write failed")
	events := captureEvents(f.bus, consts.EventNewPost)

	_, err := f.svc.CreateContent(context.Background(), 1, &dto.CreateContentReq{Body: "hello"})

	assert.Error(t, err)
	assert.Empty(t, *events, "queued events die with the transaction")
}

func TestCreateContentUnknownAuthor(t *testing.T) {
	f := newContentFixture(t)

	_, err := f.svc.CreateContent(context.Background(), 99, &dto.CreateContentReq{Body: "hello"})

	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetContentOverlaysCachedLikeCount(t *testing.T) {
	f := newContentFixture(t)
	content := feedContent(1, 0, 5)
	f.contentRepo.contents = []model.Content{content}
	require.NoError(t, f.mr.Set(consts.ContentLikeKey+content.ID.Hex(), "42"))

	d, err := f.svc.GetContent(context.Background(), content.ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, int64(42), d.LikeCount)
}

func TestGetContentFallsBackToStoredLikes(t *testing.T) {
	f := newContentFixture(t)
	content := feedContent(1, 0, 5)
	f.contentRepo.contents = []model.Content{content}
	f.mr.SetError("redis is down")

	d, err := f.svc.GetContent(context.Background(), content.ID.Hex())
	require.NoError(t, err)

	assert.Equal(t, int64(5), d.LikeCount)
}

func TestGetContentInvalidID(t *testing.T) {
	f := newContentFixture(t)

	_, err := f.svc.GetContent(context.Background(), "not-a-hex-id")
	assert.ErrorIs(t, err, ErrParamInvalid)

	_, err = f.svc.GetContent(context.Background(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrContentNotFound)
}
