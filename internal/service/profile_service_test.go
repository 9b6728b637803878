package service

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/model"
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/util"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfileFixture(t *testing.T) (ProfileService, *stubUserRepo, *eventbus.Bus) {
	t.Helper()
	setupServiceTest(t)

	userRepo := &stubUserRepo{users: map[uint64]*model.User{
		1: {UserID: 1, Username: "alice", Avatar: "alice.png"},
		2: {UserID: 2, Username: "bob"},
	}}
	bus := eventbus.NewBus()
	return NewProfileService(userRepo, bus), userRepo, bus
}

func TestUpdateProfileMergesPartialFields(t *testing.T) {
	svc, userRepo, bus := newProfileFixture(t)
	events := captureEvents(bus, consts.EventProfileChanged)

	d, err := svc.UpdateProfile(context.Background(), 1, &dto.UpdateProfileReq{Username: util.PtrString("alice2")})
	require.NoError(t, err)

	assert.Equal(t, "alice2", d.Username)
	assert.Equal(t, "alice.png", d.AvatarURL, "omitted field keeps its value")
	assert.Equal(t, "alice2", userRepo.users[1].Username)

	require.Len(t, *events, 1)
	assert.Equal(t, dto.ProfileChangedDTO{UserID: 1, Username: "alice2", Avatar: "alice.png"}, (*events)[0].Payload)
}

func TestUpdateProfileNoChangePublishesNothing(t *testing.T) {
	svc, _, bus := newProfileFixture(t)
	events := captureEvents(bus, consts.EventProfileChanged)

	d, err := svc.UpdateProfile(context.Background(), 1, &dto.UpdateProfileReq{Username: util.PtrString("alice")})
	require.NoError(t, err)

	assert.Equal(t, "alice", d.Username)
	assert.Empty(t, *events, "identical values must not fan out")
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	svc, _, _ := newProfileFixture(t)

	_, err := svc.UpdateProfile(context.Background(), 99, &dto.UpdateProfileReq{Username: util.PtrString("ghost")})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetProfileDefaultsMissingAvatar(t *testing.T) {
	svc, _, _ := newProfileFixture(t)

	d, err := svc.GetProfile(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, consts.DefaultAvatarURL, d.AvatarURL)

	_, err = svc.GetProfile(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
