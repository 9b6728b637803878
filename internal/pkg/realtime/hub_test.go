package realtime

import (
	"Ripple/internal/pkg/consts"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(h *Hub, userID uint64, buffer int) *Client {
	return &Client{UserID: userID, hub: h, send: make(chan []byte, buffer)}
}

func readFrame(t *testing.T, c *Client) Message {
	t.Helper()
	require.NotEmpty(t, c.send, "expected a queued frame")

	var msg Message
	require.NoError(t, json.Unmarshal(<-c.send, &msg))
	return msg
}

func TestHubEmitToRoomTargetsOneUser(t *testing.T) {
	h := NewHub()
	alice := testClient(h, 1, 4)
	bob := testClient(h, 2, 4)
	h.Register(alice)
	h.Register(bob)

	h.EmitToRoom(1, consts.EventNotification, map[string]string{"id": "n1"})

	msg := readFrame(t, alice)
	assert.Equal(t, consts.EventNotification, msg.Type)
	assert.Empty(t, bob.send, "other rooms stay quiet")
}

func TestHubEmitGlobalReachesEveryConnection(t *testing.T) {
	h := NewHub()
	alice := testClient(h, 1, 4)
	bob := testClient(h, 2, 4)
	h.Register(alice)
	h.Register(bob)

	h.EmitGlobal(consts.EventLikeUpdate, map[string]int{"newLikes": 3})

	assert.Equal(t, consts.EventLikeUpdate, readFrame(t, alice).Type)
	assert.Equal(t, consts.EventLikeUpdate, readFrame(t, bob).Type)
}

func TestHubRoomHoldsParallelConnections(t *testing.T) {
	h := NewHub()
	phone := testClient(h, 1, 4)
	laptop := testClient(h, 1, 4)
	h.Register(phone)
	h.Register(laptop)
	require.Equal(t, 2, h.Online(1))

	h.EmitToRoom(1, consts.EventNotification, nil)

	assert.Len(t, phone.send, 1)
	assert.Len(t, laptop.send, 1)
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	h := NewHub()
	alice := testClient(h, 1, 4)
	h.Register(alice)

	h.Unregister(alice)
	h.Unregister(alice)

	assert.Equal(t, 0, h.Online(1))
	h.EmitToRoom(1, consts.EventNotification, nil)

	_, open := <-alice.send
	assert.False(t, open, "send channel closes exactly once")
}

func TestHubSlowClientDropsFrameWithoutBlocking(t *testing.T) {
	h := NewHub()
	slow := testClient(h, 1, 1)
	h.Register(slow)

	h.EmitToRoom(1, consts.EventNotification, map[string]string{"id": "n1"})
	h.EmitToRoom(1, consts.EventNotification, map[string]string{"id": "n2"})

	assert.Len(t, slow.send, 1, "overflow frames are dropped, not queued")
}
