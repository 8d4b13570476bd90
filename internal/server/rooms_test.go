package server

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrivateRoomID_Symmetry(t *testing.T) {
	req := require.New(t)

	req.Equal(privateRoomID("a", "b"), privateRoomID("b", "a"))
	req.Equal("a-b", privateRoomID("b", "a"))
	req.Equal(privateRoomID("conn-9", "conn-10"), privateRoomID("conn-10", "conn-9"))
}

func TestRoomTable_SubscribeAndPublishTargets(t *testing.T) {
	req := require.New(t)
	table := newRoomTable()
	a := newTestClient()
	b := newTestClient()

	table.subscribe("room-1", a)
	table.subscribe("room-1", b)
	table.subscribe("room-2", a)

	req.ElementsMatch([]*Client{a, b}, table.subscribers("room-1"))
	req.ElementsMatch([]*Client{a}, table.subscribers("room-2"))
	req.True(table.subscribed("room-1", b))
	req.False(table.subscribed("room-2", b))
}

func TestRoomTable_SubscribeTwiceDeliversOnce(t *testing.T) {
	req := require.New(t)
	table := newRoomTable()
	a := newTestClient()

	table.subscribe("room-1", a)
	table.subscribe("room-1", a)

	req.Len(table.subscribers("room-1"), 1)
}

func TestRoomTable_UnsubscribeCollectsEmptyChannels(t *testing.T) {
	req := require.New(t)
	table := newRoomTable()
	a := newTestClient()
	table.subscribe("room-1", a)

	table.unsubscribe("room-1", a)

	req.Nil(table.subscribers("room-1"))
	req.Empty(table.members)

	// Unsubscribing from a channel that no longer exists is a no-op.
	table.unsubscribe("room-1", a)
}

func TestRoomTable_DropClient(t *testing.T) {
	req := require.New(t)
	table := newRoomTable()
	a := newTestClient()
	b := newTestClient()
	table.subscribe("room-1", a)
	table.subscribe("room-1", b)
	table.subscribe("room-2", a)

	table.dropClient(a)

	req.ElementsMatch([]*Client{b}, table.subscribers("room-1"))
	req.Nil(table.subscribers("room-2"))
	req.Len(table.members, 1)
}
