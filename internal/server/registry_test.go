package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestClient() *Client {
	return &Client{
		id:   uuid.NewString(),
		send: make(chan []byte, 64),
		addr: "test",
	}
}

func TestClientRegistry_AddAndGet(t *testing.T) {
	req := require.New(t)
	reg := newClientRegistry()
	c := newTestClient()

	entry := reg.add(c, "Alice", 30)

	got, ok := reg.get(c.id)
	req.True(ok)
	req.Equal(entry, got)
	req.Equal("Alice", got.name)
	req.Equal(30, got.age)
	req.Equal(ClientInfo{Name: "Alice", SocketID: c.id, Age: 30}, got.info())
	req.Equal(ClientRef{Name: "Alice", SocketID: c.id}, got.ref())
}

func TestClientRegistry_RemoveIsIdempotent(t *testing.T) {
	req := require.New(t)
	reg := newClientRegistry()
	c := newTestClient()
	reg.add(c, "Alice", 30)

	reg.remove(c.id)
	reg.remove(c.id)

	_, ok := reg.get(c.id)
	req.False(ok)
	req.Empty(reg.snapshot())
}

func TestClientRegistry_NameTakenFoldsCase(t *testing.T) {
	req := require.New(t)
	reg := newClientRegistry()
	reg.add(newTestClient(), "Alice", 30)

	req.True(reg.nameTaken("Alice"))
	req.True(reg.nameTaken("ALICE"))
	req.True(reg.nameTaken("alice"))
	req.False(reg.nameTaken("Bob"))
}

func TestClientRegistry_NamePreservesCasing(t *testing.T) {
	req := require.New(t)
	reg := newClientRegistry()
	c := newTestClient()
	reg.add(c, "AlIcE", 30)

	entry, ok := reg.get(c.id)
	req.True(ok)
	req.Equal("AlIcE", entry.name)
}

func TestClientRegistry_MemberInfoUnknownFallback(t *testing.T) {
	req := require.New(t)
	reg := newClientRegistry()

	info := reg.memberInfo("gone")
	req.Equal("Unknown", info.Name)
	req.Equal("gone", info.SocketID)
}

func TestClientRegistry_Snapshot(t *testing.T) {
	req := require.New(t)
	reg := newClientRegistry()
	a := newTestClient()
	b := newTestClient()
	reg.add(a, "Alice", 30)
	reg.add(b, "Bob", 25)

	req.ElementsMatch([]ClientInfo{
		{Name: "Alice", SocketID: a.id, Age: 30},
		{Name: "Bob", SocketID: b.id, Age: 25},
	}, reg.snapshot())
}
