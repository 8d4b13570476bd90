package server

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func TestGroupRegistry_CreateAssignsMonotonicIDs(t *testing.T) {
	req := require.New(t)
	reg := newGroupRegistry()
	creator := ClientInfo{Name: "Alice", SocketID: "conn-a", Age: 30}

	g1 := reg.create("first", creator, nil)
	g2 := reg.create("second", creator, nil)

	req.Equal("group-1", g1.id)
	req.Equal("group-2", g2.id)
	req.True(g1.hasMember("conn-a"))
	req.Equal(1, g1.memberCount())
}

func TestGroupRegistry_Membership(t *testing.T) {
	req := require.New(t)
	reg := newGroupRegistry()
	creator := ClientInfo{Name: "Alice", SocketID: "conn-a", Age: 30}

	g1 := reg.create("first", creator, nil)
	g2 := reg.create("second", creator, nil)
	reg.create("third", ClientInfo{Name: "Bob", SocketID: "conn-b", Age: 25}, nil)
	g2.addMember("conn-b")

	joined := reg.membership("conn-a")
	ids := lo.Map(joined, func(g *group, _ int) string { return g.id })
	req.ElementsMatch([]string{g1.id, g2.id}, ids)
}

func TestGroup_SnapshotResolvesMembers(t *testing.T) {
	req := require.New(t)
	clients := newClientRegistry()
	a := newTestClient()
	b := newTestClient()
	clients.add(a, "Alice", 30)
	clients.add(b, "Bob", 25)

	reg := newGroupRegistry()
	minAge := 21
	g := reg.create("vip", clients.memberInfo(a.id), &minAge)
	g.addMember(b.id)

	snapshot := g.snapshot(clients)
	req.Equal(g.id, snapshot.GroupID)
	req.Equal("vip", snapshot.Name)
	req.Equal("Alice", snapshot.Creator.Name)
	req.NotNil(snapshot.MinimumAge)
	req.Equal(21, *snapshot.MinimumAge)
	req.ElementsMatch([]ClientInfo{
		{Name: "Alice", SocketID: a.id, Age: 30},
		{Name: "Bob", SocketID: b.id, Age: 25},
	}, snapshot.Members)
}

func TestGroup_SnapshotUnknownMember(t *testing.T) {
	req := require.New(t)
	clients := newClientRegistry()
	reg := newGroupRegistry()
	g := reg.create("ghosts", ClientInfo{Name: "Alice", SocketID: "conn-a", Age: 30}, nil)

	snapshot := g.snapshot(clients)
	req.Len(snapshot.Members, 1)
	req.Equal("Unknown", snapshot.Members[0].Name)
}

func TestGroupRegistry_Remove(t *testing.T) {
	req := require.New(t)
	reg := newGroupRegistry()
	g := reg.create("doomed", ClientInfo{Name: "Alice", SocketID: "conn-a", Age: 30}, nil)

	reg.remove(g.id)

	_, ok := reg.get(g.id)
	req.False(ok)
	req.Empty(reg.snapshots(newClientRegistry()))
}
