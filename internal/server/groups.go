// Package server models named, optionally age-gated groups with dynamic
// membership via the group registry.
package server

import (
	"fmt"

	"github.com/samber/lo"
)

// group is a named conversation with a dynamic member set. The creator
// identity is a snapshot taken at creation time; it does not track later
// changes to the creator's registration.
type group struct {
	id         string
	name       string
	creator    ClientInfo
	minimumAge *int
	members    map[string]struct{}
}

func (g *group) hasMember(id string) bool {
	_, ok := g.members[id]
	return ok
}

func (g *group) addMember(id string) {
	g.members[id] = struct{}{}
}

func (g *group) removeMember(id string) {
	delete(g.members, id)
}

func (g *group) memberCount() int {
	return len(g.members)
}

// snapshot resolves the member set against the connection registry into the
// wire shape broadcast to clients.
func (g *group) snapshot(clients *clientRegistry) GroupSnapshot {
	members := lo.Map(lo.Keys(g.members), func(id string, _ int) ClientInfo {
		return clients.memberInfo(id)
	})
	return GroupSnapshot{
		GroupID:    g.id,
		Name:       g.name,
		Creator:    g.creator,
		MinimumAge: g.minimumAge,
		Members:    members,
	}
}

// groupRegistry maps group ids to groups. Ids are monotonic ("group-1",
// "group-2", ...) for the life of the process. The router serializes access.
type groupRegistry struct {
	groups map[string]*group
	nextID int
}

func newGroupRegistry() *groupRegistry {
	return &groupRegistry{groups: make(map[string]*group), nextID: 1}
}

func (r *groupRegistry) create(name string, creator ClientInfo, minimumAge *int) *group {
	g := &group{
		id:         fmt.Sprintf("group-%d", r.nextID),
		name:       name,
		creator:    creator,
		minimumAge: minimumAge,
		members:    map[string]struct{}{creator.SocketID: {}},
	}
	r.nextID++
	r.groups[g.id] = g
	return g
}

func (r *groupRegistry) get(id string) (*group, bool) {
	g, ok := r.groups[id]
	return g, ok
}

func (r *groupRegistry) remove(id string) {
	delete(r.groups, id)
}

// membership lists every group the connection belongs to.
func (r *groupRegistry) membership(connID string) []*group {
	var joined []*group
	for _, g := range r.groups {
		if g.hasMember(connID) {
			joined = append(joined, g)
		}
	}
	return joined
}

// snapshots lists every group in its wire shape.
func (r *groupRegistry) snapshots(clients *clientRegistry) []GroupSnapshot {
	return lo.MapToSlice(r.groups, func(_ string, g *group) GroupSnapshot {
		return g.snapshot(clients)
	})
}
