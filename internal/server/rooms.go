// Package server multiplexes private and group conversations over a shared
// channel fan-out primitive: the room table.
package server

import (
	"sort"
	"strings"
)

// privateRoomSeparator joins the two sorted connection ids of a private room.
const privateRoomSeparator = "-"

// privateRoomID derives the id of the implicit two-party channel between a
// and b. Sorting first means both endpoints compute the same id without
// coordination.
func privateRoomID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, privateRoomSeparator)
}

// roomTable maps channel ids (private-room ids and group ids) to their
// subscribed connections. Group subscriptions mirror group membership
// exactly; private-room subscriptions are created lazily on first message
// and live until a participant disconnects. The router serializes access.
type roomTable struct {
	members map[string]map[*Client]struct{}
}

func newRoomTable() *roomTable {
	return &roomTable{members: make(map[string]map[*Client]struct{})}
}

func (t *roomTable) subscribe(channelID string, c *Client) {
	set, ok := t.members[channelID]
	if !ok {
		set = make(map[*Client]struct{})
		t.members[channelID] = set
	}
	set[c] = struct{}{}
}

func (t *roomTable) unsubscribe(channelID string, c *Client) {
	set, ok := t.members[channelID]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(t.members, channelID)
	}
}

// subscribed reports whether c currently belongs to the channel.
func (t *roomTable) subscribed(channelID string, c *Client) bool {
	_, ok := t.members[channelID][c]
	return ok
}

// subscribers returns the current member connections of a channel.
func (t *roomTable) subscribers(channelID string) []*Client {
	set := t.members[channelID]
	if len(set) == 0 {
		return nil
	}
	subs := make([]*Client, 0, len(set))
	for c := range set {
		subs = append(subs, c)
	}
	return subs
}

// dropClient removes c from every channel it belongs to. Called from the
// disconnect cascade; empty channels are garbage-collected on the spot.
func (t *roomTable) dropClient(c *Client) {
	for channelID, set := range t.members {
		if _, ok := set[c]; !ok {
			continue
		}
		delete(set, c)
		if len(set) == 0 {
			delete(t.members, channelID)
		}
	}
}
