// Package server tracks the identity bound to each live connection via the
// connection registry.
package server

import (
	"strings"

	"github.com/samber/lo"
)

// registeredClient binds a display name and age to one live connection.
type registeredClient struct {
	client *Client
	name   string
	age    int
}

func (rc *registeredClient) info() ClientInfo {
	return ClientInfo{Name: rc.name, SocketID: rc.client.id, Age: rc.age}
}

func (rc *registeredClient) ref() ClientRef {
	return ClientRef{Name: rc.name, SocketID: rc.client.id}
}

// clientRegistry maps connection ids to registered identities. It holds no
// lock of its own; the router serializes every access.
type clientRegistry struct {
	entries map[string]*registeredClient
}

func newClientRegistry() *clientRegistry {
	return &clientRegistry{entries: make(map[string]*registeredClient)}
}

func (r *clientRegistry) add(c *Client, name string, age int) *registeredClient {
	entry := &registeredClient{client: c, name: name, age: age}
	r.entries[c.id] = entry
	return entry
}

func (r *clientRegistry) get(id string) (*registeredClient, bool) {
	entry, ok := r.entries[id]
	return entry, ok
}

func (r *clientRegistry) remove(id string) {
	delete(r.entries, id)
}

// nameTaken reports whether a display name is already in use, folding case.
// The scan is linear over live connections, which is fine at chat-room scale
// but would need an index to scale further.
func (r *clientRegistry) nameTaken(name string) bool {
	folded := strings.ToLower(name)
	for _, entry := range r.entries {
		if strings.ToLower(entry.name) == folded {
			return true
		}
	}
	return false
}

// memberInfo resolves a connection id to its public identity. Members that
// disappeared between snapshot and resolution show up as "Unknown".
func (r *clientRegistry) memberInfo(id string) ClientInfo {
	if entry, ok := r.entries[id]; ok {
		return entry.info()
	}
	return ClientInfo{Name: "Unknown", SocketID: id}
}

// snapshot lists every registered connection.
func (r *clientRegistry) snapshot() []ClientInfo {
	return lo.MapToSlice(r.entries, func(_ string, entry *registeredClient) ClientInfo {
		return entry.info()
	})
}
