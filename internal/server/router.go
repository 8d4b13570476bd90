// Package server dispatches inbound client events against the connection,
// group, and message registries and fans the resulting events out to the
// interested channels.
package server

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// Router is the protocol dispatcher. A single mutex serializes every
// registry, room-table, and store mutation, so cross-registry operations
// like the disconnect cascade are atomic with respect to concurrent joins
// and reactions. Per-connection event ordering comes from each connection's
// single read pump; no handler blocks on I/O, so the critical sections stay
// short.
type Router struct {
	mu       sync.Mutex
	conns    map[*Client]struct{}
	clients  *clientRegistry
	groups   *groupRegistry
	rooms    *roomTable
	messages *messageStore
	validate *validator.Validate
}

// NewRouter creates a Router with empty registries.
func NewRouter() *Router {
	return &Router{
		conns:    make(map[*Client]struct{}),
		clients:  newClientRegistry(),
		groups:   newGroupRegistry(),
		rooms:    newRoomTable(),
		messages: newMessageStore(),
		validate: validator.New(),
	}
}

// AddConnection makes a freshly accepted connection visible to broadcasts.
// The connection stays unregistered until its register event succeeds.
func (rt *Router) AddConnection(c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.conns[c] = struct{}{}
}

// Dispatch parses one inbound frame and runs the matching handler. Malformed
// frames and unknown events are reported to the sender only; failures are
// never broadcast.
func (rt *Router) Dispatch(c *Client, raw []byte) {
	var envelope ClientEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		log.Printf("Invalid frame from %s: %v", c.addr, err)
		rt.mu.Lock()
		rt.sendError(c, rejectValidation("Invalid message format."))
		rt.mu.Unlock()
		return
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	switch envelope.Event {
	case EventRegister:
		rt.handleRegister(c, envelope.Data)
	case EventPrivateMessage:
		rt.handlePrivateMessage(c, envelope.Data)
	case EventCreateGroup:
		rt.handleCreateGroup(c, envelope.Data)
	case EventJoinGroup:
		rt.handleJoinGroup(c, envelope.Data)
	case EventGroupMessage:
		rt.handleGroupMessage(c, envelope.Data)
	case EventAddReaction:
		rt.handleReaction(c, envelope.Data, true)
	case EventRemoveReaction:
		rt.handleReaction(c, envelope.Data, false)
	case EventPrivateTypingStart:
		rt.handlePrivateTyping(c, envelope.Data, EventPrivateTypingStart)
	case EventPrivateTypingStop:
		rt.handlePrivateTyping(c, envelope.Data, EventPrivateTypingStop)
	case EventGroupTypingStart:
		rt.handleGroupTyping(c, envelope.Data, EventGroupTypingStart)
	case EventGroupTypingStop:
		rt.handleGroupTyping(c, envelope.Data, EventGroupTypingStop)
	default:
		log.Printf("Ignoring unknown event %q from %s", envelope.Event, c.addr)
	}
}

// Disconnect runs the full cleanup cascade for a connection: transport
// teardown, identity removal, group leave per membership, room
// unsubscription, and the leave broadcast. Idempotent, so a second
// invocation is a no-op.
func (rt *Router) Disconnect(c *Client) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if _, ok := rt.conns[c]; !ok {
		return
	}
	delete(rt.conns, c)

	// The router owns send-channel teardown. Marking closed and closing the
	// channel under rt.mu excludes every deliver call, so an in-flight
	// handler can never send on a closed channel.
	c.closed = true
	close(c.send)

	entry, registered := rt.clients.get(c.id)
	if !registered {
		return
	}
	info := entry.info()
	rt.clients.remove(c.id)

	for _, g := range rt.groups.membership(c.id) {
		rt.leaveGroup(g, c)
	}

	rt.rooms.dropClient(c)

	log.Printf("Client disconnected: %s (%s)", info.Name, c.id)
	rt.broadcast(EventClientLeft, info, nil)
}

// leaveGroup removes c from g, destroying the group when its member set
// empties out. Callers hold the router mutex.
func (rt *Router) leaveGroup(g *group, c *Client) {
	g.removeMember(c.id)
	rt.rooms.unsubscribe(g.id, c)

	if g.memberCount() == 0 {
		rt.groups.remove(g.id)
		rt.broadcast(EventGroupDeleted, GroupDeletedEvent{GroupID: g.id}, nil)
		return
	}
	rt.emitGroupUpdated(g, nil)
}

func (rt *Router) handleRegister(c *Client, data json.RawMessage) {
	name, age, rej := rt.validateRegister(data)
	if rej != nil {
		rt.send(c, EventRegisterResult, RegisterResult{Error: rej.Message})
		return
	}

	entry := rt.clients.add(c, name, age)
	log.Printf("Client registered: %s (age: %d, %s)", name, age, c.id)

	rt.send(c, EventRegisterResult, RegisterResult{Success: true})
	rt.send(c, EventClientList, rt.clients.snapshot())
	rt.send(c, EventGroupList, rt.groups.snapshots(rt.clients))
	rt.broadcast(EventClientJoined, entry.info(), c)
}

// validateRegister checks a register payload against current registry state.
// Name uniqueness folds case; the stored name keeps its original casing.
func (rt *Router) validateRegister(data json.RawMessage) (string, int, *Rejection) {
	var req RegisterRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", 0, rejectValidation("Invalid message format.")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", 0, rejectValidation("Name cannot be empty.")
	}
	if err := rt.validate.Struct(req); err != nil {
		return "", 0, rejectValidation("Age must be between 1 and 150.")
	}
	if rt.clients.nameTaken(name) {
		return "", 0, rejectConflict("Name already taken. Please choose another name.")
	}
	return name, req.Age, nil
}

func (rt *Router) handlePrivateMessage(c *Client, data json.RawMessage) {
	sender, ok := rt.clients.get(c.id)
	if !ok {
		rt.sendError(c, rejectAuthorization("You must register first."))
		return
	}

	var req PrivateMessageRequest
	if err := json.Unmarshal(data, &req); err != nil || rt.validate.Struct(req) != nil {
		rt.sendError(c, rejectNotFound("Recipient not found."))
		return
	}
	recipient, ok := rt.clients.get(req.RecipientID)
	if !ok {
		rt.sendError(c, rejectNotFound("Recipient not found."))
		return
	}

	roomID := privateRoomID(c.id, req.RecipientID)

	// Lazily establish the room on first contact. The subscription lives
	// until either participant disconnects.
	rt.rooms.subscribe(roomID, c)
	rt.rooms.subscribe(roomID, recipient.client)

	m := rt.messages.record(channelPrivate, roomID, currentConfig().MessageHistoryLimit)
	event := PrivateMessageEvent{
		RoomID:    roomID,
		MessageID: m.id,
		Sender:    sender.ref(),
		Recipient: recipient.ref(),
		Message:   req.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Reactions: map[string][]string{},
	}
	rt.publish(roomID, EventPrivateMessage, event, nil)
}

func (rt *Router) handleCreateGroup(c *Client, data json.RawMessage) {
	creator, ok := rt.clients.get(c.id)
	if !ok {
		rt.send(c, EventCreateGroupResult, GroupResult{Error: "You must register first."})
		return
	}

	name, minimumAge, rej := rt.validateCreateGroup(data, creator)
	if rej != nil {
		rt.send(c, EventCreateGroupResult, GroupResult{Error: rej.Message})
		return
	}

	g := rt.groups.create(name, creator.info(), minimumAge)
	rt.rooms.subscribe(g.id, c)
	log.Printf("Group created: %s (%s) by %s", g.name, g.id, creator.name)

	snapshot := g.snapshot(rt.clients)
	rt.send(c, EventCreateGroupResult, GroupResult{Success: true, GroupID: g.id, Group: &snapshot})
	rt.broadcast(EventGroupCreated, snapshot, nil)
}

// validateCreateGroup checks the payload and the creator-relative age gate.
func (rt *Router) validateCreateGroup(data json.RawMessage, creator *registeredClient) (string, *int, *Rejection) {
	var req CreateGroupRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return "", nil, rejectValidation("Invalid message format.")
	}

	name := strings.TrimSpace(req.GroupName)
	if name == "" {
		return "", nil, rejectValidation("Group name cannot be empty.")
	}
	if err := rt.validate.Struct(req); err != nil {
		return "", nil, rejectValidation("Minimum age must be between 1 and 150.")
	}
	if req.MinimumAge != nil && *req.MinimumAge > creator.age {
		return "", nil, rejectAgeGate(
			"You cannot set minimum age (%d) higher than your own age (%d).",
			*req.MinimumAge, creator.age)
	}
	return name, req.MinimumAge, nil
}

func (rt *Router) handleJoinGroup(c *Client, data json.RawMessage) {
	member, ok := rt.clients.get(c.id)
	if !ok {
		rt.send(c, EventJoinGroupResult, GroupResult{Error: "You must register first."})
		return
	}

	var req JoinGroupRequest
	if err := json.Unmarshal(data, &req); err != nil || rt.validate.Struct(req) != nil {
		rt.send(c, EventJoinGroupResult, GroupResult{Error: "Group not found."})
		return
	}
	g, ok := rt.groups.get(req.GroupID)
	if !ok {
		rt.send(c, EventJoinGroupResult, GroupResult{Error: "Group not found."})
		return
	}
	if g.hasMember(c.id) {
		rt.send(c, EventJoinGroupResult, GroupResult{Error: "You are already a member of this group."})
		return
	}
	if g.minimumAge != nil && member.age < *g.minimumAge {
		rej := rejectAgeGate(
			"You must be at least %d years old to join this group. Your age is %d.",
			*g.minimumAge, member.age)
		rt.send(c, EventJoinGroupResult, GroupResult{Error: rej.Message})
		return
	}

	g.addMember(c.id)
	rt.rooms.subscribe(g.id, c)
	log.Printf("%s joined group: %s (%s)", member.name, g.name, g.id)

	snapshot := g.snapshot(rt.clients)
	rt.send(c, EventJoinGroupResult, GroupResult{Success: true, Group: &snapshot})
	rt.emitGroupUpdated(g, nil)
}

func (rt *Router) handleGroupMessage(c *Client, data json.RawMessage) {
	sender, ok := rt.clients.get(c.id)
	if !ok {
		rt.sendError(c, rejectAuthorization("You must register first."))
		return
	}

	var req GroupMessageRequest
	if err := json.Unmarshal(data, &req); err != nil || rt.validate.Struct(req) != nil {
		rt.sendError(c, rejectNotFound("Group not found."))
		return
	}
	g, ok := rt.groups.get(req.GroupID)
	if !ok {
		rt.sendError(c, rejectNotFound("Group not found."))
		return
	}
	if !g.hasMember(c.id) {
		rt.sendError(c, rejectAuthorization("You are not a member of this group."))
		return
	}

	m := rt.messages.record(channelGroup, g.id, currentConfig().MessageHistoryLimit)
	event := GroupMessageEvent{
		GroupID:   g.id,
		MessageID: m.id,
		Sender:    sender.ref(),
		Message:   req.Message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Reactions: map[string][]string{},
	}
	rt.publish(g.id, EventGroupMessage, event, nil)
}

// handleReaction validates a reaction against the message's channel and
// applies it. Group reactions require current membership; private-room
// reactions require both the supplied room id to match and the sender to be
// a recorded participant of that room, so a guessed room id is not enough.
func (rt *Router) handleReaction(c *Client, data json.RawMessage, add bool) {
	if _, ok := rt.clients.get(c.id); !ok {
		rt.sendError(c, rejectAuthorization("You must register first."))
		return
	}

	var req ReactionRequest
	if err := json.Unmarshal(data, &req); err != nil || rt.validate.Struct(req) != nil {
		rt.sendError(c, rejectNotFound("Message not found."))
		return
	}
	m, ok := rt.messages.get(req.MessageID)
	if !ok {
		rt.sendError(c, rejectNotFound("Message not found."))
		return
	}

	switch m.kind {
	case channelPrivate:
		if req.RoomID != m.channelID || !rt.rooms.subscribed(m.channelID, c) {
			rt.sendError(c, rejectAuthorization("Invalid room."))
			return
		}
	case channelGroup:
		g, ok := rt.groups.get(m.channelID)
		if !ok || !g.hasMember(c.id) {
			rt.sendError(c, rejectAuthorization("You are not a member of this group."))
			return
		}
	}

	if add {
		m.addReaction(req.Emoji, c.id)
	} else {
		m.removeReaction(req.Emoji, c.id)
	}

	update := ReactionUpdateEvent{MessageID: m.id, Reactions: m.snapshotReactions()}
	rt.publish(m.channelID, EventReactionUpdate, update, nil)
}

// handlePrivateTyping forwards a typing signal to the other participant.
// Typing traffic is advisory, so validation failures are dropped silently.
func (rt *Router) handlePrivateTyping(c *Client, data json.RawMessage, event string) {
	sender, ok := rt.clients.get(c.id)
	if !ok {
		return
	}
	var req PrivateTypingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	recipient, ok := rt.clients.get(req.RecipientID)
	if !ok {
		return
	}
	rt.send(recipient.client, event, PrivateTypingEvent{Sender: sender.ref()})
}

// handleGroupTyping forwards a typing signal to the other group members.
func (rt *Router) handleGroupTyping(c *Client, data json.RawMessage, event string) {
	sender, ok := rt.clients.get(c.id)
	if !ok {
		return
	}
	var req GroupTypingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return
	}
	g, ok := rt.groups.get(req.GroupID)
	if !ok || !g.hasMember(c.id) {
		return
	}
	rt.publish(g.id, event, GroupTypingEvent{GroupID: g.id, Sender: sender.ref()}, c)
}

// emitGroupUpdated sends the group's snapshot to its members through the
// group channel and to every other connection through a general broadcast,
// so non-members still see membership and availability change.
func (rt *Router) emitGroupUpdated(g *group, skip *Client) {
	snapshot := g.snapshot(rt.clients)
	rt.publish(g.id, EventGroupUpdated, snapshot, skip)
	payload, err := encodeEvent(EventGroupUpdated, snapshot)
	if err != nil {
		log.Printf("Error encoding %s event: %v", EventGroupUpdated, err)
		return
	}
	for c := range rt.conns {
		if c == skip || g.hasMember(c.id) {
			continue
		}
		rt.deliver(c, payload)
	}
}

// publish delivers an event to every connection subscribed to the channel,
// once each, best-effort.
func (rt *Router) publish(channelID, event string, data any, skip *Client) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("Error encoding %s event: %v", event, err)
		return
	}
	for _, c := range rt.rooms.subscribers(channelID) {
		if c == skip {
			continue
		}
		rt.deliver(c, payload)
	}
}

// broadcast delivers an event to every live connection except skip.
func (rt *Router) broadcast(event string, data any, skip *Client) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("Error encoding %s event: %v", event, err)
		return
	}
	for c := range rt.conns {
		if c == skip {
			continue
		}
		rt.deliver(c, payload)
	}
}

// send delivers a single event to one connection.
func (rt *Router) send(c *Client, event string, data any) {
	payload, err := encodeEvent(event, data)
	if err != nil {
		log.Printf("Error encoding %s event: %v", event, err)
		return
	}
	rt.deliver(c, payload)
}

// sendError reports a fire-and-forget failure to its originator only.
func (rt *Router) sendError(c *Client, rej *Rejection) {
	rt.send(c, EventError, ErrorEvent{Message: rej.Message})
}

// deliver queues a payload on the connection's send buffer without blocking.
// A full buffer means the client cannot keep up; the frame is dropped and
// the connection is scheduled for removal so the cascade can reclaim its
// state.
func (rt *Router) deliver(c *Client, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic delivering to %s: %v", c.addr, r)
		}
	}()

	if c.closed {
		return
	}
	select {
	case c.send <- payload:
	default:
		log.Printf("Send buffer full for %s; dropping frame and scheduling removal", c.addr)
		if c.hub != nil {
			go func() { c.hub.unregister <- c }()
		}
	}
}
