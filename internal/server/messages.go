// Package server records per-message routing context and reaction state so
// reactions arriving as follow-up events can be validated and applied.
package server

import (
	"fmt"

	"github.com/samber/lo"
)

// channelKind distinguishes the two conversation channels a message can
// belong to.
type channelKind int

const (
	channelPrivate channelKind = iota
	channelGroup
)

// messageRecord keeps only what later events need: where the message lives
// and who reacted with what. Body, sender, and timestamp are broadcast once
// and never retained.
type messageRecord struct {
	id        string
	kind      channelKind
	channelID string
	reactions map[string][]string
}

// addReaction records connID under emoji. Re-adding is a no-op, so a client
// retrying a reaction cannot double-count itself.
func (m *messageRecord) addReaction(emoji, connID string) {
	ids := m.reactions[emoji]
	if lo.Contains(ids, connID) {
		return
	}
	m.reactions[emoji] = append(ids, connID)
}

// removeReaction drops connID from emoji's reactor set. The emoji key is
// deleted entirely once no reactors remain, so clients see the key vanish
// rather than an empty list.
func (m *messageRecord) removeReaction(emoji, connID string) {
	ids, ok := m.reactions[emoji]
	if !ok {
		return
	}
	remaining := lo.Without(ids, connID)
	if len(remaining) == 0 {
		delete(m.reactions, emoji)
		return
	}
	m.reactions[emoji] = remaining
}

// snapshotReactions deep-copies the reaction state for broadcast, so later
// mutations cannot race the marshalling of an in-flight event.
func (m *messageRecord) snapshotReactions() map[string][]string {
	snapshot := make(map[string][]string, len(m.reactions))
	for emoji, ids := range m.reactions {
		snapshot[emoji] = append([]string(nil), ids...)
	}
	return snapshot
}

// messageStore allocates monotonic message ids ("msg-1", "msg-2", ...) and
// keeps a bounded window of records, evicting oldest-first. Reactions on an
// evicted message fail the same way as reactions on a message that never
// existed. The router serializes access.
type messageStore struct {
	records map[string]*messageRecord
	order   []string
	nextID  int
}

func newMessageStore() *messageStore {
	return &messageStore{records: make(map[string]*messageRecord), nextID: 1}
}

// record stores a fresh message before fan-out so its id can ride in the
// outbound payload. A limit above zero bounds the store; older records are
// evicted to stay under it.
func (s *messageStore) record(kind channelKind, channelID string, limit int) *messageRecord {
	m := &messageRecord{
		id:        fmt.Sprintf("msg-%d", s.nextID),
		kind:      kind,
		channelID: channelID,
		reactions: make(map[string][]string),
	}
	s.nextID++
	s.records[m.id] = m
	s.order = append(s.order, m.id)

	if limit > 0 {
		for len(s.order) > limit {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.records, oldest)
		}
	}
	return m
}

func (s *messageStore) get(id string) (*messageRecord, bool) {
	m, ok := s.records[id]
	return m, ok
}

func (s *messageStore) size() int {
	return len(s.records)
}
