// Package server defines the wire protocol exchanged with chat clients.
// Every frame in both directions is a JSON envelope {"event": ..., "data": ...}.
package server

import "encoding/json"

// Inbound event names (client to server).
const (
	EventRegister           = "register"
	EventPrivateMessage     = "privateMessage"
	EventCreateGroup        = "createGroup"
	EventJoinGroup          = "joinGroup"
	EventGroupMessage       = "groupMessage"
	EventAddReaction        = "addReaction"
	EventRemoveReaction     = "removeReaction"
	EventPrivateTypingStart = "privateTypingStart"
	EventPrivateTypingStop  = "privateTypingStop"
	EventGroupTypingStart   = "groupTypingStart"
	EventGroupTypingStop    = "groupTypingStop"
)

// Outbound event names (server to client). The request/reply events of the
// protocol (register, createGroup, joinGroup) are acknowledged through
// dedicated result events; everything else is fire-and-forget.
const (
	EventRegisterResult    = "registerResult"
	EventClientList        = "clientList"
	EventClientJoined      = "clientJoined"
	EventClientLeft        = "clientLeft"
	EventGroupList         = "groupList"
	EventCreateGroupResult = "createGroupResult"
	EventJoinGroupResult   = "joinGroupResult"
	EventGroupCreated      = "groupCreated"
	EventGroupUpdated      = "groupUpdated"
	EventGroupDeleted      = "groupDeleted"
	EventReactionUpdate    = "reactionUpdate"
	EventError             = "error"
)

// ClientEnvelope frames an inbound event. Data stays raw until the router
// knows which payload type the event name calls for.
type ClientEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ServerEnvelope frames an outbound event.
type ServerEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// encodeEvent marshals an outbound event into its wire form.
func encodeEvent(event string, data any) ([]byte, error) {
	return json.Marshal(ServerEnvelope{Event: event, Data: data})
}

// RegisterRequest asks to bind a display name and age to the connection.
type RegisterRequest struct {
	Name string `json:"name"`
	Age  int    `json:"age" validate:"min=1,max=150"`
}

// PrivateMessageRequest sends a direct message to another connection.
type PrivateMessageRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
	Message     string `json:"message"`
}

// CreateGroupRequest creates a group, optionally age-gated.
type CreateGroupRequest struct {
	GroupName  string `json:"groupName"`
	MinimumAge *int   `json:"minimumAge" validate:"omitempty,min=1,max=150"`
}

// JoinGroupRequest joins an existing group.
type JoinGroupRequest struct {
	GroupID string `json:"groupId" validate:"required"`
}

// GroupMessageRequest sends a message to a group the sender belongs to.
type GroupMessageRequest struct {
	GroupID string `json:"groupId" validate:"required"`
	Message string `json:"message"`
}

// ReactionRequest adds or removes an emoji reaction on a message. RoomID is
// supplied for private-room messages, GroupID for group messages.
type ReactionRequest struct {
	MessageID string `json:"messageId" validate:"required"`
	Emoji     string `json:"emoji" validate:"required"`
	RoomID    string `json:"roomId"`
	GroupID   string `json:"groupId"`
}

// PrivateTypingRequest signals typing activity in a private conversation.
type PrivateTypingRequest struct {
	RecipientID string `json:"recipientId"`
}

// GroupTypingRequest signals typing activity in a group.
type GroupTypingRequest struct {
	GroupID string `json:"groupId"`
}

// ClientInfo is the public identity of a registered connection.
type ClientInfo struct {
	Name     string `json:"name"`
	SocketID string `json:"socketId"`
	Age      int    `json:"age"`
}

// ClientRef identifies a message participant without exposing their age.
type ClientRef struct {
	Name     string `json:"name"`
	SocketID string `json:"socketId"`
}

// RegisterResult acknowledges a register request.
type RegisterResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// GroupResult acknowledges a createGroup or joinGroup request.
type GroupResult struct {
	Success bool           `json:"success"`
	GroupID string         `json:"groupId,omitempty"`
	Group   *GroupSnapshot `json:"group,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// GroupSnapshot is the authoritative view of a group broadcast to clients.
type GroupSnapshot struct {
	GroupID    string       `json:"groupId"`
	Name       string       `json:"name"`
	Creator    ClientInfo   `json:"creator"`
	MinimumAge *int         `json:"minimumAge,omitempty"`
	Members    []ClientInfo `json:"members"`
}

// GroupDeletedEvent announces that a group lost its last member.
type GroupDeletedEvent struct {
	GroupID string `json:"groupId"`
}

// PrivateMessageEvent delivers a direct message to both room participants.
type PrivateMessageEvent struct {
	RoomID    string              `json:"roomId"`
	MessageID string              `json:"messageId"`
	Sender    ClientRef           `json:"sender"`
	Recipient ClientRef           `json:"recipient"`
	Message   string              `json:"message"`
	Timestamp string              `json:"timestamp"`
	Reactions map[string][]string `json:"reactions"`
}

// GroupMessageEvent delivers a group message to its members.
type GroupMessageEvent struct {
	GroupID   string              `json:"groupId"`
	MessageID string              `json:"messageId"`
	Sender    ClientRef           `json:"sender"`
	Message   string              `json:"message"`
	Timestamp string              `json:"timestamp"`
	Reactions map[string][]string `json:"reactions"`
}

// ReactionUpdateEvent broadcasts the full reaction state of a message, not a
// delta, so all viewers converge regardless of arrival order.
type ReactionUpdateEvent struct {
	MessageID string              `json:"messageId"`
	Reactions map[string][]string `json:"reactions"`
}

// PrivateTypingEvent notifies the other participant of typing activity.
type PrivateTypingEvent struct {
	Sender ClientRef `json:"sender"`
}

// GroupTypingEvent notifies other group members of typing activity.
type GroupTypingEvent struct {
	GroupID string    `json:"groupId"`
	Sender  ClientRef `json:"sender"`
}

// ErrorEvent reports a failure of a fire-and-forget event to its sender.
type ErrorEvent struct {
	Message string `json:"message"`
}
