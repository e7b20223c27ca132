package domain

import (
	"errors"
	"time"
)

// Event names emitted over the socket transport.
const (
	EventUserOnline   = "presence:online"
	EventUserOffline  = "presence:offline"
	EventOnlineList   = "presence:list"
	EventFriendAction = "friends:action"
	EventFriendError  = "friends:error"
)

// Connection is one live transport connection owned by a single user. It is
// created by the transport layer on connect and owned by the registry until
// disconnect; no references are retained after that.
type Connection interface {
	ID() string
	UserID() string
	EstablishedAt() time.Time
	Send(event string, data any) error
}

// PresencePayload is the body of online/offline broadcasts.
type PresencePayload struct {
	UserID string `json:"userId"`
}

// OnlineListPayload is sent to a connecting client only, never broadcast.
type OnlineListPayload struct {
	UserIDs []string `json:"userIds"`
}

// FriendAction identifies a friend-relationship event routed to one target user.
type FriendAction string

const (
	ActionAddToFriends        FriendAction = "ADD_TO_FRIENDS"
	ActionAcceptFriendRequest FriendAction = "ACCEPT_FRIEND_REQUEST"
	ActionUnsubscribe         FriendAction = "UNSUBSCRIBE"
	ActionDeleteFromFriends   FriendAction = "DELETE_FROM_FRIENDS"
	ActionBlockFriend         FriendAction = "BLOCK_FRIEND"
)

// ErrUnknownFriendAction is returned for action values outside the known set.
// A malformed friend action must be rejected to the caller, never dropped,
// since silently losing it would desynchronize client state.
var ErrUnknownFriendAction = errors.New("unknown friend action")

var knownFriendActions = map[FriendAction]struct{}{
	ActionAddToFriends:        {},
	ActionAcceptFriendRequest: {},
	ActionUnsubscribe:         {},
	ActionDeleteFromFriends:   {},
	ActionBlockFriend:         {},
}

// Valid reports whether the action is part of the friend workflow's known set.
func (a FriendAction) Valid() bool {
	_, ok := knownFriendActions[a]
	return ok
}

// FriendEventPayload is the body delivered to every connection of the target user.
type FriendEventPayload struct {
	Action       FriendAction `json:"action"`
	SourceUserID string       `json:"sourceUserId"`
	Payload      any          `json:"payload,omitempty"`
}
