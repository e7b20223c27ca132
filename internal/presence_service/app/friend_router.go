package app

import (
	"fmt"
	"log/slog"

	"github.com/talkwave/messenger-services/internal/presence_service/domain"
)

// FriendEventRouter maps a friend-relationship action to a targeted emission at
// exactly one other user's connections. Every open device of the target sees the
// event; an offline target means the event is dropped at this layer (persistence
// and history are the main backend's responsibility).
type FriendEventRouter struct {
	registry *ConnectionRegistry
	logger   *slog.Logger
}

func NewFriendEventRouter(registry *ConnectionRegistry, logger *slog.Logger) *FriendEventRouter {
	return &FriendEventRouter{
		registry: registry,
		logger:   logger.With("component", "friend_event_router"),
	}
}

// Route validates the action and emits it to all of the target user's
// connections. Unknown actions return domain.ErrUnknownFriendAction and perform
// no emission.
func (r *FriendEventRouter) Route(action domain.FriendAction, sourceUserID, targetUserID string, payload any) error {
	if !action.Valid() {
		friendActionsCounter.WithLabelValues("rejected").Inc()
		return fmt.Errorf("%w: %q", domain.ErrUnknownFriendAction, string(action))
	}

	conns := r.registry.ConnectionsFor(targetUserID)
	if len(conns) == 0 {
		r.logger.Debug("Friend event target offline, dropping",
			"action", string(action), "source_user_id", sourceUserID, "target_user_id", targetUserID)
		friendActionsCounter.WithLabelValues("target_offline").Inc()
		return nil
	}

	event := domain.FriendEventPayload{
		Action:       action,
		SourceUserID: sourceUserID,
		Payload:      payload,
	}
	for _, conn := range conns {
		if err := conn.Send(domain.EventFriendAction, event); err != nil {
			r.logger.Warn("Failed to deliver friend event",
				"action", string(action), "target_user_id", targetUserID, "conn_id", conn.ID(), "error", err)
		}
	}
	friendActionsCounter.WithLabelValues("delivered").Inc()
	return nil
}
