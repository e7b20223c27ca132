package app

import (
	"log/slog"

	"github.com/talkwave/messenger-services/internal/presence_service/domain"
)

// PresenceBroadcaster decides what to announce, and to whom, on every connection
// lifecycle event. Only the 0->1 and 1->0 connection-count transitions are
// broadcast; reconnecting a second device is announced to nobody.
type PresenceBroadcaster struct {
	registry *ConnectionRegistry
	logger   *slog.Logger
}

func NewPresenceBroadcaster(registry *ConnectionRegistry, logger *slog.Logger) *PresenceBroadcaster {
	return &PresenceBroadcaster{
		registry: registry,
		logger:   logger.With("component", "presence_broadcaster"),
	}
}

// HandleConnect registers the connection, announces "user online" to every other
// online user when this is the user's first connection, and sends the current
// online-user list to the connecting client only.
func (b *PresenceBroadcaster) HandleConnect(conn domain.Connection) {
	first := b.registry.Register(conn)

	if first {
		b.broadcastToOthers(conn.UserID(), domain.EventUserOnline, domain.PresencePayload{UserID: conn.UserID()})
		presenceBroadcastsCounter.WithLabelValues("online").Inc()
	}
	presenceConnectsCounter.Inc()

	list := domain.OnlineListPayload{UserIDs: b.registry.OnlineUserIDs()}
	if err := conn.Send(domain.EventOnlineList, list); err != nil {
		b.logger.Warn("Failed to send online list to connecting client",
			"user_id", conn.UserID(), "conn_id", conn.ID(), "error", err)
	}

	b.logger.Info("User connection registered",
		"user_id", conn.UserID(), "conn_id", conn.ID(),
		"connection_count", b.registry.ConnectionCount(conn.UserID()), "first", first)
}

// HandleDisconnect unregisters the connection and announces "user offline" to
// every other online user when this was the user's last connection.
func (b *PresenceBroadcaster) HandleDisconnect(conn domain.Connection) {
	last := b.registry.Unregister(conn)

	if last {
		b.broadcastToOthers(conn.UserID(), domain.EventUserOffline, domain.PresencePayload{UserID: conn.UserID()})
		presenceBroadcastsCounter.WithLabelValues("offline").Inc()
	}
	presenceDisconnectsCounter.Inc()

	b.logger.Info("User connection unregistered",
		"user_id", conn.UserID(), "conn_id", conn.ID(),
		"connection_count", b.registry.ConnectionCount(conn.UserID()), "last", last)
}

// broadcastToOthers emits the event to every connection of every other online
// user. With no recipients (the subject is the only online user) this is a
// silent no-op. Individual send failures are logged and do not stop the fanout.
func (b *PresenceBroadcaster) broadcastToOthers(userID string, event string, data any) {
	for _, conn := range b.registry.ConnectionsExcept(userID) {
		if err := conn.Send(event, data); err != nil {
			b.logger.Warn("Failed to deliver presence broadcast",
				"event", event, "target_user_id", conn.UserID(), "conn_id", conn.ID(), "error", err)
		}
	}
}
