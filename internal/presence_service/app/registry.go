package app

import (
	"log/slog"
	"sync"

	"github.com/talkwave/messenger-services/internal/presence_service/domain"
)

// ConnectionRegistry is the process-local source of truth for which users are
// online and which connections represent them. State lives only for the process
// lifetime of this instance; horizontally scaled deployments would need a shared
// store to merge presence across instances.
type ConnectionRegistry struct {
	mu      sync.RWMutex
	entries map[string]map[string]domain.Connection // userID -> connID -> connection
	logger  *slog.Logger
}

func NewConnectionRegistry(logger *slog.Logger) *ConnectionRegistry {
	return &ConnectionRegistry{
		entries: make(map[string]map[string]domain.Connection),
		logger:  logger.With("component", "connection_registry"),
	}
}

// Register adds the connection to its user's set, creating the entry if absent.
// Returns true when this is the user's first live connection (offline -> online
// transition). Registering the same connection twice is a no-op.
func (r *ConnectionRegistry) Register(conn domain.Connection) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.entries[conn.UserID()]
	if !ok {
		set = make(map[string]domain.Connection)
		r.entries[conn.UserID()] = set
	}
	if _, exists := set[conn.ID()]; exists {
		return false
	}
	set[conn.ID()] = conn
	return len(set) == 1
}

// Unregister removes the connection from its user's set. When the set becomes
// empty the whole entry is removed: an entry with zero connections is never left
// as a placeholder. Returns true when this was the user's last connection
// (online -> offline transition).
func (r *ConnectionRegistry) Unregister(conn domain.Connection) (last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.entries[conn.UserID()]
	if !ok {
		return false
	}
	if _, exists := set[conn.ID()]; !exists {
		return false
	}
	delete(set, conn.ID())
	if len(set) == 0 {
		delete(r.entries, conn.UserID())
		return true
	}
	return false
}

// IsOnline reports whether the user has at least one live connection.
func (r *ConnectionRegistry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[userID]) > 0
}

// ConnectionCount returns the number of live connections for the user.
func (r *ConnectionRegistry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries[userID])
}

// OnlineUserIDs returns a snapshot of every currently-online user id.
func (r *ConnectionRegistry) OnlineUserIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for userID := range r.entries {
		ids = append(ids, userID)
	}
	return ids
}

// ConnectionsFor returns a snapshot of the user's live connections.
func (r *ConnectionRegistry) ConnectionsFor(userID string) []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]domain.Connection, 0, len(r.entries[userID]))
	for _, conn := range r.entries[userID] {
		conns = append(conns, conn)
	}
	return conns
}

// ConnectionsExcept returns a snapshot of every live connection not owned by
// excludeUserID. Used for presence broadcasts to "everyone else".
func (r *ConnectionRegistry) ConnectionsExcept(excludeUserID string) []domain.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []domain.Connection
	for userID, set := range r.entries {
		if userID == excludeUserID {
			continue
		}
		for _, conn := range set {
			conns = append(conns, conn)
		}
	}
	return conns
}
