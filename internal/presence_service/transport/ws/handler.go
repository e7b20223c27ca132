package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/talkwave/messenger-services/internal/presence_service/app"
	"github.com/talkwave/messenger-services/internal/presence_service/domain"
	"github.com/talkwave/messenger-services/internal/presence_service/middleware"
)

// clientCommand is the wire format for client-to-server friend actions.
type clientCommand struct {
	Action       string          `json:"action"`
	TargetUserID string          `json:"targetUserId"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// Handler upgrades authenticated HTTP requests to WebSocket connections and
// drives each connection's lifecycle: register on connect, route inbound friend
// actions, unregister on disconnect.
type Handler struct {
	upgrader    websocket.Upgrader
	broadcaster *app.PresenceBroadcaster
	router      *app.FriendEventRouter
	logger      *slog.Logger
}

func NewHandler(broadcaster *app.PresenceBroadcaster, router *app.FriendEventRouter, logger *slog.Logger) *Handler {
	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin is enforced by the edge proxy in front of this service.
				return true
			},
		},
		broadcaster: broadcaster,
		router:      router,
		logger:      logger.With("component", "ws_handler"),
	}
}

// ServeHTTP handles the /connect endpoint.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to upgrade connection", "user_id", userID, "error", err)
		return
	}

	conn := newWSConnection(userID, wsConn)
	defer func() {
		if err := wsConn.Close(); err != nil {
			h.logger.Debug("Error closing websocket", "conn_id", conn.ID(), "error", err)
		}
	}()

	h.broadcaster.HandleConnect(conn)
	defer h.broadcaster.HandleDisconnect(conn)

	h.logger.InfoContext(r.Context(), "User connected via WebSocket", "user_id", userID, "conn_id", conn.ID())
	h.readLoop(conn, wsConn)
	h.logger.InfoContext(r.Context(), "User disconnected", "user_id", userID, "conn_id", conn.ID())
}

// readLoop processes inbound client commands until the connection drops. A
// rejected command is reported back to the emitting client, not swallowed.
func (h *Handler) readLoop(conn *wsConnection, wsConn *websocket.Conn) {
	for {
		_, raw, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Unexpected websocket close", "conn_id", conn.ID(), "error", err)
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			h.rejectCommand(conn, "malformed command: "+err.Error())
			continue
		}

		err = h.router.Route(domain.FriendAction(cmd.Action), conn.UserID(), cmd.TargetUserID, cmd.Payload)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownFriendAction) {
				h.rejectCommand(conn, err.Error())
				continue
			}
			h.logger.Warn("Friend action routing failed",
				"action", cmd.Action, "user_id", conn.UserID(), "error", err)
		}
	}
}

func (h *Handler) rejectCommand(conn *wsConnection, reason string) {
	if err := conn.Send(domain.EventFriendError, map[string]string{"error": reason}); err != nil {
		h.logger.Warn("Failed to send command rejection", "conn_id", conn.ID(), "error", err)
	}
}
