package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

// envelope is the wire format for every server-to-client event.
type envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// wsConnection adapts a gorilla WebSocket connection to domain.Connection.
// Gorilla connections do not support concurrent writers, so writes are
// serialized with a mutex: presence broadcasts and friend events may target the
// same connection from different handler goroutines.
type wsConnection struct {
	id            string
	userID        string
	establishedAt time.Time

	writeMu sync.Mutex
	conn    *websocket.Conn
}

func newWSConnection(userID string, conn *websocket.Conn) *wsConnection {
	return &wsConnection{
		id:            uuid.NewString(),
		userID:        userID,
		establishedAt: time.Now(),
		conn:          conn,
	}
}

func (c *wsConnection) ID() string               { return c.id }
func (c *wsConnection) UserID() string           { return c.userID }
func (c *wsConnection) EstablishedAt() time.Time { return c.establishedAt }

func (c *wsConnection) Send(event string, data any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(envelope{Event: event, Data: data})
}
