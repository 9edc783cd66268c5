package service

import (
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one live real-time connection. The user id is fixed at
// handshake time by the transport layer; a user may hold several clients
// at once (one per device or tab).
type Client struct {
	id     string
	userID string
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
}

func NewClient(userID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 64),
		hub:    hub,
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) UserID() string { return c.userID }

// enqueue hands a frame to the write pump without blocking. A full buffer
// means the consumer is not keeping up; the frame is dropped and the
// consumer reconciles from persisted state on its next fetch.
func (c *Client) enqueue(payload []byte) {
	select {
	case c.send <- payload:
	default:
		slog.Warn("Dropping frame for slow client", "connection_id", c.id, "user_id", c.userID)
	}
}

// sendEvent delivers a caller-scoped event to this connection only.
func (c *Client) sendEvent(event string, data any) {
	payload, err := json.Marshal(ServerEnvelope{Event: event, Data: data})
	if err != nil {
		slog.Error("Failed to marshal caller event", "connection_id", c.id, "event", event, "error", err)
		return
	}
	c.enqueue(payload)
}
