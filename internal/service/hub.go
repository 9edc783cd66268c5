package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Hub is the real-time session entry point. It owns the client set,
// routes inbound verbs to the registry, presence tracker, typing
// coordinator and message service, and pushes the resulting events back
// out through the registry's rooms.
type Hub struct {
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client

	registry *Registry
	presence PresenceTrackerIn
	typing   TypingCoordinatorIn
	messages MessageServiceIn
	msgRepo  MessageRepoIn
}

func NewHub(registry *Registry, presence PresenceTrackerIn, typing TypingCoordinatorIn, messages MessageServiceIn, msgRepo MessageRepoIn) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		registry:   registry,
		presence:   presence,
		typing:     typing,
		messages:   messages,
		msgRepo:    msgRepo,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client.id] = client
			slog.Info("User connected", "connection_id", client.id, "user_id", client.userID)

		case client := <-h.unregister:
			delete(h.clients, client.id)
			slog.Info("User disconnected", "connection_id", client.id, "user_id", client.userID)
		}
	}
}

// HandleConn serves one identified connection until it closes. The
// connection lands in the overview room immediately and the user's
// presence goes online; both are undone on the way out.
func (h *Hub) HandleConn(ctx context.Context, client *Client) {
	h.register <- client

	h.registry.Join(client, OverviewRoom)
	h.presence.Connect(ctx, client.userID)

	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		h.presence.Heartbeat(ctx, client.userID)
		return nil
	})

	defer func() {
		h.registry.Drop(client)
		h.presence.Disconnect(ctx, client.userID)
		h.unregister <- client
		client.conn.Close()
	}()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return h.read(ctx, client)
	})

	g.Go(func() error {
		return h.write(ctx, client)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		slog.Error("Connection terminated", "connection_id", client.id, "error", err)
	}
}

func (h *Hub) read(ctx context.Context, client *Client) error {
	client.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			var envelope ClientEnvelope
			if err := client.conn.ReadJSON(&envelope); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseAbnormalClosure,
					websocket.CloseNoStatusReceived) {
					slog.Error("Websocket close error", "connection_id", client.id, "error", err)
				}
				return context.Canceled
			}

			h.dispatch(ctx, client, &envelope)
		}
	}
}

func (h *Hub) write(ctx context.Context, client *Client) error {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}

		case payload, ok := <-client.send:
			if !ok {
				return nil
			}
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.Error("Failed to write frame", "connection_id", client.id, "error", err)
				return err
			}
		}
	}
}
