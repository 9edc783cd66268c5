package service

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// OverviewRoom is the global room every client ends up in. Chat-list pages
// subscribe here for previews, presence and typing summaries without
// joining every individual conversation.
const OverviewRoom = "chats_overview"

// Registry maps live connections to rooms. Rooms are pure in-memory
// routing state, recomputed on every connect. All operations on unknown
// connections or rooms are no-ops: transport disconnects race with
// explicit leaves.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	byConn map[*Client]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]map[*Client]struct{}),
		byConn: make(map[*Client]map[string]struct{}),
	}
}

// Join subscribes the connection to a room. Joining any chat room also
// joins the overview room. Idempotent.
func (r *Registry) Join(c *Client, roomID string) {
	if c == nil || roomID == "" {
		return
	}

	r.mu.Lock()
	r.add(c, roomID)
	if roomID != OverviewRoom {
		r.add(c, OverviewRoom)
	}
	r.mu.Unlock()
}

func (r *Registry) add(c *Client, roomID string) {
	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[*Client]struct{})
		r.rooms[roomID] = room
	}
	room[c] = struct{}{}

	joined, ok := r.byConn[c]
	if !ok {
		joined = make(map[string]struct{})
		r.byConn[c] = joined
	}
	joined[roomID] = struct{}{}
}

// Leave unsubscribes the connection from one room. Idempotent.
func (r *Registry) Leave(c *Client, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if room, ok := r.rooms[roomID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if joined, ok := r.byConn[c]; ok {
		delete(joined, roomID)
	}
}

// Drop removes the connection from every room it belonged to and returns
// the rooms it left.
func (r *Registry) Drop(c *Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	joined, ok := r.byConn[c]
	if !ok {
		return nil
	}
	delete(r.byConn, c)

	left := make([]string, 0, len(joined))
	for roomID := range joined {
		left = append(left, roomID)
		if room, ok := r.rooms[roomID]; ok {
			delete(room, c)
			if len(room) == 0 {
				delete(r.rooms, roomID)
			}
		}
	}
	return left
}

// Subscribers returns a snapshot of the room's connections.
func (r *Registry) Subscribers(roomID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[roomID]
	subs := make([]*Client, 0, len(room))
	for c := range room {
		subs = append(subs, c)
	}
	return subs
}

// Broadcast marshals the event once and enqueues it to every subscriber
// of the room. Slow consumers are skipped, not waited for.
func (r *Registry) Broadcast(roomID, event string, data any) {
	payload, err := json.Marshal(ServerEnvelope{Event: event, Data: data})
	if err != nil {
		slog.Error("Failed to marshal broadcast", "room_id", roomID, "event", event, "error", err)
		return
	}

	for _, c := range r.Subscribers(roomID) {
		c.enqueue(payload)
	}
}
