package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ntarasov/messenger/internal/domain"
)

// In-memory doubles for the repository interfaces, shared by the service
// tests in this package.

type fakeMsgRepo struct {
	mu       sync.Mutex
	users    map[string]*domain.User
	chats    map[string]*domain.Chat
	groups   map[string]*domain.GroupChat
	members  map[string]map[string]bool
	messages map[string]*domain.Message
}

func newFakeMsgRepo() *fakeMsgRepo {
	return &fakeMsgRepo{
		users:    make(map[string]*domain.User),
		chats:    make(map[string]*domain.Chat),
		groups:   make(map[string]*domain.GroupChat),
		members:  make(map[string]map[string]bool),
		messages: make(map[string]*domain.Message),
	}
}

func (f *fakeMsgRepo) addUser(id, name string) {
	f.users[id] = &domain.User{ID: id, UserName: name, StatusVisibility: "public"}
}

func (f *fakeMsgRepo) addChat(id, user1, user2 string) {
	f.chats[id] = &domain.Chat{ID: id, User1ID: user1, User2ID: user2}
}

func (f *fakeMsgRepo) addGroup(id, adminID string, memberIDs ...string) {
	f.groups[id] = &domain.GroupChat{ID: id, Title: id, AdminID: adminID}
	f.members[id] = map[string]bool{adminID: true}
	for _, m := range memberIDs {
		f.members[id][m] = true
	}
}

func (f *fakeMsgRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound.WithMessage("User not found")
}

func (f *fakeMsgRepo) GetChat(_ context.Context, chatID string) (*domain.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.chats[chatID]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound.WithMessage("Chat not found")
}

func (f *fakeMsgRepo) GetGroupChat(_ context.Context, groupChatID string) (*domain.GroupChat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g, ok := f.groups[groupChatID]; ok {
		return g, nil
	}
	return nil, domain.ErrNotFound.WithMessage("Group chat not found")
}

func (f *fakeMsgRepo) IsGroupParticipant(_ context.Context, groupChatID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[groupChatID][userID], nil
}

func (f *fakeMsgRepo) InsertMessage(_ context.Context, msg *domain.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *msg
	f.messages[msg.ID] = &stored
	return nil
}

func (f *fakeMsgRepo) GetMessage(_ context.Context, messageID string) (*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[messageID]; ok {
		copy := *m
		return &copy, nil
	}
	return nil, domain.ErrNotFound.WithMessage("Message not found")
}

func (f *fakeMsgRepo) UpdateMessageContent(_ context.Context, messageID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok {
		return domain.ErrNotFound.WithMessage("Message not found")
	}
	m.Content = content
	return nil
}

func (f *fakeMsgRepo) DeleteMessage(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.messages[messageID]; !ok {
		return domain.ErrNotFound.WithMessage("Message not found or already deleted")
	}
	delete(f.messages, messageID)
	return nil
}

func (f *fakeMsgRepo) ListRecentMessages(_ context.Context, conversationID string, _ domain.ConversationKind, limit int) ([]MessageDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []MessageDTO
	for _, m := range f.messages {
		if m.ConversationID() != conversationID {
			continue
		}
		sender := f.users[m.SenderID]
		out = append(out, MessageDTO{
			MessageID:         m.ID,
			Sender:            userDTO(sender),
			ChatOrGroupChatID: conversationID,
			Content:           m.Content,
			Timestamp:         m.CreatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePresenceRepo struct {
	mu     sync.Mutex
	active map[string]time.Time
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{active: make(map[string]time.Time)}
}

func (f *fakePresenceRepo) UpdateLastActive(_ context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active[userID] = at
	return nil
}

func (f *fakePresenceRepo) GetLastActive(_ context.Context, userID string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.active[userID]
	return at, ok, nil
}

func (f *fakePresenceRepo) DeleteLastActive(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, userID)
	return nil
}

func (f *fakePresenceRepo) OnlineUserIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var users []string
	for id := range f.active {
		users = append(users, id)
	}
	return users, nil
}

type broadcastRecord struct {
	RoomID string
	Event  string
	Data   any
}

type recordingBroadcaster struct {
	mu      sync.Mutex
	records []broadcastRecord
}

func (rb *recordingBroadcaster) Broadcast(roomID, event string, data any) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.records = append(rb.records, broadcastRecord{RoomID: roomID, Event: event, Data: data})
}

func (rb *recordingBroadcaster) all() []broadcastRecord {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return append([]broadcastRecord(nil), rb.records...)
}

func (rb *recordingBroadcaster) forRoom(roomID string) []broadcastRecord {
	var out []broadcastRecord
	for _, r := range rb.all() {
		if r.RoomID == roomID {
			out = append(out, r)
		}
	}
	return out
}

// drainEvents decodes every frame currently buffered on the client.
func drainEvents(t *testing.T, c *Client) []ServerEnvelope {
	t.Helper()

	var events []ServerEnvelope
	for {
		select {
		case payload := <-c.send:
			var raw struct {
				Event string          `json:"event"`
				Data  json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(payload, &raw); err != nil {
				t.Fatalf("bad frame %q: %v", payload, err)
			}
			events = append(events, ServerEnvelope{Event: raw.Event, Data: raw.Data})
		default:
			return events
		}
	}
}
