package service

import (
	"sync"
	"time"

	"github.com/ntarasov/messenger/internal/domain"
)

// typingTTL is the quiet period after which a typing=true flag clears
// itself. Guards against stuck indicators when a stop notification is
// lost in transit.
const typingTTL = 3 * time.Second

type typingKey struct {
	chatID string
	userID string
}

// TypingCoordinator keeps short-lived per-(chat,user) typing flags.
// Every status change goes to the chat room and to the overview room so
// chat-list views can show "X is typing" previews.
type TypingCoordinator struct {
	mu     sync.Mutex
	timers map[typingKey]*time.Timer

	ttl         time.Duration
	broadcaster Broadcaster
}

func NewTypingCoordinator(broadcaster Broadcaster) *TypingCoordinator {
	return &TypingCoordinator{
		timers:      make(map[typingKey]*time.Timer),
		ttl:         typingTTL,
		broadcaster: broadcaster,
	}
}

// SetTyping upserts or clears the typing flag and broadcasts it.
// A renewed typing=true notification restarts the expiry timer; an
// explicit typing=false always beats a pending timeout.
func (tc *TypingCoordinator) SetTyping(status domain.TypingStatus) {
	key := typingKey{chatID: status.ChatID, userID: status.UserID}

	tc.mu.Lock()
	if t, ok := tc.timers[key]; ok {
		t.Stop()
		delete(tc.timers, key)
	}
	if status.IsTyping {
		expired := status
		expired.IsTyping = false

		var t *time.Timer
		t = time.AfterFunc(tc.ttl, func() {
			tc.expire(key, t, expired)
		})
		tc.timers[key] = t
	}
	tc.mu.Unlock()

	tc.publish(status)
}

func (tc *TypingCoordinator) expire(key typingKey, t *time.Timer, cleared domain.TypingStatus) {
	tc.mu.Lock()
	if tc.timers[key] != t {
		// An explicit update won the race against the timeout.
		tc.mu.Unlock()
		return
	}
	delete(tc.timers, key)
	tc.mu.Unlock()

	tc.publish(cleared)
}

func (tc *TypingCoordinator) publish(status domain.TypingStatus) {
	dto := TypingStatusDTO{
		ChatID:      status.ChatID,
		UserID:      status.UserID,
		UserName:    status.UserName,
		IsTyping:    status.IsTyping,
		IsGroupChat: status.IsGroupChat,
	}
	tc.broadcaster.Broadcast(status.ChatID, EventReceiveTypingStatus, dto)
	tc.broadcaster.Broadcast(OverviewRoom, EventReceiveTypingStatus, dto)
}
