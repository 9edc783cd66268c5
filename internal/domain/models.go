package domain

import "time"

type User struct {
	ID               string    `json:"id" db:"id"`
	UserName         string    `json:"userName" db:"username"`
	Avatar           string    `json:"avatar,omitempty" db:"avatar"`
	StatusVisibility string    `json:"statusVisibility" db:"status_visibility"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
}

// Message belongs to exactly one of ChatID / GroupChatID.
type Message struct {
	ID          string    `json:"messageId" db:"id"`
	SenderID    string    `json:"-" db:"sender_id"`
	ChatID      *string   `json:"chatId,omitempty" db:"chat_id"`
	GroupChatID *string   `json:"groupChatId,omitempty" db:"group_chat_id"`
	Content     string    `json:"content" db:"content"`
	CreatedAt   time.Time `json:"timestamp" db:"created_at"`
}

// ConversationID returns whichever owning id is set.
func (m *Message) ConversationID() string {
	if m.ChatID != nil {
		return *m.ChatID
	}
	if m.GroupChatID != nil {
		return *m.GroupChatID
	}
	return ""
}

// Chat is a direct conversation between two users. Membership is immutable.
type Chat struct {
	ID        string    `json:"chatId" db:"id"`
	User1ID   string    `json:"user1Id" db:"user1_id"`
	User2ID   string    `json:"user2Id" db:"user2_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

func (c *Chat) HasMember(userID string) bool {
	return c.User1ID == userID || c.User2ID == userID
}

type GroupChat struct {
	ID        string    `json:"groupChatId" db:"id"`
	Title     string    `json:"title" db:"title"`
	AdminID   string    `json:"adminId" db:"admin_id"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Participant is a denormalized membership snapshot taken when the user is
// added to a group chat. Profile changes are pushed through the sync hook
// rather than read live from users.
type Participant struct {
	GroupChatID      string    `json:"-" db:"group_chat_id"`
	UserID           string    `json:"id" db:"user_id"`
	UserName         string    `json:"username" db:"username"`
	Avatar           string    `json:"avatar,omitempty" db:"avatar"`
	Role             GroupRole `json:"role" db:"role"`
	StatusVisibility string    `json:"statusVisibility" db:"status_visibility"`
	AddedAt          time.Time `json:"addedAt" db:"added_at"`
}

type (
	GroupRole string

	ConversationKind string
)

const (
	AdminRole    GroupRole = "Admin"
	PromoterRole GroupRole = "Promoter"
	MemberRole   GroupRole = "Member"

	DirectConversation ConversationKind = "direct"
	GroupConversation  ConversationKind = "group"
)

func (r GroupRole) Valid() bool {
	return r == AdminRole || r == PromoterRole || r == MemberRole
}

// PresenceRecord is the per-user online state. One logical record per user
// regardless of how many live connections the user holds.
type PresenceRecord struct {
	UserID       string    `json:"userId"`
	IsOnline     bool      `json:"isOnline"`
	LastActiveAt time.Time `json:"lastActive"`
}

type TypingStatus struct {
	ChatID      string `json:"chatId"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	IsTyping    bool   `json:"isTyping"`
	IsGroupChat bool   `json:"isGroupChat"`
}
