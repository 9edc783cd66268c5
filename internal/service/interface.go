package service

import (
	"context"
	"time"

	"github.com/ntarasov/messenger/internal/domain"
)

type MessageRepoIn interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetChat(ctx context.Context, chatID string) (*domain.Chat, error)
	GetGroupChat(ctx context.Context, groupChatID string) (*domain.GroupChat, error)
	IsGroupParticipant(ctx context.Context, groupChatID, userID string) (bool, error)

	InsertMessage(ctx context.Context, msg *domain.Message) error
	GetMessage(ctx context.Context, messageID string) (*domain.Message, error)
	UpdateMessageContent(ctx context.Context, messageID, content string) error
	DeleteMessage(ctx context.Context, messageID string) error
	ListRecentMessages(ctx context.Context, conversationID string, kind domain.ConversationKind, limit int) ([]MessageDTO, error)
}

type GroupRepoIn interface {
	CreateGroupChat(ctx context.Context, group *domain.GroupChat, participants []domain.Participant) error
	DeleteGroupChat(ctx context.Context, groupChatID string) error
	GetGroupChat(ctx context.Context, groupChatID string) (*domain.GroupChat, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	ListParticipants(ctx context.Context, groupChatID string) ([]domain.Participant, error)
	GetParticipant(ctx context.Context, groupChatID, userID string) (*domain.Participant, error)
	AddParticipant(ctx context.Context, p *domain.Participant) error
	RemoveParticipant(ctx context.Context, groupChatID, userID string) error
	ChangeParticipantRole(ctx context.Context, groupChatID, userID string, role domain.GroupRole) error
	PromoteToAdmin(ctx context.Context, groupChatID, newAdminID string) error
	SyncParticipantProfile(ctx context.Context, user *domain.User) error
}

type PresenceRepoIn interface {
	UpdateLastActive(ctx context.Context, userID string, at time.Time) error
	GetLastActive(ctx context.Context, userID string) (time.Time, bool, error)
	DeleteLastActive(ctx context.Context, userID string) error
	OnlineUserIDs(ctx context.Context) ([]string, error)
}

// Broadcaster fans one event out to every subscriber of a room.
type Broadcaster interface {
	Broadcast(roomID, event string, data any)
}

type MessageServiceIn interface {
	Send(ctx context.Context, in SendMessageInput) (*MessageDTO, error)
	Edit(ctx context.Context, messageID, newContent, editorID string) (*MessageDTO, error)
	Delete(ctx context.Context, messageID, requesterID string) (string, error)
	ListRecent(ctx context.Context, conversationID string, kind domain.ConversationKind) ([]MessageDTO, error)
	Preview(dto *MessageDTO, isGroup bool) MessagePreviewDTO
}

type PresenceTrackerIn interface {
	Connect(ctx context.Context, userID string)
	Disconnect(ctx context.Context, userID string)
	Heartbeat(ctx context.Context, userID string)
	IsOnline(userID string) bool
}

type TypingCoordinatorIn interface {
	SetTyping(status domain.TypingStatus)
}
