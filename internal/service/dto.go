package service

import (
	"encoding/json"
	"time"

	"github.com/ntarasov/messenger/internal/domain"
)

// Inbound verbs
const (
	VerbJoin                = "join"
	VerbLeave               = "leave"
	VerbSendPersonalMessage = "send_personal_message"
	VerbSendGroupMessage    = "send_group_message"
	VerbEditMessage         = "edit_message"
	VerbDeleteMessage       = "delete_message"
	VerbNotifyTyping        = "notify_typing"
	VerbPingOnlineStatus    = "ping_online_status"
	VerbUpdateUserActivity  = "update_user_activity"
)

// Outbound events
const (
	EventReceiveMessage             = "ReceiveMessage"
	EventReceiveGroupMessage        = "ReceiveGroupMessage"
	EventReceiveEditedMessage       = "ReceiveEditedMessage"
	EventReceiveGroupEditedMessage  = "ReceiveGroupEditedMessage"
	EventReceiveDeletedMessage      = "ReceiveDeletedMessage"
	EventReceiveGroupDeletedMessage = "ReceiveGroupDeletedMessage"
	EventReceiveTypingStatus        = "ReceiveTypingStatus"
	EventReceiveOnlineStatus        = "ReceiveOnlineStatus"
	EventReceiveMessagePreview      = "ReceiveMessagePreview"
	EventOperationError             = "OperationError"
)

// ClientEnvelope wraps every inbound frame.
type ClientEnvelope struct {
	Verb string          `json:"verb"`
	Data json.RawMessage `json:"data"`
}

// ServerEnvelope wraps every outbound frame.
type ServerEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Requests from clients
type JoinRequest struct {
	RoomID      string `json:"roomId"`
	IsGroupChat bool   `json:"isGroupChat"`
	UserID      string `json:"userId"`
}

type LeaveRequest struct {
	RoomID string `json:"roomId"`
}

type SendMessageRequest struct {
	ChatID  string `json:"chatId"`
	Content string `json:"content"`
	UserID  string `json:"userId"`
}

type EditMessageRequest struct {
	MessageID   string `json:"messageId"`
	Content     string `json:"content"`
	UserID      string `json:"userId"`
	IsGroupChat bool   `json:"isGroupChat"`
}

type DeleteMessageRequest struct {
	MessageID   string `json:"messageId"`
	UserID      string `json:"userId"`
	IsGroupChat bool   `json:"isGroupChat"`
}

type NotifyTypingRequest struct {
	ChatID      string `json:"chatId"`
	UserID      string `json:"userId"`
	IsTyping    bool   `json:"isTyping"`
	IsGroupChat bool   `json:"isGroupChat"`
}

type ActivityRequest struct {
	UserID string `json:"userId"`
}

// Events for clients
type UserDTO struct {
	ID               string `json:"id"`
	UserName         string `json:"userName"`
	Avatar           string `json:"avatar,omitempty"`
	StatusVisibility string `json:"statusVisibility"`
}

type MessageDTO struct {
	MessageID         string    `json:"messageId"`
	Sender            UserDTO   `json:"sender"`
	ChatOrGroupChatID string    `json:"chatOrGroupChatId"`
	Content           string    `json:"content"`
	Timestamp         time.Time `json:"timestamp"`
}

type OnlineStatusDTO struct {
	UserID     string    `json:"userId"`
	IsOnline   bool      `json:"isOnline"`
	LastActive time.Time `json:"lastActive"`
}

type TypingStatusDTO struct {
	ChatID      string `json:"chatId"`
	UserID      string `json:"userId"`
	UserName    string `json:"userName"`
	IsTyping    bool   `json:"isTyping"`
	IsGroupChat bool   `json:"isGroupChat"`
}

// MessagePreviewDTO carries only enough of a new message for chat-list
// previews on the overview room, never the full content.
type MessagePreviewDTO struct {
	ChatOrGroupChatID string    `json:"chatOrGroupChatId"`
	SenderID          string    `json:"senderId"`
	SenderName        string    `json:"senderName"`
	Snippet           string    `json:"snippet"`
	Timestamp         time.Time `json:"timestamp"`
	IsGroupChat       bool      `json:"isGroupChat"`
}

type OperationErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DTOs for the group management surface
type GroupChatDTO struct {
	ID           string               `json:"groupChatId"`
	Title        string               `json:"title"`
	Admin        UserDTO              `json:"admin"`
	Participants []domain.Participant `json:"participants"`
}

type SendMessageInput struct {
	ConversationID string
	Content        string
	SenderID       string
	Kind           domain.ConversationKind
}

func userDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:               u.ID,
		UserName:         u.UserName,
		Avatar:           u.Avatar,
		StatusVisibility: u.StatusVisibility,
	}
}
