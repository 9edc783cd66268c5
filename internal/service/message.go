package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ntarasov/messenger/internal/domain"
)

const (
	recentMessagesLimit = 50
	previewSnippetRunes = 80
)

// MessageService validates and persists message mutations and builds the
// event payloads the hub broadcasts afterwards. One implementation covers
// direct and group conversations, selected by the kind tag on the request.
type MessageService struct {
	msgRepo MessageRepoIn
	now     func() time.Time
}

func NewMessageService(msgRepo MessageRepoIn) *MessageService {
	return &MessageService{
		msgRepo: msgRepo,
		now:     time.Now,
	}
}

// Send persists a new message with a server-assigned id and UTC timestamp.
// For group conversations the sender must be a participant, not merely
// able to reach the conversation id.
func (ms *MessageService) Send(ctx context.Context, in SendMessageInput) (*MessageDTO, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("Message content is required")
	}
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("Invalid request parameters")
	}

	sender, err := ms.msgRepo.GetUser(ctx, in.SenderID)
	if err != nil {
		return nil, err
	}

	msg := &domain.Message{
		ID:        uuid.NewString(),
		SenderID:  sender.ID,
		Content:   in.Content,
		CreatedAt: ms.now().UTC(),
	}

	switch in.Kind {
	case domain.GroupConversation:
		if _, err := ms.msgRepo.GetGroupChat(ctx, in.ConversationID); err != nil {
			return nil, err
		}
		member, err := ms.msgRepo.IsGroupParticipant(ctx, in.ConversationID, sender.ID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, domain.ErrForbidden.WithMessage("You are not a member of this group")
		}
		groupID := in.ConversationID
		msg.GroupChatID = &groupID

	default:
		if _, err := ms.msgRepo.GetChat(ctx, in.ConversationID); err != nil {
			return nil, err
		}
		chatID := in.ConversationID
		msg.ChatID = &chatID
	}

	if err := ms.msgRepo.InsertMessage(ctx, msg); err != nil {
		slog.Error("Failed to insert message", "sender_id", sender.ID, "error", err)
		return nil, err
	}

	return ms.messageDTO(msg, sender), nil
}

// Edit rewrites the content of the editor's own message. The creation
// timestamp never changes.
func (ms *MessageService) Edit(ctx context.Context, messageID, newContent, editorID string) (*MessageDTO, error) {
	if strings.TrimSpace(newContent) == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("Message content is required")
	}
	if messageID == "" || editorID == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("Invalid request parameters")
	}

	msg, err := ms.msgRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != editorID {
		return nil, domain.ErrForbidden.WithMessage("You can only edit your own messages")
	}

	if err := ms.msgRepo.UpdateMessageContent(ctx, messageID, newContent); err != nil {
		return nil, err
	}
	msg.Content = newContent

	sender, err := ms.msgRepo.GetUser(ctx, msg.SenderID)
	if err != nil {
		return nil, err
	}
	return ms.messageDTO(msg, sender), nil
}

// Delete removes the requester's own message and returns the owning
// conversation id so the hub knows which room to notify.
func (ms *MessageService) Delete(ctx context.Context, messageID, requesterID string) (string, error) {
	if messageID == "" || requesterID == "" {
		return "", domain.ErrInvalidRequest.WithMessage("Invalid request parameters")
	}

	msg, err := ms.msgRepo.GetMessage(ctx, messageID)
	if err != nil {
		return "", err
	}
	if msg.SenderID != requesterID {
		return "", domain.ErrForbidden.WithMessage("You can only delete your own messages")
	}

	if err := ms.msgRepo.DeleteMessage(ctx, messageID); err != nil {
		return "", err
	}
	return msg.ConversationID(), nil
}

// ListRecent returns the newest messages of a conversation, newest first.
func (ms *MessageService) ListRecent(ctx context.Context, conversationID string, kind domain.ConversationKind) ([]MessageDTO, error) {
	if conversationID == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("Invalid request parameters")
	}
	return ms.msgRepo.ListRecentMessages(ctx, conversationID, kind, recentMessagesLimit)
}

// Preview reduces a full message to the summary the overview room gets:
// sender, a bounded snippet, timestamp. Full content stays inside the
// conversation room.
func (ms *MessageService) Preview(dto *MessageDTO, isGroup bool) MessagePreviewDTO {
	return MessagePreviewDTO{
		ChatOrGroupChatID: dto.ChatOrGroupChatID,
		SenderID:          dto.Sender.ID,
		SenderName:        dto.Sender.UserName,
		Snippet:           snippet(dto.Content, previewSnippetRunes),
		Timestamp:         dto.Timestamp,
		IsGroupChat:       isGroup,
	}
}

func (ms *MessageService) messageDTO(msg *domain.Message, sender *domain.User) *MessageDTO {
	return &MessageDTO{
		MessageID:         msg.ID,
		Sender:            userDTO(sender),
		ChatOrGroupChatID: msg.ConversationID(),
		Content:           msg.Content,
		Timestamp:         msg.CreatedAt,
	}
}

func snippet(content string, max int) string {
	if utf8.RuneCountInString(content) <= max {
		return content
	}
	runes := []rune(content)
	return string(runes[:max]) + "…"
}
