package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/ntarasov/messenger/internal/domain"
)

// dispatch routes one inbound frame to its verb handler. Domain errors
// become caller-only OperationError events; nothing a failing verb does
// is ever visible to other room subscribers.
func (h *Hub) dispatch(ctx context.Context, client *Client, envelope *ClientEnvelope) {
	var err error

	switch envelope.Verb {
	case VerbJoin:
		err = h.handleJoin(ctx, client, envelope.Data)
	case VerbLeave:
		err = h.handleLeave(client, envelope.Data)
	case VerbSendPersonalMessage:
		err = h.handleSend(ctx, client, envelope.Data, domain.DirectConversation)
	case VerbSendGroupMessage:
		err = h.handleSend(ctx, client, envelope.Data, domain.GroupConversation)
	case VerbEditMessage:
		err = h.handleEdit(ctx, client, envelope.Data)
	case VerbDeleteMessage:
		err = h.handleDelete(ctx, client, envelope.Data)
	case VerbNotifyTyping:
		err = h.handleTyping(ctx, client, envelope.Data)
	case VerbPingOnlineStatus, VerbUpdateUserActivity:
		err = h.handleHeartbeat(ctx, client, envelope.Data)
	default:
		slog.Warn("Unknown verb", "connection_id", client.id, "verb", envelope.Verb)
		err = domain.ErrInvalidRequest.WithMessage("Unknown verb")
	}

	if err != nil {
		h.sendError(client, err)
	}
}

func (h *Hub) sendError(client *Client, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		slog.Error("Unhandled verb error", "connection_id", client.id, "error", err)
		appErr = domain.ErrInternalServerError
	}

	client.sendEvent(EventOperationError, OperationErrorDTO{
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}

func (h *Hub) handleJoin(ctx context.Context, client *Client, data json.RawMessage) error {
	var req JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.ErrInvalidRequest
	}
	if req.RoomID == "" {
		return domain.ErrInvalidRequest.WithMessage("Room id is required")
	}

	h.registry.Join(client, req.RoomID)
	h.presence.Heartbeat(ctx, client.userID)
	return nil
}

func (h *Hub) handleLeave(client *Client, data json.RawMessage) error {
	var req LeaveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.ErrInvalidRequest
	}

	h.registry.Leave(client, req.RoomID)
	return nil
}

func (h *Hub) handleSend(ctx context.Context, client *Client, data json.RawMessage, kind domain.ConversationKind) error {
	var req SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.ErrInvalidRequest
	}

	dto, err := h.messages.Send(ctx, SendMessageInput{
		ConversationID: req.ChatID,
		Content:        req.Content,
		SenderID:       client.userID,
		Kind:           kind,
	})
	if err != nil {
		return err
	}

	isGroup := kind == domain.GroupConversation
	event := EventReceiveMessage
	if isGroup {
		event = EventReceiveGroupMessage
	}

	h.registry.Broadcast(dto.ChatOrGroupChatID, event, dto)
	h.registry.Broadcast(OverviewRoom, EventReceiveMessagePreview, h.messages.Preview(dto, isGroup))
	return nil
}

func (h *Hub) handleEdit(ctx context.Context, client *Client, data json.RawMessage) error {
	var req EditMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.ErrInvalidRequest
	}

	dto, err := h.messages.Edit(ctx, req.MessageID, req.Content, client.userID)
	if err != nil {
		return err
	}

	event := EventReceiveEditedMessage
	if req.IsGroupChat {
		event = EventReceiveGroupEditedMessage
	}
	h.registry.Broadcast(dto.ChatOrGroupChatID, event, dto)
	return nil
}

func (h *Hub) handleDelete(ctx context.Context, client *Client, data json.RawMessage) error {
	var req DeleteMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.ErrInvalidRequest
	}

	conversationID, err := h.messages.Delete(ctx, req.MessageID, client.userID)
	if err != nil {
		return err
	}

	event := EventReceiveDeletedMessage
	if req.IsGroupChat {
		event = EventReceiveGroupDeletedMessage
	}
	// Subscribers only need the id to drop the message from view.
	h.registry.Broadcast(conversationID, event, req.MessageID)
	return nil
}

func (h *Hub) handleTyping(ctx context.Context, client *Client, data json.RawMessage) error {
	var req NotifyTypingRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.ErrInvalidRequest
	}
	if req.ChatID == "" {
		return domain.ErrInvalidRequest.WithMessage("Chat id is required")
	}

	user, err := h.msgRepo.GetUser(ctx, client.userID)
	if err != nil {
		return err
	}

	h.typing.SetTyping(domain.TypingStatus{
		ChatID:      req.ChatID,
		UserID:      user.ID,
		UserName:    user.UserName,
		IsTyping:    req.IsTyping,
		IsGroupChat: req.IsGroupChat,
	})
	return nil
}

func (h *Hub) handleHeartbeat(ctx context.Context, client *Client, data json.RawMessage) error {
	h.presence.Heartbeat(ctx, client.userID)
	return nil
}
