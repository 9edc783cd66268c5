package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ntarasov/messenger/internal/domain"
)

func newMessageFixture() (*MessageService, *fakeMsgRepo) {
	repo := newFakeMsgRepo()
	repo.addUser("A", "Alice")
	repo.addUser("B", "Bob")
	repo.addUser("X", "Mallory")
	repo.addChat("c1", "A", "B")
	repo.addGroup("g1", "A", "B")
	return NewMessageService(repo), repo
}

func assertAppError(t *testing.T, err error, want *domain.AppError) {
	t.Helper()
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Code != want.Code {
		t.Fatalf("expected code %s, got %s (%s)", want.Code, appErr.Code, appErr.Message)
	}
}

func TestSendPersistsWithServerAssignedIDAndUTCTimestamp(t *testing.T) {
	ms, repo := newMessageFixture()

	dto, err := ms.Send(context.Background(), SendMessageInput{
		ConversationID: "c1",
		Content:        "hello",
		SenderID:       "A",
		Kind:           domain.DirectConversation,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	if dto.MessageID == "" {
		t.Fatal("message id must be server-assigned")
	}
	if dto.Timestamp.Location() != time.UTC {
		t.Fatalf("timestamp must be UTC, got %v", dto.Timestamp.Location())
	}
	if dto.Sender.ID != "A" || dto.Sender.UserName != "Alice" {
		t.Fatalf("unexpected sender %+v", dto.Sender)
	}
	if dto.ChatOrGroupChatID != "c1" {
		t.Fatalf("unexpected conversation id %s", dto.ChatOrGroupChatID)
	}

	stored, err := repo.GetMessage(context.Background(), dto.MessageID)
	if err != nil {
		t.Fatalf("message was not persisted: %v", err)
	}
	if stored.ChatID == nil || *stored.ChatID != "c1" || stored.GroupChatID != nil {
		t.Fatalf("message must belong to exactly the chat, got %+v", stored)
	}
}

func TestSendValidation(t *testing.T) {
	ms, _ := newMessageFixture()
	ctx := context.Background()

	cases := []struct {
		name string
		in   SendMessageInput
		want *domain.AppError
	}{
		{"empty content", SendMessageInput{ConversationID: "c1", Content: "   ", SenderID: "A"}, domain.ErrInvalidRequest},
		{"unknown sender", SendMessageInput{ConversationID: "c1", Content: "hi", SenderID: "ghost"}, domain.ErrNotFound},
		{"unknown chat", SendMessageInput{ConversationID: "nope", Content: "hi", SenderID: "A"}, domain.ErrNotFound},
		{"unknown group", SendMessageInput{ConversationID: "nope", Content: "hi", SenderID: "A", Kind: domain.GroupConversation}, domain.ErrNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ms.Send(ctx, tc.in)
			assertAppError(t, err, tc.want)
		})
	}
}

func TestSendGroupRejectsNonParticipant(t *testing.T) {
	ms, repo := newMessageFixture()

	_, err := ms.Send(context.Background(), SendMessageInput{
		ConversationID: "g1",
		Content:        "hi",
		SenderID:       "X",
		Kind:           domain.GroupConversation,
	})
	assertAppError(t, err, domain.ErrForbidden)

	if len(repo.messages) != 0 {
		t.Fatal("forbidden send must not persist anything")
	}
}

func TestEditKeepsOriginalTimestamp(t *testing.T) {
	ms, _ := newMessageFixture()
	ctx := context.Background()

	sent, err := ms.Send(ctx, SendMessageInput{
		ConversationID: "c1", Content: "hello", SenderID: "A",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	edited, err := ms.Edit(ctx, sent.MessageID, "hello world", "A")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}

	if edited.Content != "hello world" {
		t.Fatalf("expected new content, got %q", edited.Content)
	}
	if !edited.Timestamp.Equal(sent.Timestamp) {
		t.Fatalf("edit must not touch the creation timestamp: %v vs %v", edited.Timestamp, sent.Timestamp)
	}
}

func TestEditByNonAuthorIsForbidden(t *testing.T) {
	ms, _ := newMessageFixture()
	ctx := context.Background()

	sent, _ := ms.Send(ctx, SendMessageInput{ConversationID: "c1", Content: "hello", SenderID: "A"})

	_, err := ms.Edit(ctx, sent.MessageID, "hacked", "B")
	assertAppError(t, err, domain.ErrForbidden)

	unchanged, _ := ms.Edit(ctx, sent.MessageID, "hello", "A")
	if unchanged.Content != "hello" {
		t.Fatalf("content must be untouched after a forbidden edit, got %q", unchanged.Content)
	}
}

func TestDeleteReturnsOwningConversation(t *testing.T) {
	ms, repo := newMessageFixture()
	ctx := context.Background()

	sent, _ := ms.Send(ctx, SendMessageInput{ConversationID: "c1", Content: "bye", SenderID: "A"})

	conversationID, err := ms.Delete(ctx, sent.MessageID, "A")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if conversationID != "c1" {
		t.Fatalf("expected owning conversation c1, got %s", conversationID)
	}

	if _, err := repo.GetMessage(ctx, sent.MessageID); err == nil {
		t.Fatal("message must be gone after delete")
	}
	recent, _ := ms.ListRecent(ctx, "c1", domain.DirectConversation)
	for _, m := range recent {
		if m.MessageID == sent.MessageID {
			t.Fatal("deleted message must not show up in recent messages")
		}
	}
}

func TestDeleteByNonAuthorIsForbidden(t *testing.T) {
	ms, _ := newMessageFixture()
	ctx := context.Background()

	sent, _ := ms.Send(ctx, SendMessageInput{ConversationID: "c1", Content: "bye", SenderID: "A"})

	_, err := ms.Delete(ctx, sent.MessageID, "B")
	assertAppError(t, err, domain.ErrForbidden)

	_, err = ms.Delete(ctx, "missing", "A")
	assertAppError(t, err, domain.ErrNotFound)
}

func TestListRecentNewestFirst(t *testing.T) {
	ms, _ := newMessageFixture()
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		ms.now = func() time.Time { return at }
		if _, err := ms.Send(ctx, SendMessageInput{ConversationID: "c1", Content: "m", SenderID: "A"}); err != nil {
			t.Fatalf("send: %v", err)
		}
	}

	recent, err := ms.ListRecent(ctx, "c1", domain.DirectConversation)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(recent))
	}
	for i := 1; i < len(recent); i++ {
		if recent[i].Timestamp.After(recent[i-1].Timestamp) {
			t.Fatal("messages must come newest first")
		}
	}
}

func TestPreviewTruncatesContent(t *testing.T) {
	ms, _ := newMessageFixture()

	long := strings.Repeat("я", 200)
	preview := ms.Preview(&MessageDTO{
		Sender:            UserDTO{ID: "A", UserName: "Alice"},
		ChatOrGroupChatID: "c1",
		Content:           long,
	}, false)

	if len([]rune(preview.Snippet)) != previewSnippetRunes+1 {
		t.Fatalf("snippet must be bounded, got %d runes", len([]rune(preview.Snippet)))
	}
	if preview.SenderName != "Alice" || preview.ChatOrGroupChatID != "c1" {
		t.Fatalf("preview must carry sender and conversation, got %+v", preview)
	}
}
