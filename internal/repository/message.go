package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/ntarasov/messenger/internal/domain"
	"github.com/ntarasov/messenger/internal/service"
)

type MessageRepo struct {
	db *sqlx.DB
}

func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (mr *MessageRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT id, username, avatar, status_visibility, created_at
		FROM users
		WHERE id = $1;
	`

	var user domain.User
	if err := mr.db.GetContext(ctx, &user, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound.WithMessage("User not found")
		}
		return nil, err
	}
	return &user, nil
}

func (mr *MessageRepo) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	query := `
		SELECT id, user1_id, user2_id, created_at
		FROM chats
		WHERE id = $1;
	`

	var chat domain.Chat
	if err := mr.db.GetContext(ctx, &chat, query, chatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound.WithMessage("Chat not found")
		}
		return nil, err
	}
	return &chat, nil
}

func (mr *MessageRepo) GetGroupChat(ctx context.Context, groupChatID string) (*domain.GroupChat, error) {
	query := `
		SELECT id, title, admin_id, created_at
		FROM group_chats
		WHERE id = $1;
	`

	var group domain.GroupChat
	if err := mr.db.GetContext(ctx, &group, query, groupChatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound.WithMessage("Group chat not found")
		}
		return nil, err
	}
	return &group, nil
}

func (mr *MessageRepo) IsGroupParticipant(ctx context.Context, groupChatID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM group_participants
			WHERE group_chat_id = $1 AND user_id = $2
		);
	`

	var member bool
	if err := mr.db.GetContext(ctx, &member, query, groupChatID, userID); err != nil {
		return false, err
	}
	return member, nil
}

func (mr *MessageRepo) InsertMessage(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, sender_id, chat_id, group_chat_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5, $6);
	`

	_, err := mr.db.ExecContext(ctx, query,
		msg.ID, msg.SenderID, msg.ChatID, msg.GroupChatID, msg.Content, msg.CreatedAt)
	return err
}

func (mr *MessageRepo) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	query := `
		SELECT id, sender_id, chat_id, group_chat_id, content, created_at
		FROM messages
		WHERE id = $1;
	`

	var msg domain.Message
	if err := mr.db.GetContext(ctx, &msg, query, messageID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound.WithMessage("Message not found")
		}
		return nil, err
	}
	return &msg, nil
}

// UpdateMessageContent rewrites content only, never the creation
// timestamp. Zero rows means the message vanished under a concurrent
// delete, reported as NotFound.
func (mr *MessageRepo) UpdateMessageContent(ctx context.Context, messageID, content string) error {
	query := `
		UPDATE messages
		SET content = $1
		WHERE id = $2;
	`

	res, err := mr.db.ExecContext(ctx, query, content, messageID)
	if err != nil {
		return err
	}

	rowsAff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAff == 0 {
		return domain.ErrNotFound.WithMessage("Message not found")
	}
	return nil
}

func (mr *MessageRepo) DeleteMessage(ctx context.Context, messageID string) error {
	query := `
		DELETE FROM messages WHERE id = $1;
	`

	res, err := mr.db.ExecContext(ctx, query, messageID)
	if err != nil {
		return err
	}

	rowsAff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAff == 0 {
		return domain.ErrNotFound.WithMessage("Message not found or already deleted")
	}
	return nil
}

func (mr *MessageRepo) ListRecentMessages(ctx context.Context, conversationID string, kind domain.ConversationKind, limit int) ([]service.MessageDTO, error) {
	column := "m.chat_id"
	if kind == domain.GroupConversation {
		column = "m.group_chat_id"
	}

	query := `
		SELECT
			m.id, m.content, m.created_at,
			u.id AS sender_id, u.username, u.avatar, u.status_visibility
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE ` + column + ` = $1
		ORDER BY m.created_at DESC
		LIMIT $2;
	`

	rows, err := mr.db.QueryxContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []service.MessageDTO
	for rows.Next() {
		var row struct {
			ID               string       `db:"id"`
			Content          string       `db:"content"`
			CreatedAt        sql.NullTime `db:"created_at"`
			SenderID         string       `db:"sender_id"`
			UserName         string       `db:"username"`
			Avatar           string       `db:"avatar"`
			StatusVisibility string       `db:"status_visibility"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, err
		}

		messages = append(messages, service.MessageDTO{
			MessageID: row.ID,
			Sender: service.UserDTO{
				ID:               row.SenderID,
				UserName:         row.UserName,
				Avatar:           row.Avatar,
				StatusVisibility: row.StatusVisibility,
			},
			ChatOrGroupChatID: conversationID,
			Content:           row.Content,
			Timestamp:         row.CreatedAt.Time,
		})
	}
	return messages, rows.Err()
}
