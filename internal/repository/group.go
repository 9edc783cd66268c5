package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/ntarasov/messenger/internal/domain"
)

type GroupRepo struct {
	db *sqlx.DB
}

func NewGroupRepo(db *sqlx.DB) *GroupRepo {
	return &GroupRepo{db: db}
}

func (gr *GroupRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT id, username, avatar, status_visibility, created_at
		FROM users
		WHERE id = $1;
	`

	var user domain.User
	if err := gr.db.GetContext(ctx, &user, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound.WithMessage("User not found")
		}
		return nil, err
	}
	return &user, nil
}

func (gr *GroupRepo) GetGroupChat(ctx context.Context, groupChatID string) (*domain.GroupChat, error) {
	query := `
		SELECT id, title, admin_id, created_at
		FROM group_chats
		WHERE id = $1;
	`

	var group domain.GroupChat
	if err := gr.db.GetContext(ctx, &group, query, groupChatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound.WithMessage("Group chat not found")
		}
		return nil, err
	}
	return &group, nil
}

func (gr *GroupRepo) CreateGroupChat(ctx context.Context, group *domain.GroupChat, participants []domain.Participant) error {
	tx, err := gr.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO group_chats (id, title, admin_id, created_at)
		VALUES ($1, $2, $3, $4);
	`
	if _, err := tx.ExecContext(ctx, query, group.ID, group.Title, group.AdminID, group.CreatedAt); err != nil {
		return err
	}

	query = `
		INSERT INTO group_participants (group_chat_id, user_id, username, avatar, role, status_visibility, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	for _, p := range participants {
		if _, err := tx.ExecContext(ctx, query,
			p.GroupChatID, p.UserID, p.UserName, p.Avatar, p.Role, p.StatusVisibility, p.AddedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (gr *GroupRepo) DeleteGroupChat(ctx context.Context, groupChatID string) error {
	query := `
		DELETE FROM group_chats WHERE id = $1;
	`

	res, err := gr.db.ExecContext(ctx, query, groupChatID)
	if err != nil {
		return err
	}

	rowsAff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAff == 0 {
		return domain.ErrNotFound.WithMessage("Group chat not found")
	}
	return nil
}

func (gr *GroupRepo) ListParticipants(ctx context.Context, groupChatID string) ([]domain.Participant, error) {
	query := `
		SELECT group_chat_id, user_id, username, avatar, role, status_visibility, added_at
		FROM group_participants
		WHERE group_chat_id = $1
		ORDER BY added_at;
	`

	var participants []domain.Participant
	if err := gr.db.SelectContext(ctx, &participants, query, groupChatID); err != nil {
		return nil, err
	}
	return participants, nil
}

func (gr *GroupRepo) GetParticipant(ctx context.Context, groupChatID, userID string) (*domain.Participant, error) {
	query := `
		SELECT group_chat_id, user_id, username, avatar, role, status_visibility, added_at
		FROM group_participants
		WHERE group_chat_id = $1 AND user_id = $2;
	`

	var p domain.Participant
	if err := gr.db.GetContext(ctx, &p, query, groupChatID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound.WithMessage("User is not a participant")
		}
		return nil, err
	}
	return &p, nil
}

func (gr *GroupRepo) AddParticipant(ctx context.Context, p *domain.Participant) error {
	query := `
		INSERT INTO group_participants (group_chat_id, user_id, username, avatar, role, status_visibility, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (group_chat_id, user_id) DO NOTHING;
	`

	res, err := gr.db.ExecContext(ctx, query,
		p.GroupChatID, p.UserID, p.UserName, p.Avatar, p.Role, p.StatusVisibility, p.AddedAt)
	if err != nil {
		return err
	}

	rowsAff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAff == 0 {
		return domain.ErrAlreadyExists.WithMessage("User is already a participant")
	}
	return nil
}

func (gr *GroupRepo) RemoveParticipant(ctx context.Context, groupChatID, userID string) error {
	query := `
		DELETE FROM group_participants
		WHERE group_chat_id = $1 AND user_id = $2;
	`

	res, err := gr.db.ExecContext(ctx, query, groupChatID, userID)
	if err != nil {
		return err
	}

	rowsAff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAff == 0 {
		return domain.ErrNotFound.WithMessage("User is not a participant")
	}
	return nil
}

func (gr *GroupRepo) ChangeParticipantRole(ctx context.Context, groupChatID, userID string, role domain.GroupRole) error {
	query := `
		UPDATE group_participants
		SET role = $1
		WHERE group_chat_id = $2 AND user_id = $3;
	`

	res, err := gr.db.ExecContext(ctx, query, role, groupChatID, userID)
	if err != nil {
		return err
	}

	rowsAff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAff == 0 {
		return domain.ErrNotFound.WithMessage("User is not a participant")
	}
	return nil
}

// PromoteToAdmin commits the whole admin handover in one transaction:
// the group's admin reference, the old admin's demotion to Member and
// the new admin's promotion.
func (gr *GroupRepo) PromoteToAdmin(ctx context.Context, groupChatID, newAdminID string) error {
	tx, err := gr.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		SELECT admin_id FROM group_chats WHERE id = $1 FOR UPDATE;
	`
	var oldAdminID string
	if err := tx.GetContext(ctx, &oldAdminID, query, groupChatID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound.WithMessage("Group chat not found")
		}
		return err
	}

	query = `
		UPDATE group_chats SET admin_id = $1 WHERE id = $2;
	`
	if _, err := tx.ExecContext(ctx, query, newAdminID, groupChatID); err != nil {
		return err
	}

	query = `
		UPDATE group_participants
		SET role = $1
		WHERE group_chat_id = $2 AND user_id = $3;
	`
	if _, err := tx.ExecContext(ctx, query, domain.MemberRole, groupChatID, oldAdminID); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, query, domain.AdminRole, groupChatID, newAdminID)
	if err != nil {
		return err
	}
	rowsAff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAff == 0 {
		return domain.ErrNotFound.WithMessage("User is not a participant")
	}

	return tx.Commit()
}

// SyncParticipantProfile pushes the live user profile into every
// denormalized participant snapshot referencing the user.
func (gr *GroupRepo) SyncParticipantProfile(ctx context.Context, user *domain.User) error {
	query := `
		UPDATE group_participants
		SET username = $1, avatar = $2, status_visibility = $3
		WHERE user_id = $4;
	`

	_, err := gr.db.ExecContext(ctx, query, user.UserName, user.Avatar, user.StatusVisibility, user.ID)
	return err
}
