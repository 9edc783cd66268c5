package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ntarasov/messenger/internal/domain"
)

// GroupService carries the group-chat management operations: creation,
// deletion, membership and role transitions. All authorization checks
// happen here so the rules hold no matter which transport invoked them.
type GroupService struct {
	groupRepo GroupRepoIn
	now       func() time.Time
}

func NewGroupService(groupRepo GroupRepoIn) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		now:       time.Now,
	}
}

// CreateGroup creates a group chat with the creator as admin and the
// given users as members. Participant rows snapshot the user profile at
// add time.
func (gs *GroupService) CreateGroup(ctx context.Context, title, adminID string, memberIDs []string) (*GroupChatDTO, error) {
	if title == "" || adminID == "" {
		return nil, domain.ErrInvalidRequest.WithMessage("Title and admin are required")
	}

	admin, err := gs.groupRepo.GetUser(ctx, adminID)
	if err != nil {
		return nil, err
	}

	group := &domain.GroupChat{
		ID:        uuid.NewString(),
		Title:     title,
		AdminID:   admin.ID,
		CreatedAt: gs.now().UTC(),
	}

	participants := []domain.Participant{gs.snapshot(group.ID, admin, domain.AdminRole)}
	for _, id := range memberIDs {
		if id == admin.ID {
			continue
		}
		user, err := gs.groupRepo.GetUser(ctx, id)
		if err != nil {
			return nil, err
		}
		participants = append(participants, gs.snapshot(group.ID, user, domain.MemberRole))
	}

	if err := gs.groupRepo.CreateGroupChat(ctx, group, participants); err != nil {
		slog.Error("Failed to create group chat", "admin_id", adminID, "error", err)
		return nil, err
	}

	return &GroupChatDTO{
		ID:           group.ID,
		Title:        group.Title,
		Admin:        userDTO(admin),
		Participants: participants,
	}, nil
}

// DeleteGroup removes the group chat and, by cascade, its messages and
// participants. Admin only.
func (gs *GroupService) DeleteGroup(ctx context.Context, groupID, requesterID string) error {
	group, err := gs.groupRepo.GetGroupChat(ctx, groupID)
	if err != nil {
		return err
	}
	if group.AdminID != requesterID {
		return domain.ErrForbidden.WithMessage("Only admin can delete the group")
	}
	return gs.groupRepo.DeleteGroupChat(ctx, groupID)
}

// AddParticipant adds a user as Member. Admin only; adding an existing
// participant fails with AlreadyExists.
func (gs *GroupService) AddParticipant(ctx context.Context, groupID, requesterID, userID string) error {
	group, err := gs.groupRepo.GetGroupChat(ctx, groupID)
	if err != nil {
		return err
	}
	if group.AdminID != requesterID {
		return domain.ErrForbidden.WithMessage("Only admin can add participants")
	}

	user, err := gs.groupRepo.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	if existing, err := gs.groupRepo.GetParticipant(ctx, groupID, userID); err == nil && existing != nil {
		return domain.ErrAlreadyExists.WithMessage("User is already a participant")
	}

	p := gs.snapshot(groupID, user, domain.MemberRole)
	return gs.groupRepo.AddParticipant(ctx, &p)
}

// RemoveParticipant removes a user from the group. Admin only, and the
// admin can never be removed: reassign the admin role first.
func (gs *GroupService) RemoveParticipant(ctx context.Context, groupID, requesterID, userID string) error {
	group, err := gs.groupRepo.GetGroupChat(ctx, groupID)
	if err != nil {
		return err
	}
	if group.AdminID != requesterID {
		return domain.ErrForbidden.WithMessage("Only admin can remove participants")
	}
	if userID == group.AdminID {
		return domain.ErrForbidden.WithMessage("Cannot remove admin from group")
	}

	if _, err := gs.groupRepo.GetParticipant(ctx, groupID, userID); err != nil {
		return err
	}
	return gs.groupRepo.RemoveParticipant(ctx, groupID, userID)
}

// ChangeRole sets a participant's role. Assigning Admin goes through
// PromoteToAdmin so the old admin's demotion happens in the same
// transition.
func (gs *GroupService) ChangeRole(ctx context.Context, groupID, requesterID, userID string, role domain.GroupRole) error {
	if !role.Valid() {
		return domain.ErrInvalidRequest.WithMessage("Unknown role")
	}
	if role == domain.AdminRole {
		return gs.PromoteToAdmin(ctx, groupID, requesterID, userID)
	}

	group, err := gs.groupRepo.GetGroupChat(ctx, groupID)
	if err != nil {
		return err
	}
	if group.AdminID != requesterID {
		return domain.ErrForbidden.WithMessage("Only admin can change roles")
	}
	if userID == group.AdminID {
		return domain.ErrForbidden.WithMessage("Reassign the admin role instead of demoting the admin")
	}

	if _, err := gs.groupRepo.GetParticipant(ctx, groupID, userID); err != nil {
		return err
	}
	return gs.groupRepo.ChangeParticipantRole(ctx, groupID, userID, role)
}

// PromoteToAdmin atomically moves the admin role to another participant:
// the group's admin reference, the new admin's role and the old admin's
// demotion to Member commit as one transition.
func (gs *GroupService) PromoteToAdmin(ctx context.Context, groupID, requesterID, newAdminID string) error {
	group, err := gs.groupRepo.GetGroupChat(ctx, groupID)
	if err != nil {
		return err
	}
	if group.AdminID != requesterID {
		return domain.ErrForbidden.WithMessage("Only admin can reassign the admin role")
	}
	if newAdminID == group.AdminID {
		return nil
	}

	if _, err := gs.groupRepo.GetParticipant(ctx, groupID, newAdminID); err != nil {
		return err
	}
	return gs.groupRepo.PromoteToAdmin(ctx, groupID, newAdminID)
}

// ListParticipants returns the denormalized membership snapshots.
func (gs *GroupService) ListParticipants(ctx context.Context, groupID string) ([]domain.Participant, error) {
	if _, err := gs.groupRepo.GetGroupChat(ctx, groupID); err != nil {
		return nil, err
	}
	return gs.groupRepo.ListParticipants(ctx, groupID)
}

// SyncParticipantProfile pushes a changed user profile into every group
// snapshot that references the user. This is the hook that keeps the
// denormalized rows from drifting.
func (gs *GroupService) SyncParticipantProfile(ctx context.Context, userID string) error {
	user, err := gs.groupRepo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	return gs.groupRepo.SyncParticipantProfile(ctx, user)
}

func (gs *GroupService) snapshot(groupID string, user *domain.User, role domain.GroupRole) domain.Participant {
	return domain.Participant{
		GroupChatID:      groupID,
		UserID:           user.ID,
		UserName:         user.UserName,
		Avatar:           user.Avatar,
		Role:             role,
		StatusVisibility: user.StatusVisibility,
		AddedAt:          gs.now().UTC(),
	}
}
