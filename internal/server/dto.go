package server

import (
	"github.com/ntarasov/messenger/internal/domain"
	"github.com/ntarasov/messenger/internal/service"
)

type NewGroupJSON struct {
	Title          string   `json:"title"`
	ParticipantIDs []string `json:"participantIds"`
}

type ParticipantJSON struct {
	UserID string `json:"userId"`
}

type UpdateRoleJSON struct {
	UserID string           `json:"userId"`
	Role   domain.GroupRole `json:"role"`
}

type PromoteAdminJSON struct {
	UserID string `json:"userId"`
}

// responses
type ParticipantsResponse struct {
	Participants []domain.Participant `json:"participants"`
}

type RecentMessagesResponse struct {
	Messages []service.MessageDTO `json:"messages"`
}
