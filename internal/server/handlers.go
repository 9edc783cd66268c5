package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/ntarasov/messenger/internal/domain"
	"github.com/ntarasov/messenger/internal/service"
	"github.com/ntarasov/messenger/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	hub       *service.Hub
	messages  service.MessageServiceIn
	groups    *service.GroupService
	jwtSecret string
}

func NewHandler(hub *service.Hub, messages service.MessageServiceIn, groups *service.GroupService, jwtSecret string) *Handler {
	return &Handler{
		hub:       hub,
		messages:  messages,
		groups:    groups,
		jwtSecret: jwtSecret,
	}
}

// handleUnifiedHub authenticates the handshake and hands the socket to the
// hub. The bearer token rides in the access_token query parameter (the
// browser WebSocket API cannot set headers) or the Authorization header.
func (h *Handler) handleUnifiedHub(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("access_token")
	if tokenString == "" {
		header, err := utils.ExtractToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, domain.ErrUnauthorizedError)
			return
		}
		tokenString = header
	}

	claims, err := utils.ValidateAccessToken(tokenString, h.jwtSecret)
	if err != nil {
		handleError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection", "error", err)
		return
	}

	// The request context dies as soon as this handler returns; the
	// connection lives until the peer goes away.
	client := service.NewClient(claims.UserID, conn, h.hub)
	go h.hub.HandleConn(context.Background(), client)
}

func (h *Handler) handleNewGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, domain.ErrUnauthorizedError)
		return
	}

	var in NewGroupJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}

	group, err := h.groups.CreateGroup(r.Context(), in.Title, userID, in.ParticipantIDs)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, group)
}

func (h *Handler) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, domain.ErrUnauthorizedError)
		return
	}

	if err := h.groups.DeleteGroup(r.Context(), r.PathValue("group_id"), userID); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, domain.ErrUnauthorizedError)
		return
	}

	var in ParticipantJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}

	if err := h.groups.AddParticipant(r.Context(), r.PathValue("group_id"), userID, in.UserID); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, domain.ErrUnauthorizedError)
		return
	}

	var in ParticipantJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}

	if err := h.groups.RemoveParticipant(r.Context(), r.PathValue("group_id"), userID, in.UserID); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleGetParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.groups.ListParticipants(r.Context(), r.PathValue("group_id"))
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ParticipantsResponse{Participants: participants})
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, domain.ErrUnauthorizedError)
		return
	}

	var in UpdateRoleJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}

	if err := h.groups.ChangeRole(r.Context(), r.PathValue("group_id"), userID, in.UserID, in.Role); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handlePromoteAdmin(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, domain.ErrUnauthorizedError)
		return
	}

	var in PromoteAdminJSON
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, domain.ErrInvalidRequest)
		return
	}

	if err := h.groups.PromoteToAdmin(r.Context(), r.PathValue("group_id"), userID, in.UserID); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleRecentMessages(w http.ResponseWriter, r *http.Request) {
	kind := domain.DirectConversation
	if r.URL.Query().Get("isGroupChat") == "true" {
		kind = domain.GroupConversation
	}

	messages, err := h.messages.ListRecent(r.Context(), r.PathValue("conversation_id"), kind)
	if err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RecentMessagesResponse{Messages: messages})
}

func (h *Handler) handleSyncProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		writeError(w, domain.ErrUnauthorizedError)
		return
	}

	if err := h.groups.SyncParticipantProfile(r.Context(), userID); err != nil {
		handleError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
