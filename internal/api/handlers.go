package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/convocore/convocore/internal/convo"
	"github.com/convocore/convocore/internal/database"
	apperrors "github.com/convocore/convocore/internal/errors"
	"github.com/convocore/convocore/internal/platform"
)

// userResponse is the wire shape of a resolved user. Empty platform
// slots are omitted.
type userResponse struct {
	ID         string    `json:"id"`
	WhatsAppID string    `json:"whatsapp_id,omitempty"`
	TelegramID string    `json:"telegram_id,omitempty"`
	APIID      string    `json:"api_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toUserResponse(u *database.User) userResponse {
	return userResponse{
		ID:         u.ID,
		WhatsAppID: u.WhatsAppID.String,
		TelegramID: u.TelegramID.String,
		APIID:      u.APIID.String,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

type groupResponse struct {
	ID          string    `json:"id"`
	WhatsAppID  string    `json:"whatsapp_id,omitempty"`
	TelegramID  string    `json:"telegram_id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toGroupResponse(g *database.Group) groupResponse {
	return groupResponse{
		ID:          g.ID,
		WhatsAppID:  g.WhatsAppID.String,
		TelegramID:  g.TelegramID.String,
		Name:        g.Name,
		Description: g.Description.String,
		IsActive:    g.IsActive,
		CreatedAt:   g.CreatedAt,
		UpdatedAt:   g.UpdatedAt,
	}
}

type membershipResponse struct {
	ID       string     `json:"id"`
	UserID   string     `json:"user_id"`
	GroupID  string     `json:"group_id"`
	Role     string     `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

func toMembershipResponse(m *database.GroupMember) membershipResponse {
	resp := membershipResponse{
		ID:       m.ID,
		UserID:   m.UserID,
		GroupID:  m.GroupID,
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt,
	}
	if m.LeftAt.Valid {
		t := m.LeftAt.Time
		resp.LeftAt = &t
	}
	return resp
}

type entryResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	GroupID     string    `json:"group_id,omitempty"`
	Message     string    `json:"message"`
	Sender      string    `json:"sender"`
	Platform    string    `json:"platform"`
	MessageType string    `json:"message_type"`
	Context     string    `json:"context,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func toEntryResponse(e *database.Conversation) entryResponse {
	return entryResponse{
		ID:          e.ID,
		UserID:      e.UserID,
		GroupID:     e.GroupID.String,
		Message:     e.Message,
		Sender:      string(e.Sender),
		Platform:    e.Platform,
		MessageType: string(e.MessageType),
		Context:     e.Context.String,
		Timestamp:   e.Timestamp,
	}
}

type historyResponse struct {
	Entries []entryResponse `json:"entries"`
	Total   int             `json:"total"`
	HasMore bool            `json:"has_more"`
}

func toHistoryResponse(page *database.HistoryPage) historyResponse {
	entries := make([]entryResponse, 0, len(page.Entries))
	for i := range page.Entries {
		entries = append(entries, toEntryResponse(&page.Entries[i]))
	}
	return historyResponse{Entries: entries, Total: page.Total, HasMore: page.HasMore}
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"service": "convocore",
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"database": "sqlite",
	})
}

type resolveUserRequest struct {
	WhatsAppID string `json:"whatsapp_id"`
	TelegramID string `json:"telegram_id"`
	APIID      string `json:"api_id"`
}

func (req *resolveUserRequest) candidates() map[platform.Platform]string {
	return map[platform.Platform]string{
		platform.WhatsApp: req.WhatsAppID,
		platform.Telegram: req.TelegramID,
		platform.API:      req.APIID,
	}
}

func (s *Server) handleResolveUser(w http.ResponseWriter, r *http.Request) {
	var req resolveUserRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	user, err := s.identity.Resolve(r.Context(), req.candidates())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toUserResponse(user))
}

type resolveGroupRequest struct {
	WhatsAppID  string `json:"whatsapp_id"`
	TelegramID  string `json:"telegram_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	// UserID, when present, is the known user on whose behalf the group
	// is resolved; an active membership is ensured for them.
	UserID string `json:"user_id"`
}

func (s *Server) handleResolveGroup(w http.ResponseWriter, r *http.Request) {
	var req resolveGroupRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	group, err := s.groups.Resolve(r.Context(), map[platform.Platform]string{
		platform.WhatsApp: req.WhatsAppID,
		platform.Telegram: req.TelegramID,
	}, req.Name, req.Description)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if req.UserID != "" {
		if _, err := s.groups.EnsureMembership(r.Context(), req.UserID, group.ID, ""); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	s.respondJSON(w, http.StatusOK, toGroupResponse(group))
}

type ensureMembershipRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role"    validate:"omitempty,oneof=MEMBER ADMIN OWNER"`
}

func (s *Server) handleEnsureMembership(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	var req ensureMembershipRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	member, err := s.groups.EnsureMembership(r.Context(), req.UserID, groupID, database.MemberRole(req.Role))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toMembershipResponse(member))
}

func (s *Server) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")
	userID := chi.URLParam(r, "userID")

	if err := s.groups.Leave(r.Context(), userID, groupID); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeactivateGroup(w http.ResponseWriter, r *http.Request) {
	if err := s.groups.Deactivate(r.Context(), chi.URLParam(r, "groupID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

type appendMessageRequest struct {
	UserID      string  `json:"user_id"      validate:"required"`
	GroupID     *string `json:"group_id"`
	Message     string  `json:"message"      validate:"required"`
	Sender      string  `json:"sender"       validate:"required,oneof=USER AI"`
	Platform    string  `json:"platform"     validate:"required"`
	MessageType string  `json:"message_type" validate:"omitempty,oneof=TEXT IMAGE DOCUMENT AUDIO SYSTEM"`
	Context     string  `json:"context"`
}

func (s *Server) handleAppendMessage(w http.ResponseWriter, r *http.Request) {
	var req appendMessageRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	p, err := platform.Parse(req.Platform)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	entry, err := s.assembler.Append(r.Context(), convo.AppendParams{
		UserID:      req.UserID,
		GroupID:     req.GroupID,
		Message:     req.Message,
		Sender:      database.Sender(req.Sender),
		Platform:    p,
		MessageType: database.MessageType(req.MessageType),
		ContextNote: req.Context,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, toEntryResponse(entry))
}

// parseHistoryWindow reads limit/offset query params with defaults.
func parseHistoryWindow(r *http.Request) (int, int, error) {
	limit := database.DefaultHistoryLimit
	offset := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, apperrors.NewValidationError("limit must be an integer", err)
		}
		limit = parsed
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, apperrors.NewValidationError("offset must be an integer", err)
		}
		offset = parsed
	}
	return limit, offset, nil
}

// handleGetHistory serves scoped history. The scope is explicit: no
// group_id parameter means the user's private conversation; a group_id
// means exactly that group. There is no cross-scope mode.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		s.respondError(w, r, apperrors.NewValidationError("user_id query parameter is required", nil))
		return
	}

	var groupID *string
	if raw := r.URL.Query().Get("group_id"); raw != "" {
		groupID = &raw
	}

	limit, offset, err := parseHistoryWindow(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	page, err := s.assembler.History(r.Context(), userID, groupID, limit, offset)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toHistoryResponse(page))
}

func (s *Server) handleGroupHistory(w http.ResponseWriter, r *http.Request) {
	groupID := chi.URLParam(r, "groupID")

	limit, offset, err := parseHistoryWindow(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	page, err := s.store.GroupHistory(r.Context(), groupID, limit, offset)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toHistoryResponse(page))
}

type buildContextRequest struct {
	UserID  string  `json:"user_id" validate:"required"`
	GroupID *string `json:"group_id"`
	Limit   int     `json:"limit"   validate:"omitempty,min=1"`
}

func (s *Server) handleBuildContext(w http.ResponseWriter, r *http.Request) {
	var req buildContextRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	text, err := s.assembler.BuildContext(r.Context(), req.UserID, req.GroupID, req.Limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"context": text})
}

type chatRequest struct {
	WhatsAppID      string `json:"whatsapp_id"`
	TelegramID      string `json:"telegram_id"`
	APIID           string `json:"api_id"`
	GroupWhatsAppID string `json:"group_whatsapp_id"`
	GroupTelegramID string `json:"group_telegram_id"`
	GroupName       string `json:"group_name"`
	Platform        string `json:"platform"     validate:"required"`
	Message         string `json:"message"      validate:"required"`
	MessageType     string `json:"message_type" validate:"omitempty,oneof=TEXT IMAGE DOCUMENT AUDIO SYSTEM"`
}

type chatResponse struct {
	Reply   string `json:"reply"`
	UserID  string `json:"user_id"`
	GroupID string `json:"group_id,omitempty"`
}

// handleChat runs one complete chat turn: identity resolution, optional
// group resolution with membership, context assembly, inference, and
// recording of both messages under the same scope.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	p, err := platform.Parse(req.Platform)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	user, err := s.identity.Resolve(r.Context(), map[platform.Platform]string{
		platform.WhatsApp: req.WhatsAppID,
		platform.Telegram: req.TelegramID,
		platform.API:      req.APIID,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var groupID *string
	if req.GroupWhatsAppID != "" || req.GroupTelegramID != "" {
		group, err := s.groups.Resolve(r.Context(), map[platform.Platform]string{
			platform.WhatsApp: req.GroupWhatsAppID,
			platform.Telegram: req.GroupTelegramID,
		}, req.GroupName, "")
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		if _, err := s.groups.EnsureMembership(r.Context(), user.ID, group.ID, ""); err != nil {
			s.respondError(w, r, err)
			return
		}
		groupID = &group.ID
	}

	reply, err := s.assembler.Turn(r.Context(), convo.TurnParams{
		UserID:      user.ID,
		GroupID:     groupID,
		Message:     req.Message,
		Platform:    p,
		MessageType: database.MessageType(req.MessageType),
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := chatResponse{Reply: reply, UserID: user.ID}
	if groupID != nil {
		resp.GroupID = *groupID
	}
	s.respondJSON(w, http.StatusOK, resp)
}
