package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelf-works/shelf/internal/api"
	"github.com/shelf-works/shelf/internal/api/middleware"
	"github.com/shelf-works/shelf/internal/domain"
)

type ChatService interface {
	CreateSession(ctx context.Context, ownerID, title string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, ownerID string) ([]*domain.ChatSession, error)
	ListMessages(ctx context.Context, ownerID, sessionID string) ([]*domain.ChatMessage, error)
	DeleteSession(ctx context.Context, ownerID, sessionID string) error
	Send(ctx context.Context, ownerID, sessionID, query string, fileIDs []string) (*domain.ChatMessage, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatSessionResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func sessionToResponse(s *domain.ChatSession) *ChatSessionResponse {
	return &ChatSessionResponse{
		ID:        s.ID,
		Title:     s.Title,
		CreatedAt: s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: s.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

type SourceRefResponse struct {
	FileID     string  `json:"file_id"`
	ChunkIndex float64 `json:"chunk_index"`
	Excerpt    string  `json:"excerpt"`
}

type ChatMessageResponse struct {
	ID        string              `json:"id"`
	Role      string              `json:"role"`
	Content   string              `json:"content"`
	Sources   []SourceRefResponse `json:"sources,omitempty"`
	CreatedAt string              `json:"created_at"`
}

func messageToResponse(m *domain.ChatMessage) *ChatMessageResponse {
	resp := &ChatMessageResponse{
		ID:        m.ID,
		Role:      string(m.Role),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	for _, s := range m.Sources {
		resp.Sources = append(resp.Sources, SourceRefResponse{
			FileID:     s.FileID,
			ChunkIndex: s.ChunkIndex,
			Excerpt:    s.Excerpt,
		})
	}
	return resp
}

type CreateSessionRequest struct {
	Title string `json:"title"`
}

func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := h.svc.CreateSession(r.Context(), userID, req.Title)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, sessionToResponse(session))
}

func (h *ChatHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessions, err := h.svc.ListSessions(r.Context(), userID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*ChatSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, sessionToResponse(s))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	messages, err := h.svc.ListMessages(r.Context(), userID, chi.URLParam(r, "sessionID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*ChatMessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, messageToResponse(m))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *ChatHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.svc.DeleteSession(r.Context(), userID, chi.URLParam(r, "sessionID")); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type SendMessageRequest struct {
	Content string   `json:"content"`
	FileIDs []string `json:"file_ids,omitempty"`
}

func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := h.svc.Send(r.Context(), userID, chi.URLParam(r, "sessionID"), req.Content, req.FileIDs)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, messageToResponse(reply))
}
