package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelf-works/shelf/internal/api"
	"github.com/shelf-works/shelf/internal/api/middleware"
	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/service"
)

type ChunkService interface {
	List(ctx context.Context, ownerID, fileID string) ([]*domain.Chunk, error)
	Update(ctx context.Context, ownerID, chunkID, content string) (*domain.Chunk, error)
	Delete(ctx context.Context, ownerID, chunkID string) error
	Split(ctx context.Context, ownerID, chunkID string, offset int) (*service.SplitResult, error)
	Merge(ctx context.Context, ownerID string, chunkIDs []string) (*service.MergeResult, error)
}

type ChunkHandler struct {
	svc ChunkService
}

func NewChunkHandler(svc ChunkService) *ChunkHandler {
	return &ChunkHandler{svc: svc}
}

type ChunkResponse struct {
	ID        string         `json:"id"`
	FileID    string         `json:"file_id"`
	Content   string         `json:"content"`
	Index     float64        `json:"index"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

func chunkToResponse(c *domain.Chunk) *ChunkResponse {
	return &ChunkResponse{
		ID:        c.ID,
		FileID:    c.FileID,
		Content:   c.Content,
		Index:     c.Index,
		Metadata:  c.Metadata,
		CreatedAt: c.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: c.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *ChunkHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	chunks, err := h.svc.List(r.Context(), userID, chi.URLParam(r, "fileID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := make([]*ChunkResponse, 0, len(chunks))
	for _, c := range chunks {
		resp = append(resp, chunkToResponse(c))
	}

	api.Success(w, http.StatusOK, resp)
}

type UpdateChunkRequest struct {
	Content string `json:"content"`
}

func (h *ChunkHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	chunk, err := h.svc.Update(r.Context(), userID, chi.URLParam(r, "chunkID"), req.Content)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, chunkToResponse(chunk))
}

func (h *ChunkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.svc.Delete(r.Context(), userID, chi.URLParam(r, "chunkID")); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type SplitChunkRequest struct {
	Offset int `json:"offset"`
}

type SplitChunkResponse struct {
	Original *ChunkResponse `json:"original"`
	Created  *ChunkResponse `json:"created"`
}

func (h *ChunkHandler) Split(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SplitChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Split(r.Context(), userID, chi.URLParam(r, "chunkID"), req.Offset)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SplitChunkResponse{
		Original: chunkToResponse(result.Original),
		Created:  chunkToResponse(result.Created),
	})
}

type MergeChunksRequest struct {
	ChunkIDs []string `json:"chunk_ids"`
}

type MergeChunksResponse struct {
	Survivor   *ChunkResponse `json:"survivor"`
	DeletedIDs []string       `json:"deleted_ids"`
}

func (h *ChunkHandler) Merge(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MergeChunksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.svc.Merge(r.Context(), userID, req.ChunkIDs)
	if err != nil && result == nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, MergeChunksResponse{
		Survivor:   chunkToResponse(result.Survivor),
		DeletedIDs: result.DeletedIDs,
	})
}
