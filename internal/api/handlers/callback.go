package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shelf-works/shelf/internal/api"
	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/service"
)

type ProcessingService interface {
	Complete(ctx context.Context, input service.CompleteInput) error
}

// CallbackHandler receives results from the document processor. It sits
// outside user auth: the processor is not a user.
type CallbackHandler struct {
	svc ProcessingService
}

func NewCallbackHandler(svc ProcessingService) *CallbackHandler {
	return &CallbackHandler{svc: svc}
}

type callbackChunk struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ProcessingCallbackRequest is the processor's wire format. Content is
// the full extracted text; it is accepted but not stored, chunks are the
// unit of persistence. A status of "failed" marks the attempt failed with
// error as the reason; any other status (or none) means success.
type ProcessingCallbackRequest struct {
	FileID  string          `json:"file_id"`
	Content string          `json:"content,omitempty"`
	Chunks  []callbackChunk `json:"chunks,omitempty"`
	Title   string          `json:"title,omitempty"`
	Status  string          `json:"status,omitempty"`
	Error   string          `json:"error,omitempty"`
}

const callbackStatusFailed = "failed"

// Complete handles POST /callbacks/processing. The processor retries on
// non-2xx, so only genuinely retryable situations may return one: a
// malformed payload gets 400, a datastore error 500, and everything else
// 200. A callback for an unknown file is acknowledged and dropped; no
// retry can make the file appear.
func (h *CallbackHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req ProcessingCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FileID == "" {
		api.Error(w, http.StatusBadRequest, "file_id is required")
		return
	}

	chunks := make([]service.ChunkPayload, 0, len(req.Chunks))
	for _, c := range req.Chunks {
		chunks = append(chunks, service.ChunkPayload{
			Content:  c.Content,
			Metadata: c.Metadata,
		})
	}

	err := h.svc.Complete(r.Context(), service.CompleteInput{
		FileID: req.FileID,
		Title:  req.Title,
		Chunks: chunks,
		Failed: req.Status == callbackStatusFailed,
		Reason: req.Error,
	})
	if err != nil {
		if errors.Is(err, domain.ErrFileNotFound) {
			api.Success(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "accepted"})
}
