package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/shelf-works/shelf/internal/api"
	"github.com/shelf-works/shelf/internal/api/middleware"
	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// maxUploadMemory bounds the in-memory portion of multipart parsing;
	// larger parts spill to temp files.
	maxUploadMemory = 32 << 20
)

type FileService interface {
	List(ctx context.Context, input service.ListFilesInput) (*service.ListFilesOutput, error)
	Get(ctx context.Context, ownerID, fileID string) (*domain.File, error)
	Rename(ctx context.Context, ownerID, fileID, title string) (*domain.File, error)
	UpdateMetadata(ctx context.Context, ownerID, fileID string, metadata map[string]any) (*domain.File, error)
	Delete(ctx context.Context, ownerID, fileID string) error
}

type UploadService interface {
	UploadBatch(ctx context.Context, inputs []service.UploadInput) *service.BatchResult
	Retry(ctx context.Context, ownerID, fileID string) (*domain.File, error)
}

type FileHandler struct {
	files   FileService
	uploads UploadService
}

func NewFileHandler(files FileService, uploads UploadService) *FileHandler {
	return &FileHandler{files: files, uploads: uploads}
}

type FileResponse struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	Type       string         `json:"type"`
	Status     string         `json:"status"`
	SizeBytes  int64          `json:"size_bytes"`
	ChunkCount int            `json:"chunk_count"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  string         `json:"created_at"`
	UpdatedAt  string         `json:"updated_at"`
}

func fileToResponse(f *domain.File) *FileResponse {
	return &FileResponse{
		ID:         f.ID,
		Title:      f.Title,
		Type:       string(f.Type),
		Status:     string(f.Status),
		SizeBytes:  f.SizeBytes,
		ChunkCount: f.ChunkCount,
		Metadata:   f.Metadata,
		CreatedAt:  f.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  f.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

type UploadOutcomeResponse struct {
	Filename string        `json:"filename"`
	File     *FileResponse `json:"file,omitempty"`
	Error    string        `json:"error,omitempty"`
}

type UploadBatchResponse struct {
	Succeeded int                     `json:"succeeded"`
	Failed    int                     `json:"failed"`
	Files     []UploadOutcomeResponse `json:"files"`
}

// Upload accepts one or more files as multipart form parts named "files"
// and submits each through its own pipeline. Partial success returns 207.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	parts := r.MultipartForm.File["files"]
	if len(parts) == 0 {
		api.Error(w, http.StatusBadRequest, "no files provided")
		return
	}

	inputs := make([]service.UploadInput, 0, len(parts))
	for _, part := range parts {
		f, err := part.Open()
		if err != nil {
			api.Error(w, http.StatusBadRequest, "could not read uploaded file "+part.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			api.Error(w, http.StatusBadRequest, "could not read uploaded file "+part.Filename)
			return
		}

		inputs = append(inputs, service.UploadInput{
			OwnerID:  userID,
			Filename: part.Filename,
			MimeType: part.Header.Get("Content-Type"),
			Data:     data,
		})
	}

	result := h.uploads.UploadBatch(r.Context(), inputs)

	resp := UploadBatchResponse{
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		Files:     make([]UploadOutcomeResponse, 0, len(result.Outcomes)),
	}
	for _, outcome := range result.Outcomes {
		o := UploadOutcomeResponse{Filename: outcome.Filename}
		if outcome.File != nil {
			o.File = fileToResponse(outcome.File)
		}
		if outcome.Err != nil {
			o.Error = outcome.Err.Error()
		}
		resp.Files = append(resp.Files, o)
	}

	status := http.StatusCreated
	switch {
	case result.Succeeded == 0:
		status = http.StatusBadRequest
	case result.Failed > 0:
		status = http.StatusMultiStatus
	}

	api.Success(w, status, resp)
}

type ListFilesResponse struct {
	Items   []*FileResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"has_more"`
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if parsed > maxPageSize {
			parsed = maxPageSize
		}
		limit = parsed
	}

	out, err := h.files.List(r.Context(), service.ListFilesInput{
		OwnerID: userID,
		Cursor:  r.URL.Query().Get("cursor"),
		Limit:   limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := ListFilesResponse{
		Items:   make([]*FileResponse, 0, len(out.Items)),
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	}
	for _, f := range out.Items {
		resp.Items = append(resp.Items, fileToResponse(f))
	}

	api.Success(w, http.StatusOK, resp)
}

func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	file, err := h.files.Get(r.Context(), userID, chi.URLParam(r, "fileID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, fileToResponse(file))
}

type RenameFileRequest struct {
	Title string `json:"title"`
}

func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RenameFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}

	file, err := h.files.Rename(r.Context(), userID, chi.URLParam(r, "fileID"), req.Title)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, fileToResponse(file))
}

type UpdateFileMetadataRequest struct {
	Metadata map[string]any `json:"metadata"`
}

func (h *FileHandler) UpdateMetadata(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req UpdateFileMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Metadata == nil {
		api.Error(w, http.StatusBadRequest, "metadata is required")
		return
	}

	file, err := h.files.UpdateMetadata(r.Context(), userID, chi.URLParam(r, "fileID"), req.Metadata)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, fileToResponse(file))
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.files.Delete(r.Context(), userID, chi.URLParam(r, "fileID")); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *FileHandler) Retry(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	file, err := h.uploads.Retry(r.Context(), userID, chi.URLParam(r, "fileID"))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, fileToResponse(file))
}
