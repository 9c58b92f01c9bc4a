package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/events"
	"github.com/shelf-works/shelf/internal/pagination"
	"github.com/shelf-works/shelf/internal/telemetry"
)

// FileRepositoryInterface defines the repository interface for file persistence
type FileRepositoryInterface interface {
	Create(ctx context.Context, f *domain.File) error
	GetByID(ctx context.Context, id string) (*domain.File, error)
	ListByOwner(ctx context.Context, ownerID string, cursor *pagination.Cursor, limit int) (*FilePage, error)
	UpdateStatus(ctx context.Context, id string, status domain.FileStatus) error
	MarkProcessing(ctx context.Context, id, storagePath string) error
	UpdateTitle(ctx context.Context, id, title string) error
	UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error
	Delete(ctx context.Context, id string) error
	ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]*domain.File, error)
}

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	BulkInsert(ctx context.Context, chunks []domain.Chunk) error
	Insert(ctx context.Context, c *domain.Chunk) error
	GetByID(ctx context.Context, id string) (*domain.Chunk, error)
	ListByFile(ctx context.Context, fileID string) ([]*domain.Chunk, error)
	UpdateContent(ctx context.Context, id, content string) error
	Delete(ctx context.Context, id string) error
	CountByFile(ctx context.Context, fileID string) (int, error)
}

type FilePage struct {
	Items      []*domain.File
	NextCursor string
	HasMore    bool
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// FileService is the registry over file metadata: listing, rename,
// metadata updates, deletion, and change notifications.
type FileService struct {
	files   FileRepositoryInterface
	chunks  ChunkRepositoryInterface
	storage StorageClientInterface
	bus     *events.Bus
}

func NewFileService(files FileRepositoryInterface, chunks ChunkRepositoryInterface, storage StorageClientInterface, bus *events.Bus) *FileService {
	return &FileService{
		files:   files,
		chunks:  chunks,
		storage: storage,
		bus:     bus,
	}
}

type ListFilesInput struct {
	OwnerID string
	Cursor  string
	Limit   int
}

type ListFilesOutput struct {
	Items   []*domain.File
	Cursor  string
	HasMore bool
}

// List returns the owner's files, most recently updated first, each
// annotated with its chunk count.
func (s *FileService) List(ctx context.Context, input ListFilesInput) (*ListFilesOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "FileService.List", telemetry.SpanAttributes{
		OwnerID:   input.OwnerID,
		Operation: "list",
	})
	defer span.End()

	cursor, err := pagination.Decode(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	page, err := s.files.ListByOwner(ctx, input.OwnerID, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListFilesOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// Get returns one file after verifying ownership.
func (s *FileService) Get(ctx context.Context, ownerID, fileID string) (*domain.File, error) {
	return s.authorize(ctx, ownerID, fileID)
}

// Rename updates a file's title.
func (s *FileService) Rename(ctx context.Context, ownerID, fileID, title string) (*domain.File, error) {
	ctx, span := telemetry.StartSpan(ctx, "FileService.Rename", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		FileID:    fileID,
		Operation: "rename",
	})
	defer span.End()

	if title == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "title cannot be empty")
	}

	if _, err := s.authorize(ctx, ownerID, fileID); err != nil {
		return nil, err
	}

	if err := s.files.UpdateTitle(ctx, fileID, title); err != nil {
		return nil, err
	}

	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	s.publish(events.EventFileUpdated, file)
	return file, nil
}

// UpdateMetadata replaces a file's free-form metadata.
func (s *FileService) UpdateMetadata(ctx context.Context, ownerID, fileID string, metadata map[string]any) (*domain.File, error) {
	if _, err := s.authorize(ctx, ownerID, fileID); err != nil {
		return nil, err
	}

	if err := s.files.UpdateMetadata(ctx, fileID, metadata); err != nil {
		return nil, err
	}

	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	s.publish(events.EventFileUpdated, file)
	return file, nil
}

// Delete removes the stored blob, then the file row; chunks cascade with
// the row. Irreversible.
func (s *FileService) Delete(ctx context.Context, ownerID, fileID string) error {
	ctx, span := telemetry.StartSpan(ctx, "FileService.Delete", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		FileID:    fileID,
		Operation: "delete",
	})
	defer span.End()

	file, err := s.authorize(ctx, ownerID, fileID)
	if err != nil {
		return err
	}

	if file.StoragePath != "" && s.storage != nil {
		if err := s.storage.DeleteObject(ctx, file.StoragePath); err != nil {
			return fmt.Errorf("failed to delete stored file: %w", err)
		}
	}

	if err := s.files.Delete(ctx, fileID); err != nil {
		return err
	}

	s.bus.Publish(events.FileEvent{
		Type:    events.EventFileDeleted,
		FileID:  fileID,
		OwnerID: ownerID,
		Title:   file.Title,
	})
	return nil
}

// Subscribe registers a live-update subscriber for the owner's files.
func (s *FileService) Subscribe(ownerID string) (<-chan events.FileEvent, func()) {
	return s.bus.Subscribe(ownerID)
}

// authorize loads a file and verifies the caller owns it. Evaluated at the
// service boundary on every read and write.
func (s *FileService) authorize(ctx context.Context, ownerID, fileID string) (*domain.File, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, domain.ErrNotOwner
	}
	return file, nil
}

func (s *FileService) publish(eventType events.EventType, file *domain.File) {
	s.bus.Publish(events.FileEvent{
		Type:       eventType,
		FileID:     file.ID,
		OwnerID:    file.OwnerID,
		Status:     string(file.Status),
		Title:      file.Title,
		ChunkCount: file.ChunkCount,
	})
}
