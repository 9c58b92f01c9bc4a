package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/events"
	"github.com/shelf-works/shelf/internal/telemetry"
)

// StorageClientInterface is the blob-store surface the services need.
type StorageClientInterface interface {
	PutObject(ctx context.Context, key string, contentType string, data []byte) error
	GetObject(ctx context.Context, key string) ([]byte, error)
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// ProcessingJob describes one extraction request handed to the document
// processor.
type ProcessingJob struct {
	FileID   string
	FileURL  string
	FilePath string
	FileType domain.FileType
}

// ProcessorDispatcher hands a file off for text extraction. The result
// arrives later through the processing callback; Dispatch never waits
// for it.
type ProcessorDispatcher interface {
	Dispatch(ctx context.Context, job ProcessingJob) error
}

// UploadService is the upload coordinator: it creates the file record,
// writes the blob, advances status, and hands the file to the processor.
type UploadService struct {
	files      FileRepositoryInterface
	storage    StorageClientInterface
	dispatcher ProcessorDispatcher
	bus        *events.Bus
	uuidGen    UUIDGenerator
}

func NewUploadService(files FileRepositoryInterface, storage StorageClientInterface, dispatcher ProcessorDispatcher, bus *events.Bus) *UploadService {
	return &UploadService{
		files:      files,
		storage:    storage,
		dispatcher: dispatcher,
		bus:        bus,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// NewUploadServiceWithUUIDGen creates an UploadService with a custom UUID
// generator (for testing).
func NewUploadServiceWithUUIDGen(files FileRepositoryInterface, storage StorageClientInterface, dispatcher ProcessorDispatcher, bus *events.Bus, uuidGen UUIDGenerator) *UploadService {
	return &UploadService{
		files:      files,
		storage:    storage,
		dispatcher: dispatcher,
		bus:        bus,
		uuidGen:    uuidGen,
	}
}

type UploadInput struct {
	OwnerID  string
	Filename string
	MimeType string
	Data     []byte
}

// Upload runs the four-step pipeline for one file: pending record, blob
// write, processing status, processor dispatch.
//
// A blob-write failure deletes the orphaned record and fails the upload.
// A dispatch failure is reported alongside the (non-nil) file: the record
// stays in processing so the attempt can be retried.
func (s *UploadService) Upload(ctx context.Context, input UploadInput) (*domain.File, error) {
	ctx, span := telemetry.StartSpan(ctx, "UploadService.Upload", telemetry.SpanAttributes{
		OwnerID:   input.OwnerID,
		Operation: "upload",
	})
	defer span.End()

	if input.OwnerID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "owner is required")
	}
	if input.Filename == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}

	fileType := domain.InferFileType(input.Filename, input.MimeType)
	now := time.Now().UTC()
	fileID := s.uuidGen.NewString()

	file := domain.NewFile(fileID, input.OwnerID, input.Filename, int64(len(input.Data)), fileType, now)
	if err := domain.ValidateFile(file); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid file", err)
	}

	if err := s.files.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to create file record: %w", err)
	}

	storagePath := fmt.Sprintf("%s/%s.%s", input.OwnerID, fileID, domain.StorageExtension(input.Filename))

	if err := s.storage.PutObject(ctx, storagePath, input.MimeType, input.Data); err != nil {
		// compensate: the record must not outlive a failed blob write
		if delErr := s.files.Delete(ctx, fileID); delErr != nil {
			telemetry.CaptureError(ctx, fmt.Errorf("failed to clean up orphaned file record %s: %w", fileID, delErr))
		}
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	if err := s.files.MarkProcessing(ctx, fileID, storagePath); err != nil {
		return nil, fmt.Errorf("failed to advance file to processing: %w", err)
	}
	file.StoragePath = storagePath
	file.Status = domain.FileStatusProcessing

	s.bus.Publish(events.FileEvent{
		Type:    events.EventFileCreated,
		FileID:  file.ID,
		OwnerID: file.OwnerID,
		Status:  string(file.Status),
		Title:   file.Title,
	})

	if err := s.dispatch(ctx, file); err != nil {
		// Not rolled back: the file stays in processing and the attempt
		// can be re-dispatched via Retry.
		return file, fmt.Errorf("failed to dispatch processing: %w", err)
	}

	return file, nil
}

// UploadOutcome reports the result of one file within a batch.
type UploadOutcome struct {
	Filename string
	File     *domain.File
	Err      error
}

// BatchResult aggregates a multi-file upload. Partial success is a valid
// overall outcome.
type BatchResult struct {
	Succeeded int
	Failed    int
	Outcomes  []UploadOutcome
}

// UploadBatch submits each file through its own independent pipeline; a
// failure in one never blocks the others.
func (s *UploadService) UploadBatch(ctx context.Context, inputs []UploadInput) *BatchResult {
	outcomes := make([]UploadOutcome, len(inputs))

	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input UploadInput) {
			defer wg.Done()
			file, err := s.Upload(ctx, input)
			outcomes[i] = UploadOutcome{
				Filename: input.Filename,
				File:     file,
				Err:      err,
			}
		}(i, input)
	}
	wg.Wait()

	result := &BatchResult{Outcomes: outcomes}
	for _, o := range outcomes {
		if o.Err != nil {
			result.Failed++
		} else {
			result.Succeeded++
		}
	}
	return result
}

// Retry re-dispatches processing for a file that already has stored bytes.
// The file re-enters processing; this is a new attempt, not a regression.
func (s *UploadService) Retry(ctx context.Context, ownerID, fileID string) (*domain.File, error) {
	ctx, span := telemetry.StartSpan(ctx, "UploadService.Retry", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		FileID:    fileID,
		Operation: "retry",
	})
	defer span.End()

	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, domain.ErrNotOwner
	}
	if file.StoragePath == "" {
		return nil, domain.NewDomainError(domain.ErrCodeInvalidOperation, "file has no stored content to process")
	}

	if err := s.files.UpdateStatus(ctx, fileID, domain.FileStatusProcessing); err != nil {
		return nil, err
	}
	file.Status = domain.FileStatusProcessing

	s.bus.Publish(events.FileEvent{
		Type:    events.EventFileUpdated,
		FileID:  file.ID,
		OwnerID: file.OwnerID,
		Status:  string(file.Status),
		Title:   file.Title,
	})

	if err := s.dispatch(ctx, file); err != nil {
		return file, fmt.Errorf("failed to dispatch processing: %w", err)
	}
	return file, nil
}

func (s *UploadService) dispatch(ctx context.Context, file *domain.File) error {
	fileURL, err := s.storage.GenerateDownloadURL(ctx, file.StoragePath)
	if err != nil {
		return fmt.Errorf("failed to generate file URL: %w", err)
	}

	return s.dispatcher.Dispatch(ctx, ProcessingJob{
		FileID:   file.ID,
		FileURL:  fileURL,
		FilePath: file.StoragePath,
		FileType: file.Type,
	})
}
