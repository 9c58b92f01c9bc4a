package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/events"
	"github.com/shelf-works/shelf/internal/telemetry"
)

// ChunkPayload is one extracted chunk as delivered by the processor.
type ChunkPayload struct {
	Content  string
	Metadata map[string]any
}

// CompleteInput carries one processing attempt's outcome.
type CompleteInput struct {
	FileID string
	Title  string
	Chunks []ChunkPayload
	Failed bool
	Reason string
}

// ProcessingService applies processor callbacks to file records.
type ProcessingService struct {
	files   FileRepositoryInterface
	chunks  ChunkRepositoryInterface
	bus     *events.Bus
	uuidGen UUIDGenerator
}

func NewProcessingService(files FileRepositoryInterface, chunks ChunkRepositoryInterface, bus *events.Bus) *ProcessingService {
	return &ProcessingService{
		files:   files,
		chunks:  chunks,
		bus:     bus,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewProcessingServiceWithUUIDGen creates a ProcessingService with a custom
// UUID generator (for testing).
func NewProcessingServiceWithUUIDGen(files FileRepositoryInterface, chunks ChunkRepositoryInterface, bus *events.Bus, uuidGen UUIDGenerator) *ProcessingService {
	return &ProcessingService{
		files:   files,
		chunks:  chunks,
		bus:     bus,
		uuidGen: uuidGen,
	}
}

// Complete records a processing attempt's outcome.
//
// The status update commits before chunk insertion and is never rolled
// back: status means "the attempt finished", not "chunks are present". A
// partially failed chunk insert therefore still leaves the file completed,
// and re-delivering the same success payload appends duplicate chunks.
func (s *ProcessingService) Complete(ctx context.Context, input CompleteInput) error {
	ctx, span := telemetry.StartSpan(ctx, "ProcessingService.Complete", telemetry.SpanAttributes{
		FileID:    input.FileID,
		Operation: "processing_complete",
	})
	defer span.End()

	if input.FileID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "file_id is required")
	}

	file, err := s.files.GetByID(ctx, input.FileID)
	if err != nil {
		return err
	}

	if input.Failed {
		if err := s.files.UpdateStatus(ctx, input.FileID, domain.FileStatusFailed); err != nil {
			return fmt.Errorf("failed to mark file failed: %w", err)
		}
		s.notify(file, domain.FileStatusFailed, file.ChunkCount)
		return nil
	}

	if err := s.files.UpdateStatus(ctx, input.FileID, domain.FileStatusCompleted); err != nil {
		return fmt.Errorf("failed to mark file completed: %w", err)
	}

	if input.Title != "" && input.Title != file.Title {
		if err := s.files.UpdateTitle(ctx, input.FileID, input.Title); err != nil {
			telemetry.CaptureError(ctx, fmt.Errorf("failed to update title for file %s: %w", input.FileID, err))
		} else {
			file.Title = input.Title
		}
	}

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, 0, len(input.Chunks))
	for i, payload := range input.Chunks {
		chunks = append(chunks, domain.Chunk{
			ID:        s.uuidGen.NewString(),
			FileID:    input.FileID,
			Content:   payload.Content,
			Index:     float64(i),
			Metadata:  payload.Metadata,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	inserted := len(chunks)
	if len(chunks) > 0 {
		if err := s.chunks.BulkInsert(ctx, chunks); err != nil {
			// status stays completed; visibility beats atomicity here
			telemetry.CaptureError(ctx, fmt.Errorf("chunk insert failed for file %s: %w", input.FileID, err))
			inserted = 0
		}
	}

	s.notify(file, domain.FileStatusCompleted, file.ChunkCount+inserted)
	return nil
}

func (s *ProcessingService) notify(file *domain.File, status domain.FileStatus, chunkCount int) {
	s.bus.Publish(events.FileEvent{
		Type:       events.EventFileUpdated,
		FileID:     file.ID,
		OwnerID:    file.OwnerID,
		Status:     string(status),
		Title:      file.Title,
		ChunkCount: chunkCount,
	})
}
