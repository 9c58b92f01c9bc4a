package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/events"
	"github.com/shelf-works/shelf/internal/telemetry"
)

// mergeSeparator joins chunk contents during a merge.
const mergeSeparator = "\n\n"

// ChunkService exposes the chunk editor: update, delete, split, merge.
// Each operation commits independently against a freshly fetched snapshot
// of the file's chunks; concurrent editors are last-write-wins per row.
type ChunkService struct {
	files   FileRepositoryInterface
	chunks  ChunkRepositoryInterface
	bus     *events.Bus
	uuidGen UUIDGenerator
}

func NewChunkService(files FileRepositoryInterface, chunks ChunkRepositoryInterface, bus *events.Bus) *ChunkService {
	return &ChunkService{
		files:   files,
		chunks:  chunks,
		bus:     bus,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewChunkServiceWithUUIDGen creates a ChunkService with a custom UUID
// generator (for testing).
func NewChunkServiceWithUUIDGen(files FileRepositoryInterface, chunks ChunkRepositoryInterface, bus *events.Bus, uuidGen UUIDGenerator) *ChunkService {
	return &ChunkService{
		files:   files,
		chunks:  chunks,
		bus:     bus,
		uuidGen: uuidGen,
	}
}

// List returns a file's chunks in ordering-key order.
func (s *ChunkService) List(ctx context.Context, ownerID, fileID string) ([]*domain.Chunk, error) {
	if _, err := s.authorizeFile(ctx, ownerID, fileID); err != nil {
		return nil, err
	}
	return s.chunks.ListByFile(ctx, fileID)
}

// Update replaces one chunk's content. Empty content is rejected.
func (s *ChunkService) Update(ctx context.Context, ownerID, chunkID, content string) (*domain.Chunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChunkService.Update", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		Operation: "chunk_update",
	})
	defer span.End()

	if strings.TrimSpace(content) == "" {
		return nil, domain.ErrEmptyChunkContent
	}

	chunk, file, err := s.authorizeChunk(ctx, ownerID, chunkID)
	if err != nil {
		return nil, err
	}

	if err := s.chunks.UpdateContent(ctx, chunkID, content); err != nil {
		return nil, err
	}

	s.notifyEdit(ctx, file)

	updated, err := s.chunks.GetByID(ctx, chunkID)
	if err != nil {
		// the write succeeded; fall back to the pre-fetch copy
		chunk.Content = content
		return chunk, nil
	}
	return updated, nil
}

// Delete removes one chunk. Surviving chunks keep their ordering keys.
func (s *ChunkService) Delete(ctx context.Context, ownerID, chunkID string) error {
	ctx, span := telemetry.StartSpan(ctx, "ChunkService.Delete", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		Operation: "chunk_delete",
	})
	defer span.End()

	_, file, err := s.authorizeChunk(ctx, ownerID, chunkID)
	if err != nil {
		return err
	}

	if err := s.chunks.Delete(ctx, chunkID); err != nil {
		return err
	}

	s.notifyEdit(ctx, file)
	return nil
}

// SplitResult reports both halves of a split.
type SplitResult struct {
	Original *domain.Chunk
	Created  *domain.Chunk
}

// Split cuts one chunk at a character offset. The prefix stays in the
// original chunk; the suffix becomes a new chunk keyed strictly between
// the original and its successor, so no other chunk is renumbered.
//
// The suffix is inserted before the original is truncated: if the second
// write fails, the file briefly holds duplicated text instead of losing
// the tail.
func (s *ChunkService) Split(ctx context.Context, ownerID, chunkID string, offset int) (*SplitResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChunkService.Split", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		Operation: "chunk_split",
	})
	defer span.End()

	chunk, file, err := s.authorizeChunk(ctx, ownerID, chunkID)
	if err != nil {
		return nil, err
	}

	runes := []rune(chunk.Content)
	if offset <= 0 || offset >= len(runes) {
		return nil, domain.ErrSplitOffsetOutOfRange
	}
	prefix := string(runes[:offset])
	suffix := string(runes[offset:])

	siblings, err := s.chunks.ListByFile(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	successorKey := chunk.Index + 1
	for _, sibling := range siblings {
		if sibling.Index > chunk.Index {
			successorKey = sibling.Index
			break
		}
	}

	now := time.Now().UTC()
	created := &domain.Chunk{
		ID:        s.uuidGen.NewString(),
		FileID:    file.ID,
		Content:   suffix,
		Index:     domain.SplitKey(chunk.Index, successorKey),
		Metadata:  chunk.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.chunks.Insert(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to insert split chunk: %w", err)
	}

	if err := s.chunks.UpdateContent(ctx, chunkID, prefix); err != nil {
		return nil, fmt.Errorf("failed to truncate split chunk: %w", err)
	}
	chunk.Content = prefix

	s.notifyEdit(ctx, file)

	return &SplitResult{
		Original: chunk,
		Created:  created,
	}, nil
}

// MergeResult reports the surviving chunk and the ids that were removed.
type MergeResult struct {
	Survivor   *domain.Chunk
	DeletedIDs []string
}

// Merge concatenates two or more chunks, in ascending key order, into the
// lowest-keyed one and deletes the rest. Merge is best-effort: the
// survivor's content commits first, and a failed trailing delete leaves a
// stale duplicate behind rather than undoing the merge.
func (s *ChunkService) Merge(ctx context.Context, ownerID string, chunkIDs []string) (*MergeResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChunkService.Merge", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		Operation: "chunk_merge",
	})
	defer span.End()

	unique := make(map[string]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		unique[id] = struct{}{}
	}
	if len(unique) < 2 {
		return nil, domain.ErrMergeSetTooSmall
	}

	members := make([]*domain.Chunk, 0, len(unique))
	var file *domain.File
	for id := range unique {
		chunk, owner, err := s.authorizeChunk(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		if file == nil {
			file = owner
		} else if file.ID != owner.ID {
			return nil, domain.ErrChunkFileMismatch
		}
		members = append(members, chunk)
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].Index < members[j].Index
	})

	contents := make([]string, len(members))
	for i, m := range members {
		contents[i] = m.Content
	}
	merged := strings.Join(contents, mergeSeparator)

	survivor := members[0]
	if err := s.chunks.UpdateContent(ctx, survivor.ID, merged); err != nil {
		return nil, fmt.Errorf("failed to write merged content: %w", err)
	}
	survivor.Content = merged

	result := &MergeResult{Survivor: survivor}
	var deleteErr error
	for _, m := range members[1:] {
		if err := s.chunks.Delete(ctx, m.ID); err != nil {
			// best-effort: the merge stands, a stale duplicate remains
			deleteErr = fmt.Errorf("failed to delete merged chunk %s: %w", m.ID, err)
			continue
		}
		result.DeletedIDs = append(result.DeletedIDs, m.ID)
	}

	s.notifyEdit(ctx, file)

	if deleteErr != nil {
		return result, deleteErr
	}
	return result, nil
}

// authorizeFile verifies the caller owns the file.
func (s *ChunkService) authorizeFile(ctx context.Context, ownerID, fileID string) (*domain.File, error) {
	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, domain.ErrNotOwner
	}
	return file, nil
}

// authorizeChunk verifies the caller owns the chunk's file.
func (s *ChunkService) authorizeChunk(ctx context.Context, ownerID, chunkID string) (*domain.Chunk, *domain.File, error) {
	chunk, err := s.chunks.GetByID(ctx, chunkID)
	if err != nil {
		return nil, nil, err
	}
	file, err := s.authorizeFile(ctx, ownerID, chunk.FileID)
	if err != nil {
		return nil, nil, err
	}
	return chunk, file, nil
}

func (s *ChunkService) notifyEdit(ctx context.Context, file *domain.File) {
	count, err := s.chunks.CountByFile(ctx, file.ID)
	if err != nil {
		count = file.ChunkCount
	}
	s.bus.Publish(events.FileEvent{
		Type:       events.EventChunksEdited,
		FileID:     file.ID,
		OwnerID:    file.OwnerID,
		Status:     string(file.Status),
		Title:      file.Title,
		ChunkCount: count,
	})
}
