//go:build integration

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/events"
	"github.com/shelf-works/shelf/internal/repository"
	"github.com/shelf-works/shelf/internal/testutil"
)

// memStorage keeps blobs in a map so the pipeline runs without S3.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}}
}

func (s *memStorage) PutObject(ctx context.Context, key string, contentType string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

func (s *memStorage) GetObject(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrFileNotFound
	}
	return data, nil
}

func (s *memStorage) GenerateDownloadURL(ctx context.Context, key string) (string, error) {
	return "mem://" + key, nil
}

func (s *memStorage) DeleteObject(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// captureDispatcher records jobs instead of calling a processor.
type captureDispatcher struct {
	mu   sync.Mutex
	jobs []ProcessingJob
}

func (d *captureDispatcher) Dispatch(ctx context.Context, job ProcessingJob) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.jobs = append(d.jobs, job)
	return nil
}

func TestPipelineIntegration_UploadCallbackEdit(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	fileRepo := repository.NewFileRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)

	bus := events.NewBus()
	storage := newMemStorage()
	dispatcher := &captureDispatcher{}

	uploadSvc := NewUploadService(fileRepo, storage, dispatcher, bus)
	processingSvc := NewProcessingService(fileRepo, chunkRepo, bus)
	fileSvc := NewFileService(fileRepo, chunkRepo, storage, bus)
	chunkSvc := NewChunkService(fileRepo, chunkRepo, bus)

	// upload
	file, err := uploadSvc.Upload(ctx, UploadInput{
		OwnerID:  "user-1",
		Filename: "report.txt",
		MimeType: "text/plain",
		Data:     []byte("hello shelf"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusProcessing, file.Status)
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, file.ID, dispatcher.jobs[0].FileID)

	stored, err := storage.GetObject(ctx, file.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello shelf"), stored)

	// processor callback lands chunks and completes the file
	require.NoError(t, processingSvc.Complete(ctx, CompleteInput{
		FileID: file.ID,
		Title:  "Quarterly Report",
		Chunks: []ChunkPayload{
			{Content: "first section"},
			{Content: "second section"},
		},
	}))

	completed, err := fileSvc.Get(ctx, "user-1", file.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusCompleted, completed.Status)
	assert.Equal(t, "Quarterly Report", completed.Title)
	assert.Equal(t, 2, completed.ChunkCount)

	chunks, err := chunkSvc.List(ctx, "user-1", file.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0.0, chunks[0].Index)
	assert.Equal(t, 1.0, chunks[1].Index)

	// split the first chunk between "first " and "section"
	splitRes, err := chunkSvc.Split(ctx, "user-1", chunks[0].ID, 6)
	require.NoError(t, err)
	assert.Equal(t, "first ", splitRes.Original.Content)
	assert.Equal(t, "section", splitRes.Created.Content)
	assert.Equal(t, 0.5, splitRes.Created.Index)

	// merge everything back together in key order
	all, err := chunkSvc.List(ctx, "user-1", file.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)

	ids := []string{all[2].ID, all[0].ID, all[1].ID}
	mergeRes, err := chunkSvc.Merge(ctx, "user-1", ids)
	require.NoError(t, err)
	assert.Equal(t, "first \n\nsection\n\nsecond section", mergeRes.Survivor.Content)
	assert.Len(t, mergeRes.DeletedIDs, 2)

	remaining, err := chunkSvc.List(ctx, "user-1", file.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, mergeRes.Survivor.ID, remaining[0].ID)

	// delete removes the blob and the record
	require.NoError(t, fileSvc.Delete(ctx, "user-1", file.ID))
	_, err = storage.GetObject(ctx, file.StoragePath)
	assert.Error(t, err)
	_, err = fileSvc.Get(ctx, "user-1", file.ID)
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestPipelineIntegration_FailedCallback(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	fileRepo := repository.NewFileRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)

	bus := events.NewBus()
	storage := newMemStorage()
	dispatcher := &captureDispatcher{}

	uploadSvc := NewUploadService(fileRepo, storage, dispatcher, bus)
	processingSvc := NewProcessingService(fileRepo, chunkRepo, bus)
	fileSvc := NewFileService(fileRepo, chunkRepo, storage, bus)

	file, err := uploadSvc.Upload(ctx, UploadInput{
		OwnerID:  "user-1",
		Filename: "broken.pdf",
		MimeType: "application/pdf",
		Data:     []byte("not really a pdf"),
	})
	require.NoError(t, err)

	require.NoError(t, processingSvc.Complete(ctx, CompleteInput{
		FileID: file.ID,
		Failed: true,
		Reason: "unreadable document",
	}))

	failed, err := fileSvc.Get(ctx, "user-1", file.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusFailed, failed.Status)
	assert.Equal(t, 0, failed.ChunkCount)

	// retry re-dispatches the stored blob
	retried, err := uploadSvc.Retry(ctx, "user-1", file.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusProcessing, retried.Status)
	assert.Len(t, dispatcher.jobs, 2)
}
