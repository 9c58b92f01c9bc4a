package processor

import (
	"context"
	"time"

	"github.com/shelf-works/shelf/internal/extract"
	"github.com/shelf-works/shelf/internal/service"
	"github.com/shelf-works/shelf/internal/telemetry"
)

const localTimeout = 5 * time.Minute

// LocalDispatcher extracts text in-process when no external processor is
// configured. Dispatch returns immediately; extraction runs in a
// goroutine and reports through the same completion path the callback
// endpoint uses, so files move through identical status transitions
// either way.
type LocalDispatcher struct {
	storage    service.StorageClientInterface
	processing *service.ProcessingService
	chunkCfg   extract.ChunkConfig
}

func NewLocalDispatcher(storage service.StorageClientInterface, processing *service.ProcessingService) *LocalDispatcher {
	return &LocalDispatcher{
		storage:    storage,
		processing: processing,
		chunkCfg:   extract.DefaultChunkConfig(),
	}
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, job service.ProcessingJob) error {
	go d.run(job)
	return nil
}

func (d *LocalDispatcher) run(job service.ProcessingJob) {
	// detached from the request context: the upload response does not
	// wait for extraction
	ctx, cancel := context.WithTimeout(context.Background(), localTimeout)
	defer cancel()

	data, err := d.storage.GetObject(ctx, job.FilePath)
	if err != nil {
		d.fail(ctx, job.FileID, "could not read stored file: "+err.Error())
		return
	}

	text, err := extract.Text(job.FileType, data)
	if err != nil {
		d.fail(ctx, job.FileID, err.Error())
		return
	}

	pieces := extract.ChunkText(text, d.chunkCfg)
	chunks := make([]service.ChunkPayload, len(pieces))
	for i, piece := range pieces {
		chunks[i] = service.ChunkPayload{Content: piece}
	}

	err = d.processing.Complete(ctx, service.CompleteInput{
		FileID: job.FileID,
		Title:  extract.TitleFromText(text),
		Chunks: chunks,
	})
	if err != nil {
		telemetry.CaptureError(ctx, err)
	}
}

func (d *LocalDispatcher) fail(ctx context.Context, fileID, reason string) {
	err := d.processing.Complete(ctx, service.CompleteInput{
		FileID: fileID,
		Failed: true,
		Reason: reason,
	})
	if err != nil {
		telemetry.CaptureError(ctx, err)
	}
}
