package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/events"
	"github.com/shelf-works/shelf/internal/service"
)

// StaleSweeper fails files stuck in processing past the deadline. A
// processor that never calls back would otherwise leave records in
// processing forever.
type StaleSweeper struct {
	files    service.FileRepositoryInterface
	bus      *events.Bus
	deadline time.Duration
}

func NewStaleSweeper(files service.FileRepositoryInterface, bus *events.Bus, deadline time.Duration) *StaleSweeper {
	return &StaleSweeper{
		files:    files,
		bus:      bus,
		deadline: deadline,
	}
}

func (s *StaleSweeper) Name() string { return "stale-sweeper" }

// Run sweeps every file whose processing attempt started before the
// deadline cutoff. Each file fails independently; one bad row never
// blocks the rest of the sweep.
func (s *StaleSweeper) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.deadline)

	stale, err := s.files.ListStaleProcessing(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stale files: %w", err)
	}

	var firstErr error
	for _, file := range stale {
		if err := s.files.UpdateStatus(ctx, file.ID, domain.FileStatusFailed); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to sweep file %s: %w", file.ID, err)
			}
			continue
		}
		log.Printf("swept stale file %s (processing since %v)", file.ID, file.UpdatedAt)

		s.bus.Publish(events.FileEvent{
			Type:    events.EventFileUpdated,
			FileID:  file.ID,
			OwnerID: file.OwnerID,
			Status:  string(domain.FileStatusFailed),
			Title:   file.Title,
		})
	}
	return firstErr
}
