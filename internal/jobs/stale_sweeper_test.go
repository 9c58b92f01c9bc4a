package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/events"
	"github.com/shelf-works/shelf/internal/pagination"
	"github.com/shelf-works/shelf/internal/service"
)

// MockFileRepository is a mock implementation of service.FileRepositoryInterface
type MockFileRepository struct {
	mock.Mock
}

func (m *MockFileRepository) Create(ctx context.Context, f *domain.File) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFileRepository) GetByID(ctx context.Context, id string) (*domain.File, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.File), args.Error(1)
}

func (m *MockFileRepository) ListByOwner(ctx context.Context, ownerID string, cursor *pagination.Cursor, limit int) (*service.FilePage, error) {
	args := m.Called(ctx, ownerID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FilePage), args.Error(1)
}

func (m *MockFileRepository) UpdateStatus(ctx context.Context, id string, status domain.FileStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockFileRepository) MarkProcessing(ctx context.Context, id, storagePath string) error {
	args := m.Called(ctx, id, storagePath)
	return args.Error(0)
}

func (m *MockFileRepository) UpdateTitle(ctx context.Context, id, title string) error {
	args := m.Called(ctx, id, title)
	return args.Error(0)
}

func (m *MockFileRepository) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	args := m.Called(ctx, id, metadata)
	return args.Error(0)
}

func (m *MockFileRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFileRepository) ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]*domain.File, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.File), args.Error(1)
}

func TestStaleSweeper_Run_FailsStuckFiles(t *testing.T) {
	mockFiles := new(MockFileRepository)
	bus := events.NewBus()
	sweeper := NewStaleSweeper(mockFiles, bus, 30*time.Minute)

	ch, cancel := bus.Subscribe("user-1")
	defer cancel()

	stale := []*domain.File{
		{ID: "file-1", OwnerID: "user-1", Title: "stuck.pdf", Status: domain.FileStatusProcessing},
	}

	mockFiles.On("ListStaleProcessing", mock.Anything, mock.MatchedBy(func(cutoff time.Time) bool {
		return time.Since(cutoff) >= 30*time.Minute
	})).Return(stale, nil)
	mockFiles.On("UpdateStatus", mock.Anything, "file-1", domain.FileStatusFailed).Return(nil)

	err := sweeper.Run(context.Background())

	assert.NoError(t, err)
	mockFiles.AssertExpectations(t)

	ev := <-ch
	assert.Equal(t, events.EventFileUpdated, ev.Type)
	assert.Equal(t, string(domain.FileStatusFailed), ev.Status)
}

func TestStaleSweeper_Run_ContinuesPastFailures(t *testing.T) {
	mockFiles := new(MockFileRepository)
	sweeper := NewStaleSweeper(mockFiles, events.NewBus(), 30*time.Minute)

	stale := []*domain.File{
		{ID: "file-1", OwnerID: "user-1"},
		{ID: "file-2", OwnerID: "user-1"},
	}

	mockFiles.On("ListStaleProcessing", mock.Anything, mock.Anything).Return(stale, nil)
	mockFiles.On("UpdateStatus", mock.Anything, "file-1", domain.FileStatusFailed).
		Return(errors.New("row locked"))
	mockFiles.On("UpdateStatus", mock.Anything, "file-2", domain.FileStatusFailed).Return(nil)

	err := sweeper.Run(context.Background())

	assert.Error(t, err)
	mockFiles.AssertCalled(t, "UpdateStatus", mock.Anything, "file-2", domain.FileStatusFailed)
}

func TestStaleSweeper_Run_NothingToSweep(t *testing.T) {
	mockFiles := new(MockFileRepository)
	sweeper := NewStaleSweeper(mockFiles, events.NewBus(), 30*time.Minute)

	mockFiles.On("ListStaleProcessing", mock.Anything, mock.Anything).Return([]*domain.File{}, nil)

	err := sweeper.Run(context.Background())

	assert.NoError(t, err)
	mockFiles.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

type countingTask struct {
	runs chan struct{}
}

func (c *countingTask) Name() string { return "counting" }

func (c *countingTask) Run(ctx context.Context) error {
	c.runs <- struct{}{}
	return nil
}

func TestWorker_RunsTaskOnInterval(t *testing.T) {
	task := &countingTask{runs: make(chan struct{}, 4)}
	worker := NewWorker(task, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Start(ctx)

	<-task.runs
	<-task.runs
	worker.Stop()
}
