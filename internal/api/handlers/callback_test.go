package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/service"
)

type MockProcessingService struct {
	mock.Mock
}

func (m *MockProcessingService) Complete(ctx context.Context, input service.CompleteInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

func TestCallbackHandler_Complete_Success(t *testing.T) {
	mockSvc := new(MockProcessingService)
	handler := NewCallbackHandler(mockSvc)

	mockSvc.On("Complete", mock.Anything, mock.MatchedBy(func(input service.CompleteInput) bool {
		return input.FileID == "file-1" && len(input.Chunks) == 2 && !input.Failed
	})).Return(nil)

	body := `{"file_id":"file-1","title":"Report","chunks":[{"content":"first"},{"content":"second"}]}`
	req := httptest.NewRequest(http.MethodPost, "/callbacks/processing", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Complete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestCallbackHandler_Complete_FailureReport(t *testing.T) {
	mockSvc := new(MockProcessingService)
	handler := NewCallbackHandler(mockSvc)

	mockSvc.On("Complete", mock.Anything, mock.MatchedBy(func(input service.CompleteInput) bool {
		return input.FileID == "file-1" && input.Failed && input.Reason == "unreadable document"
	})).Return(nil)

	body := `{"file_id":"file-1","status":"failed","error":"unreadable document"}`
	req := httptest.NewRequest(http.MethodPost, "/callbacks/processing", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Complete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestCallbackHandler_Complete_NonFailedStatusIsSuccess(t *testing.T) {
	mockSvc := new(MockProcessingService)
	handler := NewCallbackHandler(mockSvc)

	mockSvc.On("Complete", mock.Anything, mock.MatchedBy(func(input service.CompleteInput) bool {
		return input.FileID == "file-1" && !input.Failed && len(input.Chunks) == 1
	})).Return(nil)

	// extracted full text rides along but only chunks persist
	body := `{"file_id":"file-1","status":"ok","content":"full text","chunks":[{"content":"full text"}]}`
	req := httptest.NewRequest(http.MethodPost, "/callbacks/processing", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Complete(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestCallbackHandler_Complete_MissingFileID(t *testing.T) {
	mockSvc := new(MockProcessingService)
	handler := NewCallbackHandler(mockSvc)

	body := `{"chunks":[{"content":"text"}]}`
	req := httptest.NewRequest(http.MethodPost, "/callbacks/processing", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Complete(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "file_id is required")
	mockSvc.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestCallbackHandler_Complete_InvalidJSON(t *testing.T) {
	handler := NewCallbackHandler(new(MockProcessingService))

	req := httptest.NewRequest(http.MethodPost, "/callbacks/processing", bytes.NewReader([]byte(`{invalid`)))
	w := httptest.NewRecorder()

	handler.Complete(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallbackHandler_Complete_UnknownFileAcknowledged(t *testing.T) {
	mockSvc := new(MockProcessingService)
	handler := NewCallbackHandler(mockSvc)

	mockSvc.On("Complete", mock.Anything, mock.Anything).Return(domain.ErrFileNotFound)

	body := `{"file_id":"missing"}`
	req := httptest.NewRequest(http.MethodPost, "/callbacks/processing", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Complete(w, req)

	// retrying cannot make the file appear, so don't ask for one
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}

func TestCallbackHandler_Complete_DatastoreError(t *testing.T) {
	mockSvc := new(MockProcessingService)
	handler := NewCallbackHandler(mockSvc)

	mockSvc.On("Complete", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	body := `{"file_id":"file-1"}`
	req := httptest.NewRequest(http.MethodPost, "/callbacks/processing", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Complete(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
