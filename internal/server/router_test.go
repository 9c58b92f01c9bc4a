package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shelf-works/shelf/internal/api/handlers"
)

type stubResolver struct{}

func (stubResolver) ResolveToken(ctx context.Context, token string) (string, error) {
	return "user-1", nil
}

func newTestRouter() http.Handler {
	return NewRouter(RouterConfig{
		TokenResolver:   stubResolver{},
		FileHandler:     handlers.NewFileHandler(nil, nil),
		ChunkHandler:    handlers.NewChunkHandler(nil),
		CallbackHandler: handlers.NewCallbackHandler(nil),
		ChatHandler:     handlers.NewChatHandler(nil),
		EventsHandler:   handlers.NewEventsHandler(nil),
	})
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRouter_FilesRequireAuth(t *testing.T) {
	router := newTestRouter()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/files"},
		{http.MethodPost, "/files"},
		{http.MethodGet, "/files/file-1/chunks"},
		{http.MethodPut, "/chunks/chunk-1"},
		{http.MethodGet, "/chat/sessions"},
		{http.MethodGet, "/files/events"},
	}

	for _, tt := range paths {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tt.method, tt.path)
	}
}

func TestRouter_CallbackSkipsAuth(t *testing.T) {
	router := newTestRouter()

	// malformed body proves the handler ran without a bearer token
	req := httptest.NewRequest(http.MethodPost, "/callbacks/processing", strings.NewReader(`{invalid`))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
