package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/shelf-works/shelf/internal/api"
	"github.com/shelf-works/shelf/internal/api/handlers"
	"github.com/shelf-works/shelf/internal/api/middleware"
)

type RouterConfig struct {
	TokenResolver   middleware.TokenResolver
	FileHandler     *handlers.FileHandler
	ChunkHandler    *handlers.ChunkHandler
	CallbackHandler *handlers.CallbackHandler
	ChatHandler     *handlers.ChatHandler
	EventsHandler   *handlers.EventsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// uploads carry whole documents; everything else is small JSON
	const maxBodyBytes int64 = 50 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// the processor is not a user; its callback sits outside bearer auth
	r.Post("/callbacks/processing", cfg.CallbackHandler.Complete)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.TokenResolver))

		r.Route("/files", func(r chi.Router) {
			r.Post("/", cfg.FileHandler.Upload)
			r.Get("/", cfg.FileHandler.List)
			r.Get("/events", cfg.EventsHandler.Stream)
			r.Get("/{fileID}", cfg.FileHandler.Get)
			r.Patch("/{fileID}", cfg.FileHandler.Rename)
			r.Put("/{fileID}/metadata", cfg.FileHandler.UpdateMetadata)
			r.Delete("/{fileID}", cfg.FileHandler.Delete)
			r.Post("/{fileID}/retry", cfg.FileHandler.Retry)
			r.Get("/{fileID}/chunks", cfg.ChunkHandler.List)
		})

		r.Route("/chunks", func(r chi.Router) {
			r.Put("/{chunkID}", cfg.ChunkHandler.Update)
			r.Delete("/{chunkID}", cfg.ChunkHandler.Delete)
			r.Post("/{chunkID}/split", cfg.ChunkHandler.Split)
			r.Post("/merge", cfg.ChunkHandler.Merge)
		})

		r.Route("/chat/sessions", func(r chi.Router) {
			r.Post("/", cfg.ChatHandler.CreateSession)
			r.Get("/", cfg.ChatHandler.ListSessions)
			r.Delete("/{sessionID}", cfg.ChatHandler.DeleteSession)
			r.Get("/{sessionID}/messages", cfg.ChatHandler.ListMessages)
			r.Post("/{sessionID}/messages", cfg.ChatHandler.Send)
		})
	})

	return r
}
