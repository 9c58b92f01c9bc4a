package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shelf-works/shelf/internal/api"
	"github.com/shelf-works/shelf/internal/api/middleware"
	"github.com/shelf-works/shelf/internal/events"
)

// keepAliveInterval bounds how long an idle SSE connection goes without
// traffic; intermediaries drop silent connections.
const keepAliveInterval = 25 * time.Second

type EventSubscriber interface {
	Subscribe(ownerID string) (<-chan events.FileEvent, func())
}

// EventsHandler streams file change notifications over server-sent
// events. Each client only sees events for its own files.
type EventsHandler struct {
	subscriber EventSubscriber
}

func NewEventsHandler(subscriber EventSubscriber) *EventsHandler {
	return &EventsHandler{subscriber: subscriber}
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		api.Error(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ch, cancel := h.subscriber.Subscribe(userID)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload)
			flusher.Flush()
		}
	}
}
