// Package events provides the in-process change feed that keeps open
// clients in sync after file mutations.
package events

import (
	"sync"
	"time"
)

// EventType classifies a file change notification
type EventType string

const (
	EventFileCreated  EventType = "file.created"
	EventFileUpdated  EventType = "file.updated"
	EventFileDeleted  EventType = "file.deleted"
	EventChunksEdited EventType = "file.chunks_edited"
)

// FileEvent is pushed to every subscriber of the owning user after a
// successful mutation. No ordering is guaranteed across independent
// mutations beyond per-row recency.
type FileEvent struct {
	Type       EventType `json:"type"`
	FileID     string    `json:"file_id"`
	OwnerID    string    `json:"owner_id"`
	Status     string    `json:"status,omitempty"`
	Title      string    `json:"title,omitempty"`
	ChunkCount int       `json:"chunk_count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Bus fans file events out to subscribers keyed by owner id. Slow
// subscribers drop events instead of blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[chan FileEvent]struct{}
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[string]map[chan FileEvent]struct{}),
	}
}

// Subscribe registers a new subscriber for the given owner. The returned
// cancel function must be called to release the channel.
func (b *Bus) Subscribe(ownerID string) (<-chan FileEvent, func()) {
	ch := make(chan FileEvent, 16)

	b.mu.Lock()
	if b.subs[ownerID] == nil {
		b.subs[ownerID] = make(map[chan FileEvent]struct{})
	}
	b.subs[ownerID][ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if set, ok := b.subs[ownerID]; ok {
			if _, ok := set[ch]; ok {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, ownerID)
			}
		}
		b.mu.Unlock()
	}

	return ch, cancel
}

// Publish delivers an event to all subscribers of the event's owner.
func (b *Bus) Publish(ev FileEvent) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[ev.OwnerID] {
		select {
		case ch <- ev:
		default:
			// subscriber is not keeping up, drop
		}
	}
}

// SubscriberCount returns the number of active subscribers for an owner.
func (b *Bus) SubscriberCount(ownerID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[ownerID])
}
