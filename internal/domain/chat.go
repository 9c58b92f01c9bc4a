package domain

import "time"

// MessageRole represents who authored a chat message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// ChatSession groups messages for one owner
type ChatSession struct {
	ID        string
	OwnerID   string
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SourceRef cites a chunk that informed an assistant message
type SourceRef struct {
	FileID     string  `json:"file_id"`
	ChunkIndex float64 `json:"chunk_index"`
	Excerpt    string  `json:"excerpt"`
}

// ChatMessage is one turn within a session
type ChatMessage struct {
	ID        string
	SessionID string
	Role      MessageRole
	Content   string
	Sources   []SourceRef
	CreatedAt time.Time
}
