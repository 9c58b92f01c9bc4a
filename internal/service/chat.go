package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/telemetry"
)

const (
	// excerptRunes bounds the citation excerpt taken from a chunk.
	excerptRunes = 160

	// contextFileLimit caps how many recent files feed a chat turn.
	contextFileLimit = 5

	// contextChunkLimit caps chunks taken per file.
	contextChunkLimit = 3
)

// ChatRepositoryInterface defines chat persistence operations
type ChatRepositoryInterface interface {
	CreateSession(ctx context.Context, s *domain.ChatSession) error
	GetSession(ctx context.Context, id string) (*domain.ChatSession, error)
	ListSessions(ctx context.Context, ownerID string) ([]*domain.ChatSession, error)
	TouchSession(ctx context.Context, id string) error
	DeleteSession(ctx context.Context, id string) error
	CreateMessage(ctx context.Context, m *domain.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string) ([]*domain.ChatMessage, error)
}

// ChunkContext is one chunk handed to a Responder as grounding material.
type ChunkContext struct {
	FileID     string
	FileTitle  string
	ChunkIndex float64
	Content    string
}

// Responder produces an assistant reply from a user query and the chunk
// contexts gathered for it. Implementations may ignore the contexts.
type Responder interface {
	Respond(ctx context.Context, query string, contexts []ChunkContext) (string, error)
}

// ChatService runs sessions and turns. Every assistant reply carries
// source citations for the chunks that were in scope when it was made.
type ChatService struct {
	sessions  ChatRepositoryInterface
	files     FileRepositoryInterface
	chunks    ChunkRepositoryInterface
	responder Responder
	uuidGen   UUIDGenerator
}

func NewChatService(sessions ChatRepositoryInterface, files FileRepositoryInterface, chunks ChunkRepositoryInterface, responder Responder) *ChatService {
	return &ChatService{
		sessions:  sessions,
		files:     files,
		chunks:    chunks,
		responder: responder,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewChatServiceWithUUIDGen creates a ChatService with a custom UUID
// generator (for testing).
func NewChatServiceWithUUIDGen(sessions ChatRepositoryInterface, files FileRepositoryInterface, chunks ChunkRepositoryInterface, responder Responder, uuidGen UUIDGenerator) *ChatService {
	return &ChatService{
		sessions:  sessions,
		files:     files,
		chunks:    chunks,
		responder: responder,
		uuidGen:   uuidGen,
	}
}

// CreateSession opens a new session for the owner.
func (s *ChatService) CreateSession(ctx context.Context, ownerID, title string) (*domain.ChatSession, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.CreateSession", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		Operation: "chat_create_session",
	})
	defer span.End()

	if strings.TrimSpace(title) == "" {
		title = "New chat"
	}

	now := time.Now().UTC()
	session := &domain.ChatSession{
		ID:        s.uuidGen.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns the owner's sessions, most recently active first.
func (s *ChatService) ListSessions(ctx context.Context, ownerID string) ([]*domain.ChatSession, error) {
	return s.sessions.ListSessions(ctx, ownerID)
}

// ListMessages returns a session's transcript in chronological order.
func (s *ChatService) ListMessages(ctx context.Context, ownerID, sessionID string) ([]*domain.ChatMessage, error) {
	if _, err := s.authorizeSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}
	return s.sessions.ListMessages(ctx, sessionID)
}

// DeleteSession removes a session and its messages.
func (s *ChatService) DeleteSession(ctx context.Context, ownerID, sessionID string) error {
	if _, err := s.authorizeSession(ctx, ownerID, sessionID); err != nil {
		return err
	}
	return s.sessions.DeleteSession(ctx, sessionID)
}

// Send runs one turn: the user message is persisted first, then the
// responder is invoked over chunks from the selected files (or the owner's
// most recent completed files when none are named), and the assistant reply
// is persisted with citations. A responder failure leaves the user message
// in the transcript.
func (s *ChatService) Send(ctx context.Context, ownerID, sessionID, query string, fileIDs []string) (*domain.ChatMessage, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.Send", telemetry.SpanAttributes{
		OwnerID:   ownerID,
		Operation: "chat_send",
	})
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "message content is required")
	}

	if _, err := s.authorizeSession(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}

	userMsg := &domain.ChatMessage{
		ID:        s.uuidGen.NewString(),
		SessionID: sessionID,
		Role:      domain.MessageRoleUser,
		Content:   query,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.CreateMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	var contexts []ChunkContext
	var ctxErr error
	if len(fileIDs) > 0 {
		contexts, ctxErr = s.gatherSelectedContexts(ctx, ownerID, fileIDs)
	} else {
		contexts, ctxErr = s.gatherContexts(ctx, ownerID)
	}
	if ctxErr != nil {
		telemetry.CaptureError(ctx, ctxErr)
		contexts = nil
	}

	reply, err := s.responder.Respond(ctx, query, contexts)
	if err != nil {
		return nil, err
	}

	assistantMsg := &domain.ChatMessage{
		ID:        s.uuidGen.NewString(),
		SessionID: sessionID,
		Role:      domain.MessageRoleAssistant,
		Content:   reply,
		Sources:   sourceRefs(contexts),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.sessions.CreateMessage(ctx, assistantMsg); err != nil {
		return nil, err
	}

	if err := s.sessions.TouchSession(ctx, sessionID); err != nil {
		telemetry.CaptureError(ctx, err)
	}

	return assistantMsg, nil
}

// gatherContexts pulls leading chunks from the owner's most recently
// updated completed files.
func (s *ChatService) gatherContexts(ctx context.Context, ownerID string) ([]ChunkContext, error) {
	page, err := s.files.ListByOwner(ctx, ownerID, nil, contextFileLimit*2)
	if err != nil {
		return nil, err
	}

	var contexts []ChunkContext
	taken := 0
	for _, file := range page.Items {
		if file.Status != domain.FileStatusCompleted {
			continue
		}
		if taken >= contextFileLimit {
			break
		}
		taken++

		chunks, err := s.chunks.ListByFile(ctx, file.ID)
		if err != nil {
			return nil, err
		}
		for i, chunk := range chunks {
			if i >= contextChunkLimit {
				break
			}
			contexts = append(contexts, ChunkContext{
				FileID:     file.ID,
				FileTitle:  file.Title,
				ChunkIndex: chunk.Index,
				Content:    chunk.Content,
			})
		}
	}
	return contexts, nil
}

// gatherSelectedContexts pulls leading chunks from the named files. Files
// that are not the caller's, not found, or not yet completed are skipped
// rather than failing the turn.
func (s *ChatService) gatherSelectedContexts(ctx context.Context, ownerID string, fileIDs []string) ([]ChunkContext, error) {
	var contexts []ChunkContext
	for _, fileID := range fileIDs {
		file, err := s.files.GetByID(ctx, fileID)
		if err != nil {
			if errors.Is(err, domain.ErrFileNotFound) {
				continue
			}
			return nil, err
		}
		if file.OwnerID != ownerID || file.Status != domain.FileStatusCompleted {
			continue
		}

		chunks, err := s.chunks.ListByFile(ctx, file.ID)
		if err != nil {
			return nil, err
		}
		for i, chunk := range chunks {
			if i >= contextChunkLimit {
				break
			}
			contexts = append(contexts, ChunkContext{
				FileID:     file.ID,
				FileTitle:  file.Title,
				ChunkIndex: chunk.Index,
				Content:    chunk.Content,
			})
		}
	}
	return contexts, nil
}

func (s *ChatService) authorizeSession(ctx context.Context, ownerID, sessionID string) (*domain.ChatSession, error) {
	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.OwnerID != ownerID {
		return nil, domain.ErrNotOwner
	}
	return session, nil
}

func sourceRefs(contexts []ChunkContext) []domain.SourceRef {
	if len(contexts) == 0 {
		return nil
	}
	refs := make([]domain.SourceRef, len(contexts))
	for i, c := range contexts {
		refs[i] = domain.SourceRef{
			FileID:     c.FileID,
			ChunkIndex: c.ChunkIndex,
			Excerpt:    truncateRunes(c.Content, excerptRunes),
		}
	}
	return refs
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
