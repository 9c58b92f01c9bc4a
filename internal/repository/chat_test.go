//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/testutil"
)

func newTestSession(ownerID string, at time.Time) *domain.ChatSession {
	at = at.Truncate(time.Microsecond)
	return &domain.ChatSession{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     "New chat",
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestChatRepository_CreateAndGetSession(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	session := newTestSession("user-1", time.Now().UTC())
	require.NoError(t, repo.CreateSession(ctx, session))

	retrieved, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, retrieved.ID)
	assert.Equal(t, "user-1", retrieved.OwnerID)
	assert.Equal(t, "New chat", retrieved.Title)
}

func TestChatRepository_GetSession_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	_, err := repo.GetSession(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestChatRepository_ListSessions_MostRecentFirst(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	older := newTestSession("user-1", time.Now().UTC().Add(-time.Hour))
	newer := newTestSession("user-1", time.Now().UTC())
	foreign := newTestSession("user-2", time.Now().UTC())
	require.NoError(t, repo.CreateSession(ctx, older))
	require.NoError(t, repo.CreateSession(ctx, newer))
	require.NoError(t, repo.CreateSession(ctx, foreign))

	sessions, err := repo.ListSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, newer.ID, sessions[0].ID)
	assert.Equal(t, older.ID, sessions[1].ID)
}

func TestChatRepository_TouchSession(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	session := newTestSession("user-1", time.Now().UTC().Add(-time.Hour))
	require.NoError(t, repo.CreateSession(ctx, session))

	require.NoError(t, repo.TouchSession(ctx, session.ID))

	retrieved, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.UpdatedAt.After(session.UpdatedAt))
}

func TestChatRepository_DeleteSession_CascadesMessages(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	session := newTestSession("user-1", time.Now().UTC())
	require.NoError(t, repo.CreateSession(ctx, session))
	require.NoError(t, repo.CreateMessage(ctx, &domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      domain.MessageRoleUser,
		Content:   "hello",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}))

	require.NoError(t, repo.DeleteSession(ctx, session.ID))

	messages, err := repo.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	err = repo.DeleteSession(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestChatRepository_Messages_SourcesRoundTrip(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	session := newTestSession("user-1", time.Now().UTC())
	require.NoError(t, repo.CreateSession(ctx, session))

	now := time.Now().UTC().Truncate(time.Microsecond)
	userMsg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      domain.MessageRoleUser,
		Content:   "what does the report say?",
		CreatedAt: now,
	}
	assistantMsg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		Role:      domain.MessageRoleAssistant,
		Content:   "the report covers quarterly numbers",
		Sources: []domain.SourceRef{
			{FileID: "file-1", ChunkIndex: 0.5, Excerpt: "quarterly numbers"},
		},
		CreatedAt: now.Add(time.Second),
	}
	require.NoError(t, repo.CreateMessage(ctx, userMsg))
	require.NoError(t, repo.CreateMessage(ctx, assistantMsg))

	messages, err := repo.ListMessages(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, domain.MessageRoleUser, messages[0].Role)
	assert.Empty(t, messages[0].Sources)

	assert.Equal(t, domain.MessageRoleAssistant, messages[1].Role)
	require.Len(t, messages[1].Sources, 1)
	assert.Equal(t, "file-1", messages[1].Sources[0].FileID)
	assert.Equal(t, 0.5, messages[1].Sources[0].ChunkIndex)
	assert.Equal(t, "quarterly numbers", messages[1].Sources[0].Excerpt)
}
