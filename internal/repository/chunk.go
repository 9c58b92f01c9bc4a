package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelf-works/shelf/internal/domain"
)

// ChunkRepository handles persistence of a file's editable text chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

// BulkInsert persists chunks one by one. There is no surrounding
// transaction: a mid-batch failure leaves the rows inserted so far, which
// the processing pipeline tolerates.
func (r *ChunkRepository) BulkInsert(ctx context.Context, chunks []domain.Chunk) error {
	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		updatedAt := c.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = createdAt
		}
		metadata := c.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		_, err := r.db.Exec(ctx,
			`INSERT INTO file_chunks (id, file_id, content, chunk_index, metadata, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.FileID, c.Content, c.Index, metadata, createdAt, updatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Insert persists a single chunk (used by split).
func (r *ChunkRepository) Insert(ctx context.Context, c *domain.Chunk) error {
	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO file_chunks (id, file_id, content, chunk_index, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.FileID, c.Content, c.Index, metadata, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *ChunkRepository) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	var c domain.Chunk
	err := r.db.QueryRow(ctx,
		`SELECT id, file_id, content, chunk_index, metadata, created_at, updated_at
		 FROM file_chunks WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.FileID, &c.Content, &c.Index, &c.Metadata, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ListByFile returns the file's chunks ordered by their fractional key.
func (r *ChunkRepository) ListByFile(ctx context.Context, fileID string) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, file_id, content, chunk_index, metadata, created_at, updated_at
		 FROM file_chunks WHERE file_id = $1
		 ORDER BY chunk_index ASC, created_at ASC`,
		fileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.ID, &c.FileID, &c.Content, &c.Index, &c.Metadata, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		results = append(results, &c)
	}
	return results, rows.Err()
}

func (r *ChunkRepository) UpdateContent(ctx context.Context, id, content string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE file_chunks SET content = $2, updated_at = $3 WHERE id = $1`,
		id, content, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// Delete removes one chunk. Surviving siblings keep their ordering keys.
func (r *ChunkRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM file_chunks WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

func (r *ChunkRepository) CountByFile(ctx context.Context, fileID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM file_chunks WHERE file_id = $1`,
		fileID,
	).Scan(&count)
	return count, err
}
