package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelf-works/shelf/internal/domain"
	"github.com/shelf-works/shelf/internal/pagination"
	"github.com/shelf-works/shelf/internal/service"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type FileRepository struct {
	db dbtx
}

func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{db: pool}
}

const fileColumns = `f.id, f.owner_id, f.title, f.storage_path, f.size_bytes, f.file_type, f.status, f.metadata, f.created_at, f.updated_at,
	 (SELECT COUNT(*) FROM file_chunks c WHERE c.file_id = f.id) AS chunk_count`

func (r *FileRepository) Create(ctx context.Context, f *domain.File) error {
	metadata := f.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO files (id, owner_id, title, storage_path, size_bytes, file_type, status, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		f.ID, f.OwnerID, f.Title, nullableString(f.StoragePath), f.SizeBytes, f.Type, f.Status, metadata, f.CreatedAt, f.UpdatedAt,
	)
	return err
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*domain.File, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+fileColumns+` FROM files f WHERE f.id = $1`,
		id,
	)
	return scanFileRow(row)
}

// ListByOwner returns the owner's files ordered by most recent update,
// keyset-paginated on (updated_at, id).
func (r *FileRepository) ListByOwner(ctx context.Context, ownerID string, cursor *pagination.Cursor, limit int) (*service.FilePage, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+fileColumns+`
			 FROM files f
			 WHERE f.owner_id = $1 AND (f.updated_at, f.id) < ($2, $3)
			 ORDER BY f.updated_at DESC, f.id DESC
			 LIMIT $4`,
			ownerID, cursor.UpdatedAt, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+fileColumns+`
			 FROM files f
			 WHERE f.owner_id = $1
			 ORDER BY f.updated_at DESC, f.id DESC
			 LIMIT $2`,
			ownerID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanFileRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.Encode(last.ID, last.UpdatedAt)
	}

	return &service.FilePage{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// UpdateStatus changes a file's processing status. Transitions back to
// pending are refused at the SQL level so a terminal file can never be
// observed regressing.
func (r *FileRepository) UpdateStatus(ctx context.Context, id string, status domain.FileStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE files SET status = $2, updated_at = $3
		 WHERE id = $1 AND ($2 <> 'pending' OR status = 'pending')`,
		id, status, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrInvalidStatusTransition
	}
	return nil
}

// MarkProcessing records the storage path and advances the file to
// processing in one statement.
func (r *FileRepository) MarkProcessing(ctx context.Context, id, storagePath string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE files SET storage_path = $2, status = 'processing', updated_at = $3 WHERE id = $1`,
		id, storagePath, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func (r *FileRepository) UpdateTitle(ctx context.Context, id, title string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE files SET title = $2, updated_at = $3 WHERE id = $1`,
		id, title, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func (r *FileRepository) UpdateMetadata(ctx context.Context, id string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE files SET metadata = $2, updated_at = $3 WHERE id = $1`,
		id, metadata, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

// Delete removes the file row; chunks go with it via ON DELETE CASCADE.
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM files WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

// ListStaleProcessing returns files that entered processing before the
// cutoff and never received a callback.
func (r *FileRepository) ListStaleProcessing(ctx context.Context, cutoff time.Time) ([]*domain.File, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+fileColumns+`
		 FROM files f
		 WHERE f.status = 'processing' AND f.updated_at < $1
		 ORDER BY f.updated_at ASC`,
		cutoff,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFileRows(rows)
}

func scanFileRow(row pgx.Row) (*domain.File, error) {
	var f domain.File
	var storagePath *string
	err := row.Scan(&f.ID, &f.OwnerID, &f.Title, &storagePath, &f.SizeBytes, &f.Type, &f.Status, &f.Metadata, &f.CreatedAt, &f.UpdatedAt, &f.ChunkCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, err
	}
	if storagePath != nil {
		f.StoragePath = *storagePath
	}
	return &f, nil
}

func scanFileRows(rows pgx.Rows) ([]*domain.File, error) {
	var results []*domain.File
	for rows.Next() {
		var f domain.File
		var storagePath *string
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Title, &storagePath, &f.SizeBytes, &f.Type, &f.Status, &f.Metadata, &f.CreatedAt, &f.UpdatedAt, &f.ChunkCount); err != nil {
			return nil, err
		}
		if storagePath != nil {
			f.StoragePath = *storagePath
		}
		results = append(results, &f)
	}
	return results, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
