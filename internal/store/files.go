package store

import (
	"context"
	"database/sql"
	"errors"

	gderrors "github.com/standardbeagle/gildash/internal/errors"
	"github.com/standardbeagle/gildash/internal/types"
)

// FileRepo is the files-table repository (spec.md §4.1, §6).
type FileRepo struct{}

// NewFileRepo returns a FileRepo. Every method takes an Execer so calls
// compose inside or outside a Store transaction transparently.
func NewFileRepo() *FileRepo { return &FileRepo{} }

// Get returns one file's record, or (nil, nil) if absent.
func (r *FileRepo) Get(ctx context.Context, ex Execer, project, path string) (*types.FileRecord, error) {
	row := ex.QueryRowContext(ctx, `
		SELECT project, file_path, mtime_ms, size, content_hash, updated_at, line_count
		FROM files WHERE project = ? AND file_path = ?`, project, path)

	var rec types.FileRecord
	var lineCount sql.NullInt64
	err := row.Scan(&rec.Project, &rec.Path, &rec.MTimeMs, &rec.Size, &rec.ContentHash, &rec.UpdatedAt, &lineCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, gderrors.New(gderrors.IO, "FileRepo.Get", err).WithPath(project, path)
	}
	if lineCount.Valid {
		n := int(lineCount.Int64)
		rec.LineCount = &n
	}
	return &rec, nil
}

// Upsert inserts or replaces one file's metadata row.
func (r *FileRepo) Upsert(ctx context.Context, ex Execer, rec types.FileRecord) error {
	var lineCount any
	if rec.LineCount != nil {
		lineCount = *rec.LineCount
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO files (project, file_path, mtime_ms, size, content_hash, updated_at, line_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project, file_path) DO UPDATE SET
			mtime_ms = excluded.mtime_ms,
			size = excluded.size,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at,
			line_count = excluded.line_count`,
		rec.Project, rec.Path, rec.MTimeMs, rec.Size, rec.ContentHash, rec.UpdatedAt, lineCount)
	if err != nil {
		return gderrors.New(gderrors.IO, "FileRepo.Upsert", err).WithPath(rec.Project, rec.Path)
	}
	return nil
}

// Delete removes one file's row; symbols/relations cascade (spec.md §4.3).
func (r *FileRepo) Delete(ctx context.Context, ex Execer, project, path string) error {
	_, err := ex.ExecContext(ctx, `DELETE FROM files WHERE project = ? AND file_path = ?`, project, path)
	if err != nil {
		return gderrors.New(gderrors.IO, "FileRepo.Delete", err).WithPath(project, path)
	}
	return nil
}

// ListAll returns every file record for project, ordered by path.
func (r *FileRepo) ListAll(ctx context.Context, ex Execer, project string) ([]types.FileRecord, error) {
	rows, err := ex.QueryContext(ctx, `
		SELECT project, file_path, mtime_ms, size, content_hash, updated_at, line_count
		FROM files WHERE project = ? ORDER BY file_path`, project)
	if err != nil {
		return nil, gderrors.New(gderrors.IO, "FileRepo.ListAll", err)
	}
	defer rows.Close()

	var out []types.FileRecord
	for rows.Next() {
		var rec types.FileRecord
		var lineCount sql.NullInt64
		if err := rows.Scan(&rec.Project, &rec.Path, &rec.MTimeMs, &rec.Size, &rec.ContentHash, &rec.UpdatedAt, &lineCount); err != nil {
			return nil, gderrors.New(gderrors.IO, "FileRepo.ListAll:scan", err)
		}
		if lineCount.Valid {
			n := int(lineCount.Int64)
			rec.LineCount = &n
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// MapByPath returns ListAll keyed by path, for change-detection diffing
// against a fresh directory walk (spec.md §4.6 full index).
func (r *FileRepo) MapByPath(ctx context.Context, ex Execer, project string) (map[string]types.FileRecord, error) {
	all, err := r.ListAll(ctx, ex, project)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.FileRecord, len(all))
	for _, rec := range all {
		out[rec.Path] = rec
	}
	return out, nil
}
