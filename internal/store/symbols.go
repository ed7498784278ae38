package store

import (
	"context"
	"database/sql"
	"strings"

	gderrors "github.com/standardbeagle/gildash/internal/errors"
	"github.com/standardbeagle/gildash/internal/types"
)

// SymbolRepo is the symbols-table repository, plus its symbols_fts
// mirror for prefix/exact name search (spec.md §4.4, §6).
//
// Grounded on josephgoksu-TaskWing's internal/codeintel/repository.go
// FTS sanitization idiom: strip characters FTS5's query syntax treats
// specially before building a MATCH expression.
type SymbolRepo struct{}

// NewSymbolRepo returns a SymbolRepo.
func NewSymbolRepo() *SymbolRepo { return &SymbolRepo{} }

// ReplaceFileSymbols replaces every symbol row for (project, file) with
// rows, but only if contentHash differs from the hash this repo last
// indexed that file with — the content-hash short-circuit spec.md
// §4.4 and §8 require for idempotent re-indexing of an unchanged file.
// This is tracked independently of files.content_hash, since by the
// time the symbol indexer runs, Pass 1 has already upserted the file
// row with the new hash (spec.md §4.6 steps 3/5).
func (r *SymbolRepo) ReplaceFileSymbols(ctx context.Context, ex Execer, project, file, contentHash string, rows []types.SymbolRecord) error {
	var lastHash sql.NullString
	row := ex.QueryRowContext(ctx, `SELECT content_hash FROM symbol_index_state WHERE project = ? AND file_path = ?`, project, file)
	_ = row.Scan(&lastHash)
	if lastHash.Valid && lastHash.String == contentHash {
		return nil
	}

	if _, err := ex.ExecContext(ctx, `DELETE FROM symbols WHERE project = ? AND file_path = ?`, project, file); err != nil {
		return gderrors.New(gderrors.IO, "SymbolRepo.ReplaceFileSymbols:delete", err).WithPath(project, file)
	}
	for _, sym := range rows {
		var signature any
		if sym.Signature != nil {
			signature = *sym.Signature
		}
		_, err := ex.ExecContext(ctx, `
			INSERT INTO symbols (project, file_path, name, kind, span_start, span_end, is_exported, signature, fingerprint, detail_json, modifiers)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			project, file, sym.Name, string(sym.Kind), sym.Span.Start, sym.Span.End, boolToInt(sym.IsExported),
			signature, sym.Fingerprint, sym.DetailJSON, uint8(sym.Modifiers))
		if err != nil {
			return gderrors.New(gderrors.IO, "SymbolRepo.ReplaceFileSymbols:insert", err).WithPath(project, file)
		}
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO symbol_index_state (project, file_path, content_hash) VALUES (?, ?, ?)
		ON CONFLICT(project, file_path) DO UPDATE SET content_hash = excluded.content_hash`,
		project, file, contentHash)
	if err != nil {
		return gderrors.New(gderrors.IO, "SymbolRepo.ReplaceFileSymbols:state", err).WithPath(project, file)
	}
	return nil
}

// GetFileSymbols returns every symbol row for (project, file).
func (r *SymbolRepo) GetFileSymbols(ctx context.Context, ex Execer, project, file string) ([]types.SymbolRecord, error) {
	rows, err := ex.QueryContext(ctx, `
		SELECT id, project, file_path, name, kind, span_start, span_end, is_exported, signature, fingerprint, detail_json, modifiers
		FROM symbols WHERE project = ? AND file_path = ? ORDER BY span_start`, project, file)
	if err != nil {
		return nil, gderrors.New(gderrors.IO, "SymbolRepo.GetFileSymbols", err).WithPath(project, file)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

// SearchByPrefix performs an FTS5 prefix search over symbol names,
// optionally scoped to project.
func (r *SymbolRepo) SearchByPrefix(ctx context.Context, ex Execer, project, prefix string, limit int) ([]types.SymbolRecord, error) {
	q := sanitizeFTSQuery(prefix) + "*"
	rows, err := ex.QueryContext(ctx, `
		SELECT s.id, s.project, s.file_path, s.name, s.kind, s.span_start, s.span_end, s.is_exported, s.signature, s.fingerprint, s.detail_json, s.modifiers
		FROM symbols_fts f
		JOIN symbols s ON s.id = f.rowid
		WHERE symbols_fts MATCH ? AND (? = '' OR s.project = ?)
		ORDER BY s.name
		LIMIT ?`, q, project, project, limit)
	if err != nil {
		return nil, gderrors.New(gderrors.IO, "SymbolRepo.SearchByPrefix", err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

// SearchExact returns every symbol row matching name exactly.
func (r *SymbolRepo) SearchExact(ctx context.Context, ex Execer, project, name string) ([]types.SymbolRecord, error) {
	rows, err := ex.QueryContext(ctx, `
		SELECT id, project, file_path, name, kind, span_start, span_end, is_exported, signature, fingerprint, detail_json, modifiers
		FROM symbols WHERE name = ? AND (? = '' OR project = ?)`, name, project, project)
	if err != nil {
		return nil, gderrors.New(gderrors.IO, "SymbolRepo.SearchExact", err)
	}
	defer rows.Close()
	return scanSymbolRows(rows)
}

// Stats returns the total symbol count for project, for debug/status output.
func (r *SymbolRepo) Stats(ctx context.Context, ex Execer, project string) (int, error) {
	row := ex.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbols WHERE project = ?`, project)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, gderrors.New(gderrors.IO, "SymbolRepo.Stats", err)
	}
	return n, nil
}

func scanSymbolRows(rows *sql.Rows) ([]types.SymbolRecord, error) {
	var out []types.SymbolRecord
	for rows.Next() {
		var sym types.SymbolRecord
		var kind string
		var isExported int
		var signature sql.NullString
		var modifiers uint8
		if err := rows.Scan(&sym.ID, &sym.Project, &sym.FilePath, &sym.Name, &kind, &sym.Span.Start, &sym.Span.End,
			&isExported, &signature, &sym.Fingerprint, &sym.DetailJSON, &modifiers); err != nil {
			return nil, gderrors.New(gderrors.IO, "SymbolRepo:scan", err)
		}
		sym.Kind = types.SymbolKind(kind)
		sym.IsExported = isExported != 0
		sym.Modifiers = types.Modifier(modifiers)
		if signature.Valid {
			s := signature.String
			sym.Signature = &s
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

// sanitizeFTSQuery strips FTS5 query-syntax metacharacters so raw user
// input (symbol name prefixes) can't be interpreted as FTS operators.
func sanitizeFTSQuery(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"', '*', '(', ')', ':', '-', '^':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
