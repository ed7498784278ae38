package store

import (
	"context"
	"database/sql"

	gderrors "github.com/standardbeagle/gildash/internal/errors"
)

// migration is one forward-only schema step, tracked in
// schema_migrations the way SPEC_FULL.md §3.1 describes.
type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{
		version: 1,
		stmts: []string{
			`CREATE TABLE IF NOT EXISTS schema_migrations (
				version INTEGER PRIMARY KEY,
				applied_at TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS files (
				project TEXT NOT NULL,
				file_path TEXT NOT NULL,
				mtime_ms INTEGER NOT NULL,
				size INTEGER NOT NULL,
				content_hash TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				line_count INTEGER,
				PRIMARY KEY (project, file_path)
			)`,
			`CREATE TABLE IF NOT EXISTS symbols (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project TEXT NOT NULL,
				file_path TEXT NOT NULL,
				name TEXT NOT NULL,
				kind TEXT NOT NULL,
				span_start INTEGER NOT NULL,
				span_end INTEGER NOT NULL,
				is_exported INTEGER NOT NULL DEFAULT 0,
				signature TEXT,
				fingerprint TEXT NOT NULL,
				detail_json TEXT NOT NULL DEFAULT '{}',
				modifiers INTEGER NOT NULL DEFAULT 0,
				FOREIGN KEY (project, file_path) REFERENCES files(project, file_path) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(project, file_path)`,
			`CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name)`,
			`CREATE TABLE IF NOT EXISTS relations (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				project TEXT NOT NULL,
				type TEXT NOT NULL,
				src_file_path TEXT NOT NULL,
				src_symbol_name TEXT,
				dst_project TEXT NOT NULL,
				dst_file_path TEXT NOT NULL,
				dst_symbol_name TEXT,
				meta_json TEXT NOT NULL DEFAULT '{}',
				FOREIGN KEY (project, src_file_path) REFERENCES files(project, file_path) ON DELETE CASCADE,
				FOREIGN KEY (dst_project, dst_file_path) REFERENCES files(project, file_path) ON DELETE CASCADE
			)`,
			`CREATE INDEX IF NOT EXISTS idx_relations_src ON relations(project, src_file_path)`,
			`CREATE INDEX IF NOT EXISTS idx_relations_dst ON relations(dst_project, dst_file_path)`,
			`CREATE INDEX IF NOT EXISTS idx_relations_type ON relations(project, type)`,
			`CREATE TABLE IF NOT EXISTS symbol_index_state (
				project TEXT NOT NULL,
				file_path TEXT NOT NULL,
				content_hash TEXT NOT NULL,
				PRIMARY KEY (project, file_path),
				FOREIGN KEY (project, file_path) REFERENCES files(project, file_path) ON DELETE CASCADE
			)`,
			`CREATE TABLE IF NOT EXISTS watcher_owner (
				pid INTEGER NOT NULL,
				heartbeat_at TEXT NOT NULL,
				instance_id TEXT
			)`,
			`CREATE VIRTUAL TABLE IF NOT EXISTS symbols_fts USING fts5(
				name, file_path, kind, content='symbols', content_rowid='id'
			)`,
			`CREATE TRIGGER IF NOT EXISTS symbols_ai AFTER INSERT ON symbols BEGIN
				INSERT INTO symbols_fts(rowid, name, file_path, kind) VALUES (new.id, new.name, new.file_path, new.kind);
			END`,
			`CREATE TRIGGER IF NOT EXISTS symbols_ad AFTER DELETE ON symbols BEGIN
				INSERT INTO symbols_fts(symbols_fts, rowid, name, file_path, kind) VALUES ('delete', old.id, old.name, old.file_path, old.kind);
			END`,
			`CREATE TRIGGER IF NOT EXISTS symbols_au AFTER UPDATE ON symbols BEGIN
				INSERT INTO symbols_fts(symbols_fts, rowid, name, file_path, kind) VALUES ('delete', old.id, old.name, old.file_path, old.kind);
				INSERT INTO symbols_fts(rowid, name, file_path, kind) VALUES (new.id, new.name, new.file_path, new.kind);
			END`,
		},
	},
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL)`); err != nil {
		return gderrors.New(gderrors.IO, "store.runMigrations:bootstrap", err)
	}

	applied := map[int]bool{}
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return gderrors.New(gderrors.IO, "store.runMigrations:read", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return gderrors.New(gderrors.IO, "store.runMigrations:scan", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return gderrors.New(gderrors.IO, "store.runMigrations:iterate", err)
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return gderrors.New(gderrors.IO, "store.runMigrations:begin", err)
		}
		for _, stmt := range m.stmts {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				tx.Rollback()
				return gderrors.New(gderrors.IO, "store.runMigrations:exec", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations(version, applied_at) VALUES (?, datetime('now'))", m.version); err != nil {
			tx.Rollback()
			return gderrors.New(gderrors.IO, "store.runMigrations:record", err)
		}
		if err := tx.Commit(); err != nil {
			return gderrors.New(gderrors.IO, "store.runMigrations:commit", err)
		}
	}
	return nil
}
