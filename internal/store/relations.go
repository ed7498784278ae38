package store

import (
	"context"
	"database/sql"

	gderrors "github.com/standardbeagle/gildash/internal/errors"
	"github.com/standardbeagle/gildash/internal/types"
)

// RelationRepo is the relations-table repository (spec.md §4.5, §6).
type RelationRepo struct{}

// NewRelationRepo returns a RelationRepo.
func NewRelationRepo() *RelationRepo { return &RelationRepo{} }

// ReplaceFileRelations deletes every relation rooted at (project, file)
// and reinserts rows (spec.md §4.5). The delete and inserts are atomic
// only when ex is a transaction; the method opens no transaction itself.
func (r *RelationRepo) ReplaceFileRelations(ctx context.Context, ex Execer, project, file string, rows []types.RelationRecord) error {
	if _, err := ex.ExecContext(ctx, `DELETE FROM relations WHERE project = ? AND src_file_path = ?`, project, file); err != nil {
		return gderrors.New(gderrors.IO, "RelationRepo.ReplaceFileRelations:delete", err).WithPath(project, file)
	}
	for _, rel := range rows {
		var srcSymbol, dstSymbol any
		if rel.SrcSymbolName != nil {
			srcSymbol = *rel.SrcSymbolName
		}
		if rel.DstSymbolName != nil {
			dstSymbol = *rel.DstSymbolName
		}
		_, err := ex.ExecContext(ctx, `
			INSERT INTO relations (project, type, src_file_path, src_symbol_name, dst_project, dst_file_path, dst_symbol_name, meta_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			project, string(rel.Type), file, srcSymbol, rel.DstProject, rel.DstFilePath, dstSymbol, rel.MetaJSON)
		if err != nil {
			return gderrors.New(gderrors.IO, "RelationRepo.ReplaceFileRelations:insert", err).WithPath(project, file)
		}
	}
	return nil
}

// GetOutgoing returns every relation rooted at (project, file).
func (r *RelationRepo) GetOutgoing(ctx context.Context, ex Execer, project, file string) ([]types.RelationRecord, error) {
	rows, err := ex.QueryContext(ctx, `
		SELECT id, project, type, src_file_path, src_symbol_name, dst_project, dst_file_path, dst_symbol_name, meta_json
		FROM relations WHERE project = ? AND src_file_path = ?`, project, file)
	if err != nil {
		return nil, gderrors.New(gderrors.IO, "RelationRepo.GetOutgoing", err).WithPath(project, file)
	}
	defer rows.Close()
	return scanRelationRows(rows)
}

// GetIncoming returns every relation targeting (destProject, destFile).
func (r *RelationRepo) GetIncoming(ctx context.Context, ex Execer, destProject, destFile string) ([]types.RelationRecord, error) {
	rows, err := ex.QueryContext(ctx, `
		SELECT id, project, type, src_file_path, src_symbol_name, dst_project, dst_file_path, dst_symbol_name, meta_json
		FROM relations WHERE dst_project = ? AND dst_file_path = ?`, destProject, destFile)
	if err != nil {
		return nil, gderrors.New(gderrors.IO, "RelationRepo.GetIncoming", err).WithPath(destProject, destFile)
	}
	defer rows.Close()
	return scanRelationRows(rows)
}

// GetByType returns every relation of type t within project, used by
// the graph engine to build import/type-reference/re-export adjacency
// (spec.md §4.7, only types.GraphRelationTypes feed the graph).
func (r *RelationRepo) GetByType(ctx context.Context, ex Execer, project string, t types.RelationType) ([]types.RelationRecord, error) {
	rows, err := ex.QueryContext(ctx, `
		SELECT id, project, type, src_file_path, src_symbol_name, dst_project, dst_file_path, dst_symbol_name, meta_json
		FROM relations WHERE project = ? AND type = ?`, project, string(t))
	if err != nil {
		return nil, gderrors.New(gderrors.IO, "RelationRepo.GetByType", err)
	}
	defer rows.Close()
	return scanRelationRows(rows)
}

// RelationFilter narrows Search to a subset of dimensions; zero values
// mean "don't filter on this dimension".
type RelationFilter struct {
	Project     string
	Type        types.RelationType
	SrcFilePath string
	DstProject  string
	DstFilePath string
}

// Search returns relations matching every non-zero field of f.
func (r *RelationRepo) Search(ctx context.Context, ex Execer, f RelationFilter) ([]types.RelationRecord, error) {
	query := `SELECT id, project, type, src_file_path, src_symbol_name, dst_project, dst_file_path, dst_symbol_name, meta_json FROM relations WHERE 1=1`
	var args []any
	if f.Project != "" {
		query += ` AND project = ?`
		args = append(args, f.Project)
	}
	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, string(f.Type))
	}
	if f.SrcFilePath != "" {
		query += ` AND src_file_path = ?`
		args = append(args, f.SrcFilePath)
	}
	if f.DstProject != "" {
		query += ` AND dst_project = ?`
		args = append(args, f.DstProject)
	}
	if f.DstFilePath != "" {
		query += ` AND dst_file_path = ?`
		args = append(args, f.DstFilePath)
	}
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, gderrors.New(gderrors.IO, "RelationRepo.Search", err)
	}
	defer rows.Close()
	return scanRelationRows(rows)
}

// Retarget rewrites every relation pointing at (oldFile, oldSymbol) to
// point at (newFile, newSymbol) instead, optionally also moving it to
// newDestProject. Used when a same-file symbol rename is detected so
// edges survive without a full re-index (spec.md §4.6 step 4).
func (r *RelationRepo) Retarget(ctx context.Context, ex Execer, destProject, oldFile string, oldSymbol *string, newFile string, newSymbol *string, newDestProject string) error {
	if newDestProject == "" {
		newDestProject = destProject
	}
	var oldSym, newSym any
	if oldSymbol != nil {
		oldSym = *oldSymbol
	}
	if newSymbol != nil {
		newSym = *newSymbol
	}
	query := `UPDATE relations SET dst_project = ?, dst_file_path = ?, dst_symbol_name = ?
		WHERE dst_project = ? AND dst_file_path = ? AND dst_symbol_name IS ?`
	_, err := ex.ExecContext(ctx, query, newDestProject, newFile, newSym, destProject, oldFile, oldSym)
	if err != nil {
		return gderrors.New(gderrors.IO, "RelationRepo.Retarget", err).WithPath(destProject, oldFile)
	}
	return nil
}

func scanRelationRows(rows *sql.Rows) ([]types.RelationRecord, error) {
	var out []types.RelationRecord
	for rows.Next() {
		var rel types.RelationRecord
		var relType string
		var srcSymbol, dstSymbol sql.NullString
		if err := rows.Scan(&rel.ID, &rel.Project, &relType, &rel.SrcFilePath, &srcSymbol,
			&rel.DstProject, &rel.DstFilePath, &dstSymbol, &rel.MetaJSON); err != nil {
			return nil, gderrors.New(gderrors.IO, "RelationRepo:scan", err)
		}
		rel.Type = types.RelationType(relType)
		if srcSymbol.Valid {
			s := srcSymbol.String
			rel.SrcSymbolName = &s
		}
		if dstSymbol.Valid {
			s := dstSymbol.String
			rel.DstSymbolName = &s
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}
