package store

import (
	"context"

	"github.com/sentinel-dev/sentinel/internal/errs"
	"github.com/sentinel-dev/sentinel/internal/types"
)

// The bounded projections below back review context selection and
// `index --check`'s staleness report. All three return rows in
// insertion order (sqlite's rowid order, which ReplaceFile's
// append-per-file writes preserve), capped at limit. limit <= 0 means
// no cap.

// GetSymbols returns up to limit symbols across the whole project.
func (s *Store) GetSymbols(ctx context.Context, limit int) ([]types.Symbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT file_path, name, kind, line_start, exported FROM symbols ORDER BY rowid LIMIT ?`,
		normalizeLimit(limit))
	if err != nil {
		return nil, errs.NewIndexError("project symbols", false, err)
	}
	defer rows.Close()

	var out []types.Symbol
	for rows.Next() {
		var sym types.Symbol
		var exported int
		if err := rows.Scan(&sym.FilePath, &sym.Name, &sym.Kind, &sym.LineStart, &exported); err != nil {
			return nil, errs.NewIndexError("scan symbol", false, err)
		}
		sym.Exported = exported != 0
		out = append(out, sym)
	}
	return out, rows.Err()
}

// GetCallGraph returns up to limit call edges across the whole project.
func (s *Store) GetCallGraph(ctx context.Context, limit int) ([]types.CallEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT caller_file, caller_symbol, callee_symbol FROM call_graph ORDER BY rowid LIMIT ?`,
		normalizeLimit(limit))
	if err != nil {
		return nil, errs.NewIndexError("project call graph", false, err)
	}
	defer rows.Close()

	var out []types.CallEdge
	for rows.Next() {
		var e types.CallEdge
		if err := rows.Scan(&e.CallerFile, &e.CallerSymbol, &e.CalleeSymbol); err != nil {
			return nil, errs.NewIndexError("scan call edge", false, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetImportUsage returns up to limit import records across the whole
// project.
func (s *Store) GetImportUsage(ctx context.Context, limit int) ([]types.ImportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT file_path, name, src, is_used FROM import_usage ORDER BY rowid LIMIT ?`,
		normalizeLimit(limit))
	if err != nil {
		return nil, errs.NewIndexError("project import usage", false, err)
	}
	defer rows.Close()

	var out []types.ImportRecord
	for rows.Next() {
		var imp types.ImportRecord
		var used int
		if err := rows.Scan(&imp.FilePath, &imp.Name, &imp.Src, &used); err != nil {
			return nil, errs.NewIndexError("scan import record", false, err)
		}
		imp.IsUsed = used != 0
		out = append(out, imp)
	}
	return out, rows.Err()
}

// normalizeLimit maps "no cap" to sqlite's LIMIT -1.
func normalizeLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
