// Package store implements the embedded relational index: the
// symbols, call_graph, import_usage, and file_index tables, backed by
// modernc.org/sqlite (a pure-Go SQL engine, no cgo). Every query goes
// through parameter bindings (never string concatenation) and every
// access is serialized through one mutex guarding the single
// connection.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/sentinel-dev/sentinel/internal/errs"
	"github.com/sentinel-dev/sentinel/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS symbols (
	file_path  TEXT NOT NULL,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	line_start INTEGER NOT NULL,
	exported   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file_path);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);

CREATE TABLE IF NOT EXISTS call_graph (
	caller_file   TEXT NOT NULL,
	caller_symbol TEXT NOT NULL,
	callee_symbol TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_call_graph_file ON call_graph(caller_file);
CREATE INDEX IF NOT EXISTS idx_call_graph_callee ON call_graph(callee_symbol);

CREATE TABLE IF NOT EXISTS import_usage (
	file_path TEXT NOT NULL,
	name      TEXT NOT NULL,
	src       TEXT NOT NULL,
	is_used   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_import_usage_file ON import_usage(file_path);

CREATE TABLE IF NOT EXISTS file_index (
	file_path    TEXT PRIMARY KEY,
	content_hash INTEGER NOT NULL,
	last_indexed INTEGER NOT NULL
);
`

// Store owns the sqlite connection. Every method locks mu: the
// indexer (single writer) and query paths (watcher, engine, render)
// may run on different goroutines, and sqlite's Go driver does not
// itself serialize writers usefully under concurrent access.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	populated bool
}

// Open creates or attaches to the sqlite file at path, applying the
// schema idempotently.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.NewIndexError("open store", true, err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one writer at a time, enforced at the pool level too

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.NewIndexError("apply schema", true, err)
	}

	s := &Store{db: db, path: path}
	s.refreshPopulated(context.Background())
	return s, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// IsPopulated reports whether the index has ever completed a full
// build: true iff call_graph contains at least one row, not
// file_index, since a rebuild of a project with files but zero
// detected call sites must still report unpopulated.
func (s *Store) IsPopulated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.populated
}

func (s *Store) refreshPopulated(ctx context.Context) {
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM call_graph`)
	if err := row.Scan(&count); err == nil {
		s.populated = count > 0
	}
}

// IndexedFileCount returns how many files file_index currently tracks,
// used by `index --check` staleness detection.
func (s *Store) IndexedFileCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM file_index`)
	if err := row.Scan(&count); err != nil {
		return 0, errs.NewIndexError("count file_index", false, err)
	}
	return count, nil
}

// ClearAll drops every row from every table, used by `index --rebuild`.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"symbols", "call_graph", "import_usage", "file_index"} {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return errs.NewIndexError("clear "+table, true, err)
		}
	}
	s.populated = false
	return nil
}

// ReplaceFile atomically purges and re-inserts every row belonging to
// filePath across symbols/call_graph/import_usage, then upserts its
// file_index entry, the unit of work one indexing pass performs.
// Call with symbols/edges/imports == nil to record a parse
// failure while keeping the freshness entry current.
func (s *Store) ReplaceFile(ctx context.Context, filePath string, contentHash uint64, lastIndexed int64, symbols []types.Symbol, edges []types.CallEdge, imports []types.ImportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.NewIndexError("begin tx", false, err)
	}
	defer tx.Rollback()

	for _, table := range []string{"symbols", "call_graph", "import_usage"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, tableFileColumn(table)), filePath); err != nil {
			return errs.NewIndexError("purge "+table, false, err)
		}
	}

	for _, sym := range symbols {
		exported := 0
		if sym.Exported {
			exported = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO symbols (file_path, name, kind, line_start, exported) VALUES (?, ?, ?, ?, ?)`,
			filePath, sym.Name, string(sym.Kind), sym.LineStart, exported,
		); err != nil {
			return errs.NewIndexError("insert symbol", false, err)
		}
	}

	for _, e := range edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO call_graph (caller_file, caller_symbol, callee_symbol) VALUES (?, ?, ?)`,
			e.CallerFile, e.CallerSymbol, e.CalleeSymbol,
		); err != nil {
			return errs.NewIndexError("insert call edge", false, err)
		}
	}

	for _, imp := range imports {
		used := 0
		if imp.IsUsed {
			used = 1
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO import_usage (file_path, name, src, is_used) VALUES (?, ?, ?, ?)`,
			filePath, imp.Name, imp.Src, used,
		); err != nil {
			return errs.NewIndexError("insert import", false, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO file_index (file_path, content_hash, last_indexed) VALUES (?, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET content_hash = excluded.content_hash, last_indexed = excluded.last_indexed`,
		filePath, int64(contentHash), lastIndexed,
	); err != nil {
		return errs.NewIndexError("upsert file_index", false, err)
	}

	if err := tx.Commit(); err != nil {
		return errs.NewIndexError("commit tx", false, err)
	}
	s.refreshPopulated(ctx)
	return nil
}

// tableFileColumn returns the column each table uses to key rows by
// file, so ReplaceFile's purge step can use a single query shape.
func tableFileColumn(table string) string {
	if table == "call_graph" {
		return "caller_file"
	}
	return "file_path"
}

// FileHash returns the recorded content hash for filePath, or ok=false
// if it has never been indexed, the skip-if-unchanged check.
func (s *Store) FileHash(ctx context.Context, filePath string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hash int64
	row := s.db.QueryRowContext(ctx, `SELECT content_hash FROM file_index WHERE file_path = ?`, filePath)
	if err := row.Scan(&hash); err != nil {
		if err == sql.ErrNoRows {
			return 0, false, nil
		}
		return 0, false, errs.NewIndexError("lookup file hash", false, err)
	}
	return uint64(hash), true, nil
}

// Symbols returns every symbol recorded for filePath.
func (s *Store) Symbols(ctx context.Context, filePath string) ([]types.Symbol, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT file_path, name, kind, line_start, exported FROM symbols WHERE file_path = ?`, filePath)
	if err != nil {
		return nil, errs.NewIndexError("query symbols", false, err)
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

// IsCalleeAnywhere reports whether symbolName appears as callee_symbol
// in any recorded call edge project-wide, the test behind
// DEAD_CODE_GLOBAL promotion.
func (s *Store) IsCalleeAnywhere(ctx context.Context, symbolName string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM call_graph WHERE callee_symbol = ?`, symbolName)
	if err := row.Scan(&count); err != nil {
		return false, errs.NewIndexError("query call_graph", false, err)
	}
	return count > 0, nil
}

// IncomingCallCount returns how many times symbolName is called
// project-wide.
func (s *Store) IncomingCallCount(ctx context.Context, symbolName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM call_graph WHERE callee_symbol = ?`, symbolName)
	if err := row.Scan(&count); err != nil {
		return 0, errs.NewIndexError("query call_graph", false, err)
	}
	return count, nil
}

// TopFilesByIncomingCalls ranks files by how many call-graph edges
// target a symbol defined in that file, descending, for the review selector's medium-
// mode centrality selection. Ties are broken by file path
// to keep the ordering deterministic across runs.
func (s *Store) TopFilesByIncomingCalls(ctx context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT sym.file_path, COUNT(*) AS incoming
		FROM call_graph cg
		JOIN symbols sym ON sym.name = cg.callee_symbol
		GROUP BY sym.file_path
		ORDER BY incoming DESC, sym.file_path ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errs.NewIndexError("query incoming call counts", false, err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var path string
		var incoming int
		if err := rows.Scan(&path, &incoming); err != nil {
			return nil, errs.NewIndexError("scan incoming call counts", false, err)
		}
		files = append(files, path)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.NewIndexError("iterate incoming call counts", false, err)
	}
	return files, nil
}

// DB exposes the raw connection for components that need bespoke
// queries. Callers must still respect the single-writer discipline;
// prefer adding a Store method over reaching for this where possible.
func (s *Store) DB() *sql.DB { return s.db }

// Lock and Unlock expose the store's mutex directly for callers that
// need to run several DB() queries as one atomic read.
func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }
