// Package indexer implements the index builder: turning source
// files into rows in the index store's symbols/call_graph/import_usage/file_index
// tables. The pipeline per file is hash, short-circuit if unchanged,
// parse, extract, upsert.
package indexer

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/errs"
	"github.com/sentinel-dev/sentinel/internal/grammar"
	"github.com/sentinel-dev/sentinel/internal/langreg"
	"github.com/sentinel-dev/sentinel/internal/logging"
	"github.com/sentinel-dev/sentinel/internal/store"
	"github.com/sentinel-dev/sentinel/internal/types"
	"github.com/sentinel-dev/sentinel/internal/wordcount"
)

// skipDirs are never descended into regardless of project configuration.
var skipDirs = map[string]bool{
	".git":         true,
	".sentinel":    true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
}

// nameCaptureKind maps a definitions-query capture name to the symbol
// kind it records.
var nameCaptureKind = map[string]types.SymbolKind{
	"function.name":  types.KindFunction,
	"method.name":    types.KindMethod,
	"class.name":     types.KindClass,
	"interface.name": types.KindInterface,
	"variable.name":  types.KindVariable,
	"const.name":     types.KindConst,
}

// funcNameCaptures are the only capture kinds usable to name an
// enclosing function for call-graph attribution; variable.name is
// excluded because the arrow-function-assigned-to-a-variable pattern
// in jsDefsQuery/tsDefsQuery captures the whole declarator, not just
// the identifier, under @function.name instead.
var funcNameCaptures = map[string]bool{
	"function.name": true,
	"method.name":   true,
}

// Indexer builds the index store's tables from project files.
type Indexer struct {
	Store *store.Store
	Root  string
}

func New(s *store.Store, root string) *Indexer {
	return &Indexer{Store: s, Root: root}
}

// IndexFile hashes, parses, and upserts one file. relPath must be
// project-relative. A file whose extension isn't registered in the
// language registry is skipped entirely; it never gets a file_index
// row, since it was never a candidate for indexing.
func (ix *Indexer) IndexFile(ctx context.Context, relPath string, content []byte) error {
	entry, ok := langreg.Resolve(extensionOf(relPath))
	if !ok {
		return nil
	}

	hash := xxhash.Sum64(content)
	if existing, found, err := ix.Store.FileHash(ctx, relPath); err == nil && found && existing == hash {
		return nil // unchanged since last index
	}

	now := time.Now().Unix()

	tree, err := entry.Grammar.Parse(ctx, content)
	if err != nil {
		// Parse failures never abort indexing: record
		// the freshness row with no symbols so re-indexing isn't retried
		// every run, but don't propagate an error up to IndexProject.
		_ = ix.Store.ReplaceFile(ctx, relPath, hash, now, nil, nil, nil)
		return nil
	}
	defer tree.Close()

	symbols := extractSymbols(entry.Grammar, tree, content, relPath)
	imports := extractImports(entry.Grammar, tree, content, relPath)
	edges := extractCallEdges(entry.Grammar, tree, content, relPath)

	if err := ix.Store.ReplaceFile(ctx, relPath, hash, now, symbols, edges, imports); err != nil {
		return errs.NewIndexError("index file", false, err).WithFile(relPath)
	}
	return nil
}

// IndexProject walks root, indexing every file whose extension is in
// cfg.FileExtensions. Per-file I/O errors are skipped and per-file
// upsert failures are logged and skipped, so one bad file never aborts
// the build.
func (ix *Indexer) IndexProject(ctx context.Context, cfg *config.Config) error {
	return filepath.WalkDir(ix.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if skipDirs[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != ix.Root) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(ix.Root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !cfg.HasExtension(extensionOf(rel)) {
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}

		if err := ix.IndexFile(ctx, rel, content); err != nil {
			logging.Indexing("skipping %s: %v", rel, err)
		}
		return nil
	})
}

func extractSymbols(g *grammar.Grammar, tree *tree_sitter.Tree, source []byte, relPath string) []types.Symbol {
	var out []types.Symbol
	for _, cap := range g.DefsCaptures(tree, source) {
		kind, ok := nameCaptureKind[cap.Name]
		if !ok {
			continue
		}
		name := strings.TrimSpace(string(source[cap.Node.StartByte():cap.Node.EndByte()]))
		if name == "" {
			continue
		}
		out = append(out, types.Symbol{
			Name:      firstIdentLike(name),
			Kind:      kind,
			FilePath:  relPath,
			LineStart: int(cap.Node.StartPosition().Row),
			Exported:  isExported(name),
		})
	}
	return out
}

// firstIdentLike trims a captured name down to its leading identifier
// token, defending against the @function.name capture on a whole
// variable_declarator node (see funcNameCaptures's doc comment) ending
// up with a full expression instead of a bare name.
func firstIdentLike(s string) string {
	for i, r := range s {
		if !(r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			if i == 0 {
				return s
			}
			return s[:i]
		}
	}
	return s
}

func isExported(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

func extractImports(g *grammar.Grammar, tree *tree_sitter.Tree, source []byte, relPath string) []types.ImportRecord {
	var out []types.ImportRecord
	text := string(source)
	for _, cap := range g.DefsCaptures(tree, source) {
		if cap.Name != "import.name" && cap.Name != "import.src" {
			continue
		}
		raw := string(source[cap.Node.StartByte():cap.Node.EndByte()])
		var binding string
		if cap.Name == "import.name" {
			// Direct binding captures (aliases, Go blank/dot imports)
			// are already identifiers; only path captures need reducing.
			binding = raw
		} else {
			binding = lastPathSegment(strings.Trim(raw, `"'`))
		}
		if binding == "" || binding == "_" || binding == "." {
			continue
		}
		out = append(out, types.ImportRecord{
			FilePath: relPath,
			Name:     binding,
			Src:      raw,
			IsUsed:   wordcount.Count(text, binding) > 1,
		})
	}
	return out
}

func lastPathSegment(s string) string {
	s = strings.TrimSuffix(s, "/")
	for _, sep := range []string{"/", ".", "::", `\`} {
		if idx := strings.LastIndex(s, sep); idx >= 0 && idx+len(sep) < len(s) {
			s = s[idx+len(sep):]
		}
	}
	return s
}

func extractCallEdges(g *grammar.Grammar, tree *tree_sitter.Tree, source []byte, relPath string) []types.CallEdge {
	defs := g.DefsCaptures(tree, source)
	var edges []types.CallEdge

	for _, fn := range g.FuncCaptures(tree, source) {
		callerName := enclosingFuncName(fn.Node, defs, source)
		if callerName == "" {
			continue
		}
		node := fn.Node
		for _, call := range g.CallCaptures(tree, &node, source) {
			callee := string(source[call.Node.StartByte():call.Node.EndByte()])
			if callee == "" {
				continue
			}
			edges = append(edges, types.CallEdge{
				CallerFile:   relPath,
				CallerSymbol: callerName,
				CalleeSymbol: callee,
			})
		}
	}
	return edges
}

// enclosingFuncName finds the name capture that belongs to funcNode:
// the name capture, among funcNameCaptures, whose byte range sits
// inside funcNode's range, with the smallest span (innermost/most
// specific match for nested definitions).
func enclosingFuncName(funcNode tree_sitter.Node, defs []grammar.Capture, source []byte) string {
	name := ""
	bestSpan := -1
	for _, d := range defs {
		if !funcNameCaptures[d.Name] {
			continue
		}
		if d.Node.StartByte() < funcNode.StartByte() || d.Node.EndByte() > funcNode.EndByte() {
			continue
		}
		span := int(d.Node.EndByte() - d.Node.StartByte())
		if bestSpan == -1 || span < bestSpan {
			bestSpan = span
			name = string(source[d.Node.StartByte():d.Node.EndByte()])
		}
	}
	return name
}

func extensionOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	return path[idx+1:]
}
