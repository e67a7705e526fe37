// Package grammar wraps one tree-sitter language binding per file
// extension: a ready-to-use *tree_sitter.Parser plus the queries
// every analyzer in internal/analysis and internal/indexer need: a
// "definitions" query (functions/methods/classes/interfaces/variables/
// consts/imports), a "branches" query (the node types that add one to
// cyclomatic complexity), a "functions" query (one capture per
// function/method definition node, the unit complexity and length are
// measured over), and an optional "calls" query (callee identifiers,
// scoped per function, feeding the index store's call_graph table). Expressing the
// per-language setup as data (one Grammar value) instead of one
// hand-written Go function per language is what keeps the cost of a
// new language down to one registry entry plus its query strings.
package grammar

import (
	"context"
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// Grammar is everything an analyzer needs to parse and query one
// language's source files.
type Grammar struct {
	Name string

	language *tree_sitter.Language

	defsQuery   *tree_sitter.Query
	branchQuery *tree_sitter.Query
	funcQuery   *tree_sitter.Query
	callQuery   *tree_sitter.Query // nil for languages the indexer doesn't call-graph

	// EntryPoints are symbol names that DeadCode never flags regardless
	// of occurrence count.
	EntryPoints map[string]bool

	// SkipsExportedDeadCode, when true, makes DeadCode skip names the
	// language considers exported (Go: leading uppercase), since external
	// packages may consume them.
	SkipsExportedDeadCode bool

	mu     sync.Mutex
	parser *tree_sitter.Parser
}

// New compiles a Grammar from a raw *tree_sitter.Language and three
// query source strings. defsQuerySrc must use the capture names
// documented in internal/analysis (@function.name, @method.name,
// @class.name, @interface.name, @variable.name, @const.name,
// @import.name, @import.src). branchQuerySrc captures every branch
// node as @branch. funcQuerySrc captures every function/method node
// as @function.
func New(name string, lang *tree_sitter.Language, defsQuerySrc, branchQuerySrc, funcQuerySrc string, entryPoints []string, skipsExported bool) (*Grammar, error) {
	return newGrammar(name, lang, defsQuerySrc, branchQuerySrc, funcQuerySrc, "", entryPoints, skipsExported)
}

// NewWithCalls is New plus a "calls" query source, for languages the
// indexer call-graphs.
func NewWithCalls(name string, lang *tree_sitter.Language, defsQuerySrc, branchQuerySrc, funcQuerySrc, callQuerySrc string, entryPoints []string, skipsExported bool) (*Grammar, error) {
	return newGrammar(name, lang, defsQuerySrc, branchQuerySrc, funcQuerySrc, callQuerySrc, entryPoints, skipsExported)
}

func newGrammar(name string, lang *tree_sitter.Language, defsQuerySrc, branchQuerySrc, funcQuerySrc, callQuerySrc string, entryPoints []string, skipsExported bool) (*Grammar, error) {
	defsQuery, err := tree_sitter.NewQuery(lang, defsQuerySrc)
	if err != nil {
		return nil, fmt.Errorf("compile definitions query for %s: %w", name, err)
	}
	branchQuery, err := tree_sitter.NewQuery(lang, branchQuerySrc)
	if err != nil {
		return nil, fmt.Errorf("compile branch query for %s: %w", name, err)
	}
	funcQuery, err := tree_sitter.NewQuery(lang, funcQuerySrc)
	if err != nil {
		return nil, fmt.Errorf("compile function query for %s: %w", name, err)
	}

	var callQuery *tree_sitter.Query
	if callQuerySrc != "" {
		callQuery, err = tree_sitter.NewQuery(lang, callQuerySrc)
		if err != nil {
			return nil, fmt.Errorf("compile call query for %s: %w", name, err)
		}
	}

	entries := make(map[string]bool, len(entryPoints))
	for _, e := range entryPoints {
		entries[e] = true
	}

	return &Grammar{
		Name:                  name,
		language:              lang,
		defsQuery:             defsQuery,
		branchQuery:           branchQuery,
		funcQuery:             funcQuery,
		callQuery:             callQuery,
		EntryPoints:           entries,
		SkipsExportedDeadCode: skipsExported,
	}, nil
}

// Parse parses source and returns the resulting tree. The caller must
// call tree.Close() when done. A dedicated *tree_sitter.Parser is
// reused per Grammar under a mutex; tree-sitter parsers aren't safe
// for concurrent use, and one indexing pass processes one file at a
// time per Grammar anyway.
func (g *Grammar) Parse(ctx context.Context, source []byte) (*tree_sitter.Tree, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.parser == nil {
		g.parser = tree_sitter.NewParser()
		if err := g.parser.SetLanguage(g.language); err != nil {
			return nil, fmt.Errorf("set language %s: %w", g.Name, err)
		}
	}

	tree := g.parser.ParseCtx(ctx, source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parse failed for grammar %s", g.Name)
	}
	return tree, nil
}

// DefsCaptures runs the definitions query over tree and returns every
// capture, keyed by capture name, in document order.
func (g *Grammar) DefsCaptures(tree *tree_sitter.Tree, source []byte) []Capture {
	return runQuery(g.defsQuery, tree, source)
}

// BranchCaptures runs the branch query over the subtree rooted at node
// and returns every @branch capture.
func (g *Grammar) BranchCaptures(tree *tree_sitter.Tree, node *tree_sitter.Node, source []byte) []Capture {
	return runQueryNode(g.branchQuery, tree, node, source)
}

// FuncCaptures runs the function-definition query over tree, returning
// one @function capture per function or method definition node, the
// unit Complexity and FunctionLength measure.
func (g *Grammar) FuncCaptures(tree *tree_sitter.Tree, source []byte) []Capture {
	return runQuery(g.funcQuery, tree, source)
}

// CallCaptures runs the calls query over the subtree rooted at node
// (normally a @function capture from FuncCaptures) and returns every
// @call.callee capture. Returns nil if this Grammar has no calls
// query compiled.
func (g *Grammar) CallCaptures(tree *tree_sitter.Tree, node *tree_sitter.Node, source []byte) []Capture {
	if g.callQuery == nil {
		return nil
	}
	return runQueryNode(g.callQuery, tree, node, source)
}

// Capture is one query match: the capture name (without the leading
// '@') and the matched node.
type Capture struct {
	Name string
	Node tree_sitter.Node
}

func runQuery(q *tree_sitter.Query, tree *tree_sitter.Tree, source []byte) []Capture {
	return runQueryNode(q, tree, tree.RootNode(), source)
}

func runQueryNode(q *tree_sitter.Query, tree *tree_sitter.Tree, node *tree_sitter.Node, source []byte) []Capture {
	if q == nil || node == nil {
		return nil
	}
	cursor := tree_sitter.NewQueryCursor()
	defer cursor.Close()

	var out []Capture
	matches := cursor.Matches(q, node, source)
	for {
		match := matches.Next()
		if match == nil {
			break
		}
		for _, c := range match.Captures {
			out = append(out, Capture{
				Name: q.CaptureNames()[c.Index],
				Node: c.Node,
			})
		}
	}
	return out
}
