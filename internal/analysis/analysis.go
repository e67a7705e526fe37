// Package analysis implements the analyzer contract and the fixed
// rule catalog: DeadCode, UnusedImports, Complexity + FunctionLength,
// framework-aware Naming, and the Go-only extras. Every analyzer is
// pure, deterministic, and returns an empty slice rather than
// panicking on a parse failure. All of them run off tree-sitter
// capture names instead of bespoke per-language AST walks.
package analysis

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sentinel-dev/sentinel/internal/grammar"
	"github.com/sentinel-dev/sentinel/internal/types"
)

// Analyzer is the contract every rule implements.
// Analyzers are stateless and safely shared across goroutines; the language registry
// hands out a fresh slice per file only because the slice header
// itself is mutable, not because the Analyzer values carry state.
type Analyzer interface {
	Name() string
	Analyze(tree *tree_sitter.Tree, source []byte) []types.Violation
}

// Fixed rule catalog.
const (
	RuleDeadCode         = "DEAD_CODE"
	RuleDeadCodeGlobal   = "DEAD_CODE_GLOBAL"
	RuleUnusedImport     = "UNUSED_IMPORT"
	RuleHighComplexity   = "HIGH_COMPLEXITY"
	RuleFunctionTooLong  = "FUNCTION_TOO_LONG"
	RuleNamingConvention = "NAMING_CONVENTION"
	RuleUncheckedError   = "UNCHECKED_ERROR"
	RuleNamingGo         = "NAMING_CONVENTION_GO"
	RuleDeferInLoop      = "DEFER_IN_LOOP"
)

// GoFamily is the full Go analyzer set: the three universal analyzers
// plus the three Go-only extras.
func GoFamily(g *grammar.Grammar) []Analyzer {
	return []Analyzer{
		NewDeadCode(g),
		NewUnusedImports(g),
		NewComplexity(g),
		NewUncheckedError(g),
		NewNamingGo(g),
		NewDeferInLoop(g),
	}
}

// PythonFamily is the universal set parameterized for Python's
// snake_case naming convention.
func PythonFamily(g *grammar.Grammar) []Analyzer {
	return []Analyzer{
		NewDeadCode(g),
		NewUnusedImports(g),
		NewComplexity(g),
		NewNaming(g, "python"),
	}
}

// TSFamily is the universal set for TypeScript/JavaScript. Naming is
// added separately via FrameworkAnalyzers once the rule engine knows the project's
// framework tag.
func TSFamily(g *grammar.Grammar) []Analyzer {
	return []Analyzer{
		NewDeadCode(g),
		NewUnusedImports(g),
		NewComplexity(g),
	}
}

// FrameworkAnalyzers returns the framework-parameterized Naming
// analyzer for TS/JS files.
func FrameworkAnalyzers(g *grammar.Grammar, framework string) []Analyzer {
	return []Analyzer{NewNaming(g, framework)}
}

// ExtendedFamily is the reduced analyzer set for the extended language
// family (rust, java, c#, c++, php, zig): dead code, unused imports,
// and complexity/length only, no naming or framework rules, since
// those languages have no framework profile in the configuration.
func ExtendedFamily(g *grammar.Grammar) []Analyzer {
	return []Analyzer{
		NewDeadCode(g),
		NewUnusedImports(g),
		NewComplexity(g),
	}
}
