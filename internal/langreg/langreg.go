// Package langreg implements the language registry: the sole
// dispatch point mapping a file extension to a grammar and an analyzer
// set. Adding a language costs one register call in registerBaseline
// (or registerExtended) plus, for a baseline language, one analyzer
// constructor; no other package inspects file extensions.
package langreg

import (
	"fmt"
	"strings"
	"sync"

	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_php "github.com/tree-sitter/tree-sitter-php/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"
	tree_sitter_zig "github.com/tree-sitter-grammars/tree-sitter-zig/bindings/go"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sentinel-dev/sentinel/internal/analysis"
	"github.com/sentinel-dev/sentinel/internal/grammar"
)

// Entry is what Resolve returns: the grammar for the extension and a
// fresh analyzer slice the caller owns for the duration of one file.
type Entry struct {
	Grammar   *grammar.Grammar
	Analyzers []analysis.Analyzer
	Framework func(framework string) []analysis.Analyzer // extra framework-aware analyzers, baseline only
}

type registry struct {
	mu       sync.Mutex
	built    map[string]*Entry
	builders map[string]func() (*Entry, error)
}

var global = &registry{
	built:    map[string]*Entry{},
	builders: map[string]func() (*Entry, error){},
}

func init() {
	registerBaseline()
	registerExtended()
}

func register(ext string, builder func() (*Entry, error)) {
	global.builders[strings.ToLower(ext)] = builder
}

// Resolve maps a lowercase, dot-free extension to its grammar and a
// fresh analyzer slice, or ok=false if the extension is unknown.
func Resolve(ext string) (Entry, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))

	global.mu.Lock()
	cached, ok := global.built[ext]
	builder, hasBuilder := global.builders[ext]
	global.mu.Unlock()

	if !ok {
		if !hasBuilder {
			return Entry{}, false
		}
		built, err := builder()
		if err != nil {
			return Entry{}, false
		}
		global.mu.Lock()
		global.built[ext] = built
		global.mu.Unlock()
		cached = built
	}

	// Fresh analyzer slice per call: the slice is copied, while the
	// analyzer values in it are shared, since they are stateless.
	fresh := Entry{
		Grammar:   cached.Grammar,
		Analyzers: append([]analysis.Analyzer(nil), cached.Analyzers...),
		Framework: cached.Framework,
	}
	return fresh, true
}

// registerBaseline wires the primary language families:
// go, python, typescript/tsx, javascript/jsx, each with the full
// analyzer set (DeadCode, UnusedImports, Complexity+FunctionLength,
// plus language-specific extras and, for TS/JS, framework-aware naming).
func registerBaseline() {
	register("go", func() (*Entry, error) {
		g, err := grammar.NewWithCalls("go", tree_sitter.NewLanguage(tree_sitter_go.Language()),
			goDefsQuery, goBranchQuery, goFuncQuery, goCallQuery, []string{"main", "init"}, true)
		if err != nil {
			return nil, err
		}
		return &Entry{Grammar: g, Analyzers: analysis.GoFamily(g)}, nil
	})

	register("py", func() (*Entry, error) {
		g, err := grammar.NewWithCalls("python", tree_sitter.NewLanguage(tree_sitter_python.Language()),
			pyDefsQuery, pyBranchQuery, pyFuncQuery, pyCallQuery, []string{"main", "__init__"}, false)
		if err != nil {
			return nil, err
		}
		return &Entry{Grammar: g, Analyzers: analysis.PythonFamily(g)}, nil
	})

	jsBuilder := func() (*Entry, error) {
		g, err := grammar.NewWithCalls("javascript", tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
			jsDefsQuery, jsBranchQuery, jsFuncQuery, jsCallQuery, []string{"main"}, false)
		if err != nil {
			return nil, err
		}
		return &Entry{
			Grammar:   g,
			Analyzers: analysis.TSFamily(g),
			Framework: func(fw string) []analysis.Analyzer { return analysis.FrameworkAnalyzers(g, fw) },
		}, nil
	}
	register("js", jsBuilder)
	register("jsx", jsBuilder)

	tsBuilder := func() (*Entry, error) {
		g, err := grammar.NewWithCalls("typescript", tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()),
			tsDefsQuery, tsBranchQuery, tsFuncQuery, tsCallQuery, []string{"main"}, false)
		if err != nil {
			return nil, err
		}
		return &Entry{
			Grammar:   g,
			Analyzers: analysis.TSFamily(g),
			Framework: func(fw string) []analysis.Analyzer { return analysis.FrameworkAnalyzers(g, fw) },
		}, nil
	}
	register("ts", tsBuilder)
	register("tsx", func() (*Entry, error) {
		g, err := grammar.NewWithCalls("tsx", tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()),
			tsDefsQuery, tsBranchQuery, tsFuncQuery, tsCallQuery, []string{"main"}, false)
		if err != nil {
			return nil, err
		}
		return &Entry{
			Grammar:   g,
			Analyzers: analysis.TSFamily(g),
			Framework: func(fw string) []analysis.Analyzer { return analysis.FrameworkAnalyzers(g, fw) },
		}, nil
	})
}

// extendedLang describes one member of the extended family: generic
// DeadCode/UnusedImports/Complexity/FunctionLength support built from
// a per-language query set instead of bespoke Go code.
type extendedLang struct {
	exts        []string
	name        string
	language    func() *tree_sitter.Language
	defsQuery   string
	branchQuery string
	funcQuery   string
}

func registerExtended() {
	langs := []extendedLang{
		{[]string{"rs"}, "rust", func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_rust.Language()) }, rustDefsQuery, rustBranchQuery, rustFuncQuery},
		{[]string{"java"}, "java", func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_java.Language()) }, javaDefsQuery, javaBranchQuery, javaFuncQuery},
		{[]string{"cs"}, "csharp", func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_csharp.Language()) }, csharpDefsQuery, csharpBranchQuery, csharpFuncQuery},
		{[]string{"cpp", "cc", "cxx", "hpp", "h"}, "cpp", func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_cpp.Language()) }, cppDefsQuery, cppBranchQuery, cppFuncQuery},
		{[]string{"php"}, "php", func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_php.LanguagePHP()) }, phpDefsQuery, phpBranchQuery, phpFuncQuery},
		{[]string{"zig"}, "zig", func() *tree_sitter.Language { return tree_sitter.NewLanguage(tree_sitter_zig.Language()) }, zigDefsQuery, zigBranchQuery, zigFuncQuery},
	}

	for _, l := range langs {
		l := l
		builder := func() (*Entry, error) {
			g, err := grammar.New(l.name, l.language(), l.defsQuery, l.branchQuery, l.funcQuery, nil, false)
			if err != nil {
				return nil, fmt.Errorf("register extended language %s: %w", l.name, err)
			}
			return &Entry{Grammar: g, Analyzers: analysis.ExtendedFamily(g)}, nil
		}
		for _, ext := range l.exts {
			register(ext, builder)
		}
	}
}
