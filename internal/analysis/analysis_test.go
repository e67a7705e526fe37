package analysis_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinel-dev/sentinel/internal/analysis"
	"github.com/sentinel-dev/sentinel/internal/langreg"
	"github.com/sentinel-dev/sentinel/internal/types"
)

func analyze(t *testing.T, ext, source string) []types.Violation {
	t.Helper()
	entry, ok := langreg.Resolve(ext)
	require.True(t, ok, "extension %s must resolve", ext)

	tree, err := entry.Grammar.Parse(context.Background(), []byte(source))
	require.NoError(t, err)
	defer tree.Close()

	var out []types.Violation
	for _, a := range entry.Analyzers {
		out = append(out, a.Analyze(tree, []byte(source))...)
	}
	return out
}

func hasRule(vs []types.Violation, rule string) bool {
	for _, v := range vs {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

// A used import must never be flagged.
func TestUnusedImportsSkipsUsedImport(t *testing.T) {
	src := "import { Injectable } from '@nestjs/common';\n@Injectable()\nexport class Svc {}\n"
	violations := analyze(t, "ts", src)
	require.False(t, hasRule(violations, analysis.RuleUnusedImport))
}

func TestGoUnusedImportsFlagsUnreferencedImport(t *testing.T) {
	src := `package main

import "strings"

func main() {}
`
	violations := analyze(t, "go", src)
	require.True(t, hasRule(violations, analysis.RuleUnusedImport))
}

func TestGoUnusedImportsSkipsUsedImport(t *testing.T) {
	src := `package main

import "fmt"

func main() {
	fmt.Println("hi")
}
`
	violations := analyze(t, "go", src)
	require.False(t, hasRule(violations, analysis.RuleUnusedImport))
}

// Blank and dot imports are exempt regardless of usage.
func TestGoUnusedImportsSkipsBlankAndDotImports(t *testing.T) {
	src := `package main

import (
	_ "embed"
	. "fmt"
)

func main() {
	Println("hi")
}
`
	violations := analyze(t, "go", src)
	require.False(t, hasRule(violations, analysis.RuleUnusedImport))
}

// An aliased import is tracked by its alias, not its path.
func TestGoUnusedImportsChecksAliasNotPath(t *testing.T) {
	used := `package main

import f "fmt"

func main() {
	f.Println("hi")
}
`
	require.False(t, hasRule(analyze(t, "go", used), analysis.RuleUnusedImport))

	unused := `package main

import f "fmt"

func main() {}
`
	violations := analyze(t, "go", unused)
	require.True(t, hasRule(violations, analysis.RuleUnusedImport))
	for _, v := range violations {
		if v.Rule == analysis.RuleUnusedImport {
			require.Equal(t, "f", v.Symbol)
		}
	}
}

// Substring safety: "user" inside "username" must not
// count as a second occurrence of "user".
func TestDeadCodeSubstringSafety(t *testing.T) {
	src := "const user = 1;\nconsole.log(username);\n"
	violations := analyze(t, "ts", src)
	require.True(t, hasRule(violations, analysis.RuleDeadCode))
}

// A function spanning lines 1-56 (55 newlines) reports
// FUNCTION_TOO_LONG with line=1, value=55, level=Warning.
func TestFunctionTooLongLineNumber(t *testing.T) {
	var b strings.Builder
	b.WriteString("function big() {\n")
	for i := 0; i < 54; i++ {
		b.WriteString("  doWork();\n")
	}
	b.WriteString("}\n")

	violations := analyze(t, "ts", b.String())
	var found *types.Violation
	for i := range violations {
		if violations[i].Rule == analysis.RuleFunctionTooLong {
			found = &violations[i]
			break
		}
	}
	require.NotNil(t, found)
	require.Equal(t, 1, found.Line)
	require.Equal(t, types.LevelWarning, found.Level)
	require.True(t, found.HasValue)
}

func TestGoDeadCodeSkipsExportedAndEntrypoints(t *testing.T) {
	src := `package main

func main() {
	Helper()
}

func Helper() {}
`
	violations := analyze(t, "go", src)
	require.False(t, hasRule(violations, analysis.RuleDeadCode))
}

func TestGoUncheckedErrorFlagsAllBlankLHS(t *testing.T) {
	src := `package main

func run() {
	_, _ := doSomething()
}

func doSomething() (int, error) { return 0, nil }
`
	violations := analyze(t, "go", src)
	require.True(t, hasRule(violations, analysis.RuleUncheckedError))
}

func TestGoNamingFlagsShoutingConst(t *testing.T) {
	src := `package main

const MAX_RETRIES = 3

func main() {}
`
	violations := analyze(t, "go", src)
	require.True(t, hasRule(violations, analysis.RuleNamingGo))
}

func TestGoDeferInLoopFlagged(t *testing.T) {
	src := `package main

func run(files []string) {
	for _, f := range files {
		defer close(f)
	}
}

func close(f string) {}
`
	violations := analyze(t, "go", src)
	require.True(t, hasRule(violations, analysis.RuleDeferInLoop))
}

func TestPythonNamingExpectsSnakeCase(t *testing.T) {
	src := "def doWork():\n    pass\n\ndoWork()\n"
	violations := analyze(t, "py", src)
	require.True(t, hasRule(violations, analysis.RuleNamingConvention))
}
