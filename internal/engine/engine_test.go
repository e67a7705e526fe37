package engine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinel-dev/sentinel/internal/analysis"
	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/engine"
	"github.com/sentinel-dev/sentinel/internal/profile"
	"github.com/sentinel-dev/sentinel/internal/types"
)

type fakeStore struct {
	populated bool
	callees   map[string]bool
}

func (f *fakeStore) IsPopulated() bool { return f.populated }

func (f *fakeStore) IsCalleeAnywhere(_ context.Context, symbolName string) (bool, error) {
	return f.callees[symbolName], nil
}

func TestValidateFileUnresolvedExtensionReturnsEmpty(t *testing.T) {
	e := engine.New(config.Default(), nil, nil)
	violations, err := e.ValidateFile(context.Background(), "README.md", []byte("hello"))
	require.NoError(t, err)
	require.Empty(t, violations)
}

func TestValidateFileAppliesComplexityThreshold(t *testing.T) {
	cfg := config.Default()
	cfg.RuleConfig.ComplexityThreshold = 1000 // above anything the test function can reach

	e := engine.New(cfg, nil, nil)
	src := "package main\n\nfunc run(x int) {\n\tif x > 0 {\n\t\tif x > 1 {\n\t\t\tif x > 2 {\n\t\t\t\tif x > 3 {\n\t\t\t\t\tif x > 4 {\n\t\t\t\t\t\tif x > 5 {\n\t\t\t\t\t\t\tprintln(x)\n\t\t\t\t\t\t}\n\t\t\t\t\t}\n\t\t\t\t}\n\t\t\t}\n\t\t}\n\t}\n}\n"
	violations, err := e.ValidateFile(context.Background(), "a.go", []byte(src))
	require.NoError(t, err)
	for _, v := range violations {
		require.NotEqual(t, analysis.RuleHighComplexity, v.Rule)
	}
}

func TestValidateFileDisabledDeadCodeIsFiltered(t *testing.T) {
	cfg := config.Default()
	cfg.RuleConfig.DeadCodeEnabled = false

	e := engine.New(cfg, nil, nil)
	src := "export function unused() {}\n"
	violations, err := e.ValidateFile(context.Background(), "a.ts", []byte(src))
	require.NoError(t, err)
	for _, v := range violations {
		require.NotEqual(t, analysis.RuleDeadCode, v.Rule)
	}
}

func TestValidateFilePromotesDeadCodeGlobalWhenNeverCalled(t *testing.T) {
	cfg := config.Default()
	idx := &fakeStore{populated: true, callees: map[string]bool{}}
	e := engine.New(cfg, nil, idx)

	src := "function neverCalled() {\n  return 1;\n}\n"
	violations, err := e.ValidateFile(context.Background(), "a.ts", []byte(src))
	require.NoError(t, err)

	var found *types.Violation
	for i := range violations {
		if violations[i].Rule == analysis.RuleDeadCodeGlobal {
			found = &violations[i]
		}
	}
	require.NotNil(t, found)
	require.Equal(t, types.LevelError, found.Level)
}

func TestValidateFileAppliesFrameworkProfile(t *testing.T) {
	prof := &profile.Profile{Rules: []profile.Rule{{
		Name:           "service-requires-injectable",
		FileGlob:       "**/*.service.ts",
		RequiredImport: "@Injectable",
	}}}

	e := engine.New(config.Default(), prof, nil)
	violations, err := e.ValidateFile(context.Background(), "user.service.ts", []byte("export class UserService {}\n"))
	require.NoError(t, err)

	found := false
	for _, v := range violations {
		if v.Rule == "service-requires-injectable" {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateFileSetsFileOnEveryViolation(t *testing.T) {
	e := engine.New(config.Default(), nil, nil)
	src := "def doWork():\n    pass\n\ndoWork()\n"
	violations, err := e.ValidateFile(context.Background(), "a.py", []byte(src))
	require.NoError(t, err)
	require.NotEmpty(t, violations)
	for _, v := range violations {
		require.Equal(t, "a.py", v.File)
	}
}

func TestValidateFileBuildsALongFunction(t *testing.T) {
	var b strings.Builder
	b.WriteString("function big() {\n")
	for i := 0; i < 60; i++ {
		b.WriteString("  doWork();\n")
	}
	b.WriteString("}\n")

	e := engine.New(config.Default(), nil, nil)
	violations, err := e.ValidateFile(context.Background(), "a.ts", []byte(b.String()))
	require.NoError(t, err)

	found := false
	for _, v := range violations {
		if v.Rule == analysis.RuleFunctionTooLong {
			found = true
		}
	}
	require.True(t, found)
}

func TestValidateFileWithNilConfigUsesDefaults(t *testing.T) {
	e := &engine.Engine{Index: &fakeStore{populated: true}}
	_, err := e.ValidateFile(context.Background(), "a.go", []byte("package main\n\nfunc main() {}\n"))
	require.NoError(t, err)
}
