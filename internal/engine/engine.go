// Package engine implements the rule engine: the single
// validate_file entry point every command (check, audit, review, mcp)
// calls to turn one file's content into a filtered violation list.
// It owns no state of its own beyond the collaborators it
// is constructed with: the store, the config, and an optional
// framework profile.
package engine

import (
	"context"
	"strings"

	"github.com/sentinel-dev/sentinel/internal/analysis"
	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/errs"
	"github.com/sentinel-dev/sentinel/internal/langreg"
	"github.com/sentinel-dev/sentinel/internal/profile"
	"github.com/sentinel-dev/sentinel/internal/store"
	"github.com/sentinel-dev/sentinel/internal/types"
)

// Store is the subset of *store.Store the engine needs, so tests can
// substitute a fake without opening a sqlite file.
type Store interface {
	IsPopulated() bool
	IsCalleeAnywhere(ctx context.Context, symbolName string) (bool, error)
}

var _ Store = (*store.Store)(nil)

// Engine runs validate_file against a fixed configuration, profile,
// and index.
type Engine struct {
	Config  *config.Config
	Profile *profile.Profile // nil if the project has none
	Index   Store            // nil if no index has been opened
}

// New builds an Engine from already-loaded collaborators. idx may be
// nil (commands that never open the index, e.g. a bare `check` on a
// fresh clone still work; DEAD_CODE_GLOBAL promotion is simply skipped).
func New(cfg *config.Config, prof *profile.Profile, idx Store) *Engine {
	return &Engine{Config: cfg, Profile: prof, Index: idx}
}

// ValidateFile runs the full validation pipeline against one file's
// content:
//  1. resolve the extension via the registry; unknown extensions yield
//     no violations.
//  2. run every language analyzer, concatenating violations.
//  3. for TS/JS, also run the framework-tagged naming analyzer.
//  4. apply the framework profile, if one is configured.
//  5. promote DEAD_CODE to DEAD_CODE_GLOBAL when the index is populated
//     and the symbol is never called anywhere in the project.
//  6. filter by the configured RuleConfig thresholds.
func (e *Engine) ValidateFile(ctx context.Context, relPath string, content []byte) ([]types.Violation, error) {
	ext := extensionOf(relPath)
	entry, ok := langreg.Resolve(ext)
	if !ok {
		return nil, nil
	}

	tree, err := entry.Grammar.Parse(ctx, content)
	if err != nil {
		return nil, errs.NewParseError(relPath, err)
	}
	defer tree.Close()

	var violations []types.Violation
	for _, a := range entry.Analyzers {
		violations = append(violations, a.Analyze(tree, content)...)
	}

	if entry.Framework != nil {
		framework := "typescript"
		if e.Config != nil && e.Config.Framework != "" {
			framework = e.Config.Framework
		}
		for _, a := range entry.Framework(framework) {
			violations = append(violations, a.Analyze(tree, content)...)
		}
	}

	if e.Profile != nil {
		violations = append(violations, e.Profile.Check(relPath, content)...)
	}

	for i := range violations {
		violations[i].File = relPath
	}

	if e.Index != nil && e.Index.IsPopulated() {
		if err := e.promoteGlobalDeadCode(ctx, violations); err != nil {
			return nil, err
		}
	}

	return e.filterByThresholds(violations), nil
}

// promoteGlobalDeadCode upgrades DEAD_CODE to DEAD_CODE_GLOBAL in place
// when the store never records the symbol as a callee anywhere in the
// project.
func (e *Engine) promoteGlobalDeadCode(ctx context.Context, violations []types.Violation) error {
	for i := range violations {
		if violations[i].Rule != analysis.RuleDeadCode || violations[i].Symbol == "" {
			continue
		}
		called, err := e.Index.IsCalleeAnywhere(ctx, violations[i].Symbol)
		if err != nil {
			return errs.NewIndexError("check callee", false, err)
		}
		if !called {
			violations[i].Rule = analysis.RuleDeadCodeGlobal
			violations[i].Level = types.LevelError
		}
	}
	return nil
}

// filterByThresholds drops violations the project's RuleConfig has
// disabled or thresholded away. Generation floors in internal/analysis
// are always below the default thresholds, so raising a threshold
// never produces a violation the analyzer didn't already emit.
func (e *Engine) filterByThresholds(violations []types.Violation) []types.Violation {
	cfg := e.Config
	if cfg == nil {
		cfg = config.Default()
	}

	out := violations[:0:0]
	for _, v := range violations {
		switch v.Rule {
		case analysis.RuleDeadCode, analysis.RuleDeadCodeGlobal:
			if !cfg.RuleConfig.DeadCodeEnabled {
				continue
			}
		case analysis.RuleUnusedImport:
			if !cfg.RuleConfig.UnusedImportsEnabled {
				continue
			}
		case analysis.RuleHighComplexity:
			if v.HasValue && v.Value <= uint64(cfg.RuleConfig.ComplexityThreshold) {
				continue
			}
		case analysis.RuleFunctionTooLong:
			if v.HasValue && v.Value <= uint64(cfg.RuleConfig.FunctionLengthThreshold) {
				continue
			}
		}
		out = append(out, v)
	}
	return out
}

func extensionOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	return path[idx+1:]
}
