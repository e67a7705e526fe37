package analysis

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sentinel-dev/sentinel/internal/grammar"
	"github.com/sentinel-dev/sentinel/internal/types"
)

// Generation floors: analyzers always emit above these regardless of
// RuleConfig, so any user-configured threshold above the floor stays
// reachable.
const (
	complexityFloor = 5
	lengthFloor     = 10
)

// Complexity measures cyclomatic complexity and line count for every
// function/method definition node and emits HIGH_COMPLEXITY /
// FUNCTION_TOO_LONG above the fixed generation floors.
type Complexity struct {
	g *grammar.Grammar
}

func NewComplexity(g *grammar.Grammar) *Complexity { return &Complexity{g: g} }

func (c *Complexity) Name() string { return RuleHighComplexity }

func (c *Complexity) Analyze(tree *tree_sitter.Tree, source []byte) []types.Violation {
	if tree == nil {
		return nil
	}

	var out []types.Violation
	for _, fn := range c.g.FuncCaptures(tree, source) {
		node := fn.Node
		branches := c.g.BranchCaptures(tree, &node, source)
		complexity := 1 + len(branches)

		start := int(node.StartPosition().Row)
		end := int(node.EndPosition().Row)
		lines := end - start
		line := start + 1

		if complexity > complexityFloor {
			out = append(out, types.Violation{
				Rule:     RuleHighComplexity,
				Message:  "cyclomatic complexity is high",
				Level:    types.LevelError,
				Line:     line,
				HasLine:  true,
				Value:    uint64(complexity),
				HasValue: true,
			})
		}
		if lines > lengthFloor {
			out = append(out, types.Violation{
				Rule:     RuleFunctionTooLong,
				Message:  "function body is too long",
				Level:    types.LevelWarning,
				Line:     line,
				HasLine:  true,
				Value:    uint64(lines),
				HasValue: true,
			})
		}
	}
	return out
}
