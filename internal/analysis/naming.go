package analysis

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sentinel-dev/sentinel/internal/grammar"
	"github.com/sentinel-dev/sentinel/internal/types"
)

var snakeCaseFrameworks = map[string]bool{
	"django":  true,
	"python":  true,
	"laravel": true,
	"php":     true,
}

// Naming is the framework-aware convention check: classes
// always expect PascalCase, while functions and variables expect
// snake_case under {django, python, laravel, php} and camelCase
// everywhere else. One analyzer, branching once on the framework tag,
// rather than a NamingAnalyzer subclass per framework.
type Naming struct {
	g         *grammar.Grammar
	framework string
}

func NewNaming(g *grammar.Grammar, framework string) *Naming {
	return &Naming{g: g, framework: framework}
}

func (n *Naming) Name() string { return RuleNamingConvention }

func (n *Naming) Analyze(tree *tree_sitter.Tree, source []byte) []types.Violation {
	if tree == nil {
		return nil
	}

	snake := snakeCaseFrameworks[n.framework]

	var out []types.Violation
	for _, cap := range n.g.DefsCaptures(tree, source) {
		name := string(source[cap.Node.StartByte():cap.Node.EndByte()])
		if name == "" {
			continue
		}

		var wantMsg string
		var ok bool
		switch cap.Name {
		case "class.name", "interface.name":
			ok = isPascalCase(name)
			wantMsg = "PascalCase"
		case "function.name", "method.name", "variable.name":
			if snake {
				ok = isSnakeCase(name)
				wantMsg = "snake_case"
			} else {
				ok = isCamelCase(name)
				wantMsg = "camelCase"
			}
		default:
			continue
		}

		if !ok {
			out = append(out, types.Violation{
				Rule:    RuleNamingConvention,
				Message: "\"" + name + "\" does not follow " + wantMsg + " naming",
				Level:   types.LevelInfo,
				Line:    int(cap.Node.StartPosition().Row) + 1,
				HasLine: true,
				Symbol:  name,
			})
		}
	}
	return out
}

func isPascalCase(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}
	return !containsByte(s, '_')
}

func isCamelCase(s string) bool {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return false
	}
	return !containsByte(s, '_')
}

func isSnakeCase(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return false
		}
	}
	return true
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
