package analysis

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sentinel-dev/sentinel/internal/grammar"
	"github.com/sentinel-dev/sentinel/internal/types"
	"github.com/sentinel-dev/sentinel/internal/wordcount"
)

// deadNameCaptures are the definitions-query capture names DeadCode
// considers; import captures belong to UnusedImports instead.
var deadNameCaptures = map[string]bool{
	"function.name":  true,
	"method.name":    true,
	"class.name":     true,
	"interface.name": true,
	"variable.name":  true,
	"const.name":     true,
}

// DeadCode flags function/method/class/interface/variable/const
// identifiers captured by the language's definitions query that occur
// at most once in the source, i.e. the declaration is the only
// occurrence. The queries are not anchored to the top level, so
// declarations nested inside functions are checked as well.
type DeadCode struct {
	g *grammar.Grammar
}

func NewDeadCode(g *grammar.Grammar) *DeadCode { return &DeadCode{g: g} }

func (d *DeadCode) Name() string { return RuleDeadCode }

func (d *DeadCode) Analyze(tree *tree_sitter.Tree, source []byte) []types.Violation {
	if tree == nil {
		return nil
	}

	var out []types.Violation
	for _, cap := range d.g.DefsCaptures(tree, source) {
		if !deadNameCaptures[cap.Name] {
			continue
		}

		name := string(source[cap.Node.StartByte():cap.Node.EndByte()])
		if name == "" || d.g.EntryPoints[name] || isDunder(name) {
			continue
		}
		if d.g.SkipsExportedDeadCode && isExportedIdent(name) {
			continue
		}

		if wordcount.Count(string(source), name) <= 1 {
			line := int(cap.Node.StartPosition().Row) + 1
			out = append(out, types.Violation{
				Rule:    RuleDeadCode,
				Message: "symbol \"" + name + "\" is declared but never referenced",
				Level:   types.LevelWarning,
				Line:    line,
				HasLine: true,
				Symbol:  name,
			})
		}
	}
	return out
}

func isExportedIdent(name string) bool {
	return len(name) > 0 && name[0] >= 'A' && name[0] <= 'Z'
}

// isDunder reports Python's double-underscore methods (__init__,
// __str__, ...), which are conventional entry points never flagged.
func isDunder(name string) bool {
	return strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__") && len(name) > 4
}
