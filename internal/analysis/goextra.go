package analysis

import (
	"regexp"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sentinel-dev/sentinel/internal/grammar"
	"github.com/sentinel-dev/sentinel/internal/types"
)

// Go-only extras: UNCHECKED_ERROR, NAMING_CONVENTION_GO,
// DEFER_IN_LOOP. These inspect tree-sitter-go node shapes directly
// rather than through the shared definitions query, since none of
// them are expressible as a plain name capture.

// UncheckedError flags `_, _ := someCall()`: a short variable
// declaration whose right side is a call and whose left side is
// entirely blank identifiers.
type UncheckedError struct{ g *grammar.Grammar }

func NewUncheckedError(g *grammar.Grammar) *UncheckedError { return &UncheckedError{g: g} }

func (u *UncheckedError) Name() string { return RuleUncheckedError }

func (u *UncheckedError) Analyze(tree *tree_sitter.Tree, source []byte) []types.Violation {
	if tree == nil {
		return nil
	}
	var out []types.Violation
	walk(tree.RootNode(), func(node *tree_sitter.Node) {
		if node.Kind() != "short_var_declaration" {
			return
		}
		left := node.ChildByFieldName("left")
		right := node.ChildByFieldName("right")
		if left == nil || right == nil {
			return
		}
		if !allBlankIdentifiers(left, source) {
			return
		}

		callee := ""
		if right.NamedChildCount() == 1 {
			call := right.NamedChild(0)
			if call != nil && call.Kind() == "call_expression" {
				if fn := call.ChildByFieldName("function"); fn != nil {
					callee = string(source[fn.StartByte():fn.EndByte()])
				}
			}
		}
		if callee == "" {
			return
		}

		out = append(out, types.Violation{
			Rule:    RuleUncheckedError,
			Message: "return value of \"" + callee + "\" is discarded",
			Level:   types.LevelWarning,
			Line:    int(node.StartPosition().Row) + 1,
			HasLine: true,
		})
	})
	return out
}

func allBlankIdentifiers(list *tree_sitter.Node, source []byte) bool {
	if list.NamedChildCount() == 0 {
		return false
	}
	for i := uint(0); i < list.NamedChildCount(); i++ {
		child := list.NamedChild(i)
		if child == nil || string(source[child.StartByte():child.EndByte()]) != "_" {
			return false
		}
	}
	return true
}

var goConstShoutRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]+$`)

// NamingGo flags const identifiers shaped like SHOUTING_SNAKE_CASE,
// recommending Go's conventional PascalCase instead.
type NamingGo struct{ g *grammar.Grammar }

func NewNamingGo(g *grammar.Grammar) *NamingGo { return &NamingGo{g: g} }

func (n *NamingGo) Name() string { return RuleNamingGo }

func (n *NamingGo) Analyze(tree *tree_sitter.Tree, source []byte) []types.Violation {
	if tree == nil {
		return nil
	}
	var out []types.Violation
	for _, cap := range n.g.DefsCaptures(tree, source) {
		if cap.Name != "const.name" {
			continue
		}
		name := string(source[cap.Node.StartByte():cap.Node.EndByte()])
		if goConstShoutRe.MatchString(name) {
			out = append(out, types.Violation{
				Rule:    RuleNamingGo,
				Message: "const \"" + name + "\" should use PascalCase, not SHOUTING_CASE",
				Level:   types.LevelInfo,
				Line:    int(cap.Node.StartPosition().Row) + 1,
				HasLine: true,
				Symbol:  name,
			})
		}
	}
	return out
}

// DeferInLoop flags a defer statement nested inside a for loop, the
// deferred call won't run until the enclosing function returns, not
// each iteration.
type DeferInLoop struct{ g *grammar.Grammar }

func NewDeferInLoop(g *grammar.Grammar) *DeferInLoop { return &DeferInLoop{g: g} }

func (d *DeferInLoop) Name() string { return RuleDeferInLoop }

func (d *DeferInLoop) Analyze(tree *tree_sitter.Tree, source []byte) []types.Violation {
	if tree == nil {
		return nil
	}
	seen := map[uint]bool{}
	var out []types.Violation
	walk(tree.RootNode(), func(node *tree_sitter.Node) {
		if node.Kind() != "for_statement" {
			return
		}
		walk(node, func(inner *tree_sitter.Node) {
			if inner.Kind() != "defer_statement" {
				return
			}
			start := inner.StartByte()
			if seen[start] {
				return
			}
			seen[start] = true
			out = append(out, types.Violation{
				Rule:    RuleDeferInLoop,
				Message: "defer inside a loop runs at function return, not per iteration",
				Level:   types.LevelWarning,
				Line:    int(inner.StartPosition().Row) + 1,
				HasLine: true,
			})
		})
	})
	return out
}

// walk visits node and every descendant, depth-first.
func walk(node *tree_sitter.Node, visit func(*tree_sitter.Node)) {
	if node == nil {
		return
	}
	visit(node)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		walk(child, visit)
	}
}
