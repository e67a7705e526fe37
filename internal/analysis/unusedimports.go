package analysis

import (
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/sentinel-dev/sentinel/internal/grammar"
	"github.com/sentinel-dev/sentinel/internal/types"
	"github.com/sentinel-dev/sentinel/internal/wordcount"
)

var goVersionSuffix = regexp.MustCompile(`^v\d+$`)

// UnusedImports flags an import whose binding name occurs at most
// once in the source, i.e. only the import line itself.
type UnusedImports struct {
	g *grammar.Grammar
}

func NewUnusedImports(g *grammar.Grammar) *UnusedImports { return &UnusedImports{g: g} }

func (u *UnusedImports) Name() string { return RuleUnusedImport }

func (u *UnusedImports) Analyze(tree *tree_sitter.Tree, source []byte) []types.Violation {
	if tree == nil {
		return nil
	}

	var out []types.Violation
	for _, cap := range u.g.DefsCaptures(tree, source) {
		if cap.Name != "import.name" && cap.Name != "import.src" {
			continue
		}

		raw := string(source[cap.Node.StartByte():cap.Node.EndByte()])
		binding := importBinding(u.g.Name, cap.Name, raw)
		// Go blank and dot imports arrive verbatim through the
		// import.name capture and are exempt.
		if binding == "" || binding == "_" || binding == "." {
			continue
		}

		if wordcount.Count(string(source), binding) <= 1 {
			line := int(cap.Node.StartPosition().Row) + 1
			out = append(out, types.Violation{
				Rule:    RuleUnusedImport,
				Message: "import \"" + binding + "\" is never referenced",
				Level:   types.LevelWarning,
				Line:    line,
				HasLine: true,
				Symbol:  binding,
			})
		}
	}
	return out
}

// importBinding derives the identifier a language binds an import to,
// from either a direct binding capture (import.name, already an
// identifier, used as-is) or a source-path capture (import.src, a
// quoted string or dotted path that must be reduced to its bound name).
func importBinding(language, captureName, raw string) string {
	if captureName == "import.name" {
		return raw
	}

	path := strings.Trim(raw, `"'<>`)
	switch language {
	case "go":
		seg := lastSegment(path, "/")
		if goVersionSuffix.MatchString(seg) {
			segs := strings.Split(strings.TrimSuffix(path, "/"+seg), "/")
			if len(segs) > 0 {
				seg = segs[len(segs)-1]
			}
		}
		return seg
	case "python":
		// `import a.b.c` binds the name `a`.
		parts := strings.SplitN(path, ".", 2)
		return parts[0]
	case "rust":
		return lastSegment(path, "::")
	case "java", "csharp":
		return lastSegment(path, ".")
	case "php":
		return lastSegment(path, `\`)
	case "cpp":
		seg := lastSegment(path, "/")
		return strings.TrimSuffix(seg, ".h")
	case "typescript", "tsx", "javascript":
		// The module source binds nothing; the imported names arrive
		// through import.name captures.
		return ""
	default:
		return path
	}
}

func lastSegment(s, sep string) string {
	parts := strings.Split(s, sep)
	return parts[len(parts)-1]
}
