package profile

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingReturnsNilNil(t *testing.T) {
	p, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestLoadParsesRulesAndCompilesPatterns(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".sentinel"), 0o755))
	doc := `
framework: nestjs
rules:
  - name: no-repository-import-in-controller
    file_glob: "**/*.controller.ts"
    forbidden_pattern: "from '.*\\.repository'"
  - name: service-requires-injectable
    file_glob: "**/*.service.ts"
    required_import: "@Injectable"
`
	require.NoError(t, os.WriteFile(Path(root), []byte(doc), 0o644))

	p, err := Load(root)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.Equal(t, "nestjs", p.Framework)
	require.Len(t, p.Rules, 2)
}

func TestCheckFlagsForbiddenPatternOnlyForMatchingGlob(t *testing.T) {
	p := &Profile{Rules: []Rule{{
		Name:     "no-repository-import-in-controller",
		FileGlob: "**/*.controller.ts",
	}}}
	p.Rules[0].compiled = regexp.MustCompile(`from '.*\.repository'`)

	violations := p.Check("src/user.controller.ts", []byte("import { Repo } from './user.repository';\n"))
	require.Len(t, violations, 1)
	require.Equal(t, "no-repository-import-in-controller", violations[0].Rule)

	violations = p.Check("src/user.service.ts", []byte("import { Repo } from './user.repository';\n"))
	require.Empty(t, violations)
}

func TestCheckFlagsMissingRequiredImport(t *testing.T) {
	p := &Profile{Rules: []Rule{{
		Name:           "service-requires-injectable",
		FileGlob:       "**/*.service.ts",
		RequiredImport: "@Injectable",
	}}}

	violations := p.Check("src/user.service.ts", []byte("export class UserService {}\n"))
	require.Len(t, violations, 1)

	violations = p.Check("src/user.service.ts", []byte("@Injectable()\nexport class UserService {}\n"))
	require.Empty(t, violations)
}

func TestCheckOnNilProfileReturnsNil(t *testing.T) {
	var p *Profile
	require.Nil(t, p.Check("x.ts", []byte("")))
}
