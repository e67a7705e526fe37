package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/types"
)

func TestStalenessThreshold(t *testing.T) {
	require.Equal(t, 5, staleness(0))
	require.Equal(t, 5, staleness(40))
	require.Equal(t, 5, staleness(50))
	require.Equal(t, 10, staleness(100))
	require.Equal(t, 120, staleness(1200))
}

func TestCollectFilesSingleFileAndDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "app.ts"), []byte("export {}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "notes.txt"), []byte("skip me\n"), 0o644))

	cfg := config.Default()

	files, err := collectFiles(root, "src/app.ts", cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"src/app.ts"}, files)

	files, err = collectFiles(root, "src", cfg)
	require.NoError(t, err)
	require.Equal(t, []string{"src/app.ts"}, files)
}

func TestCollectFilesMissingTargetIsUserError(t *testing.T) {
	_, err := collectFiles(t.TempDir(), "no/such/path", config.Default())
	require.Error(t, err)
}

func TestCollectFilesSkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "dep"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "dep", "index.js"), []byte("x\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.js"), []byte("x\n"), 0o644))

	files, err := collectFiles(root, root, config.Default())
	require.NoError(t, err)
	require.Equal(t, []string{"main.js"}, files)
}

func TestSortByFrameworkPriorityOrdersByExtensionThenPath(t *testing.T) {
	cfg := config.Default() // ts before go in the default ordering
	files := []string{"b.go", "z.ts", "a.go", "a.ts"}
	sortByFrameworkPriority(files, cfg)
	require.Equal(t, []string{"a.ts", "z.ts", "a.go", "b.go"}, files)
}

func TestParseAuditFindingsJSONArray(t *testing.T) {
	batch := types.AuditBatch{Files: []string{"src/user.service.ts"}}
	text := "```json\n[{\"title\":\"Unchecked null\",\"file\":\"src/user.service.ts\",\"message\":\"guard the lookup\",\"severity\":\"high\"}]\n```"

	findings := parseAuditFindings(text, batch)
	require.Len(t, findings, 1)
	require.Equal(t, "Unchecked null", findings[0].Title)
	require.Equal(t, types.LevelError, findings[0].Level)
}

func TestParseAuditFindingsFallsBackToRawText(t *testing.T) {
	batch := types.AuditBatch{Files: []string{"a.ts", "b.ts"}}
	findings := parseAuditFindings("The code looks fine overall.", batch)
	require.Len(t, findings, 1)
	require.Equal(t, "a.ts", findings[0].FilePath)
	require.Equal(t, types.LevelInfo, findings[0].Level)
}

func TestParseAuditFindingsFillsMissingFileFromBatch(t *testing.T) {
	batch := types.AuditBatch{Files: []string{"a.ts"}}
	findings := parseAuditFindings(`[{"title":"dup","message":"copy of helper"}]`, batch)
	require.Len(t, findings, 1)
	require.Equal(t, "a.ts", findings[0].FilePath)
}

func TestAuditLevelMapping(t *testing.T) {
	require.Equal(t, types.LevelError, auditLevel("critical"))
	require.Equal(t, types.LevelInfo, auditLevel("low"))
	require.Equal(t, types.LevelWarning, auditLevel("medium"))
	require.Equal(t, types.LevelWarning, auditLevel(""))
}

func TestDetectExtensionsFindsKnownLanguages(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.py"), []byte("pass\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("docs\n"), 0o644))

	detected := detectExtensions(root)
	require.ElementsMatch(t, []string{"go", "py"}, detected)
}
