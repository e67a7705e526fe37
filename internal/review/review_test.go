package review

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentinel-dev/sentinel/internal/types"
)

func fakeReader(lines map[string]int) FileReader {
	return func(path string, maxLines int) (string, error) {
		n, ok := lines[path]
		if !ok {
			return "", fmt.Errorf("no such file: %s", path)
		}
		if n > maxLines {
			n = maxLines
		}
		content := ""
		for i := 0; i < n; i++ {
			content += fmt.Sprintf("line %d\n", i)
		}
		return content, nil
	}
}

func namesN(n int, format string) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf(format, i)
	}
	return out
}

func TestSelectSmallModeTakesFirstEightCappedAt100Lines(t *testing.T) {
	candidates := namesN(10, "pkg/file%d.go")
	lines := make(map[string]int, len(candidates))
	for _, c := range candidates {
		lines[c] = 500
	}

	sel := Select(context.Background(), candidates, nil, nil, fakeReader(lines))
	require.Equal(t, ModeSmall, sel.Mode)
	require.Len(t, sel.Files, SmallModeMaxFiles)
	require.Equal(t, candidates[:8], filesToPaths(sel.Files))
	for _, f := range sel.Files {
		require.LessOrEqual(t, countLines(f.Content), SmallModeMaxLines)
	}
}

type fakeIndex struct {
	populated bool
	top       []string
	err       error
}

func (f fakeIndex) IsPopulated() bool { return f.populated }
func (f fakeIndex) TopFilesByIncomingCalls(ctx context.Context, limit int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.top) > limit {
		return f.top[:limit], nil
	}
	return f.top, nil
}

func TestSelectMediumModeRanksByCentralityWhenIndexPopulated(t *testing.T) {
	candidates := namesN(30, "pkg/file%d.go")
	lines := make(map[string]int, len(candidates))
	for _, c := range candidates {
		lines[c] = 10
	}

	idx := fakeIndex{populated: true, top: []string{"pkg/file29.go", "pkg/file5.go"}}
	sel := Select(context.Background(), candidates, nil, idx, fakeReader(lines))

	require.Equal(t, ModeMedium, sel.Mode)
	require.Equal(t, "pkg/file29.go", sel.Files[0].Path)
	require.Equal(t, "pkg/file5.go", sel.Files[1].Path)
	require.LessOrEqual(t, len(sel.Files), MediumModeMaxFiles)
}

func TestSelectMediumModeFallsBackToPriorityOrderWhenIndexEmpty(t *testing.T) {
	candidates := namesN(30, "pkg/file%d.go")
	lines := make(map[string]int, len(candidates))
	for _, c := range candidates {
		lines[c] = 10
	}

	idx := fakeIndex{populated: false}
	sel := Select(context.Background(), candidates, nil, idx, fakeReader(lines))

	require.Equal(t, ModeMedium, sel.Mode)
	require.Equal(t, candidates[:MediumModeMaxFiles], filesToPaths(sel.Files))
}

func TestSelectLargeModePartitionsBySubdirAlphabetically(t *testing.T) {
	var candidates []string
	lines := make(map[string]int)
	for _, dir := range []string{"zeta", "alpha", "mid"} {
		for i := 0; i < 12; i++ {
			path := filepath.ToSlash(filepath.Join(dir, fmt.Sprintf("f%d.go", i)))
			candidates = append(candidates, path)
			lines[path] = 200
		}
	}
	// Push total above the large-mode threshold.
	for i := 0; i < 50; i++ {
		path := fmt.Sprintf("extra/f%d.go", i)
		candidates = append(candidates, path)
		lines[path] = 5
	}

	sel := Select(context.Background(), candidates, nil, nil, fakeReader(lines))
	require.Equal(t, ModeLarge, sel.Mode)

	firstGroup := topLevelDir(sel.Files[0].Path)
	require.Equal(t, "alpha", firstGroup)
	for _, f := range sel.Files {
		require.LessOrEqual(t, countLines(f.Content), LargeModeMaxLinesPerFile)
	}
}

func TestSelectInjectsDiffFilesAtFrontAndNotesThemInCoverage(t *testing.T) {
	candidates := namesN(10, "pkg/file%d.go")
	diff := []string{"pkg/changed.go"}
	lines := make(map[string]int, len(candidates)+1)
	for _, c := range candidates {
		lines[c] = 10
	}
	lines["pkg/changed.go"] = 10

	sel := Select(context.Background(), candidates, diff, nil, fakeReader(lines))
	require.Equal(t, "pkg/changed.go", sel.Files[0].Path)
	require.Contains(t, sel.Coverage, "1 del diff reciente")
}

func TestSelectCoverageSummaryReportsFilesLinesModeAndTotal(t *testing.T) {
	candidates := namesN(5, "pkg/file%d.go")
	lines := make(map[string]int, len(candidates))
	for _, c := range candidates {
		lines[c] = 3
	}

	sel := Select(context.Background(), candidates, nil, nil, fakeReader(lines))
	require.Equal(t, "small mode: 5/5 files included, 15 lines", sel.Coverage)
}

func TestSelectSkipsFilesThatFailToRead(t *testing.T) {
	candidates := []string{"pkg/ok.go", "pkg/missing.go"}
	lines := map[string]int{"pkg/ok.go": 5}

	sel := Select(context.Background(), candidates, nil, nil, fakeReader(lines))
	require.Len(t, sel.Files, 1)
	require.Equal(t, "pkg/ok.go", sel.Files[0].Path)
}

func TestSaveWritesOneImmutableRecordPerTimestamp(t *testing.T) {
	root := t.TempDir()
	rec := types.ReviewRecord{
		Timestamp:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ProjectRoot:   root,
		FilesReviewed: 3,
		Suggestions:   []string{"tighten error handling in pkg/file0.go"},
	}

	path, err := Save(root, rec)
	require.NoError(t, err)
	require.FileExists(t, path)
	require.Contains(t, path, "20260102T030405")
}

func filesToPaths(files []SelectedFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func countLines(content string) int {
	if content == "" {
		return 0
	}
	n := 0
	for _, c := range content {
		if c == '\n' {
			n++
		}
	}
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
