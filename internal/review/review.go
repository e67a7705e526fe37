// Package review implements the review context selector: given a
// priority-ordered candidate file list too large to hand an LLM
// whole, it picks a bounded slice sized to the project's scale and
// reports what it left out. Medium-mode ranking uses centrality:
// incoming call-edge counts from the call_graph table.
package review

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/sentinel-dev/sentinel/internal/types"
)

// Mode is which of the three sizing strategies Select chose.
type Mode string

const (
	ModeSmall  Mode = "small"
	ModeMedium Mode = "medium"
	ModeLarge  Mode = "large"
)

// Sizing thresholds and per-mode caps.
const (
	SmallModeThreshold  = 20 // < this many candidates: small mode
	MediumModeThreshold = 80 // <= this many candidates: medium mode; above: large

	SmallModeMaxFiles  = 8
	SmallModeMaxLines  = 100
	MediumModeMaxFiles = 20
	MediumModeMaxLines = 150

	LargeModeGroups          = 6
	LargeModeFilesPerGroup   = 10
	LargeModeMaxLinesPerFile = 80
)

// Index is the subset of *store.Store review needs for medium-mode
// centrality ranking. Defined narrowly here (rather than imported from
// store) so review doesn't depend on the store package's connection
// lifecycle, matching the narrow-interface shape internal/engine uses.
type Index interface {
	IsPopulated() bool
	TopFilesByIncomingCalls(ctx context.Context, limit int) ([]string, error)
}

// SelectedFile is one file admitted into the review set, truncated to
// its mode's line cap.
type SelectedFile struct {
	Path    string
	Content string
}

// Selection is the review selector's output: the files chosen, which mode produced
// them, and a one-line coverage summary.
type Selection struct {
	Mode     Mode
	Files    []SelectedFile
	Coverage string
}

// Select dispatches to small/medium/large mode by candidate count.
// candidates must already be in framework-priority order; diffFiles,
// when non-empty, are files an external git hook reports changed
// against HEAD and are injected at the front of candidates before
// sizing. read loads one file truncated to at most maxLines lines; a
// read failure drops that file from the selection rather than failing
// the whole call.
func Select(ctx context.Context, candidates, diffFiles []string, idx Index, read FileReader) Selection {
	ordered := injectDiffFiles(candidates, diffFiles)
	total := len(ordered)

	var (
		mode    Mode
		picked  []string
		maxLine int
	)

	switch {
	case total < SmallModeThreshold:
		mode, maxLine = ModeSmall, SmallModeMaxLines
		picked = firstN(ordered, SmallModeMaxFiles)
	case total <= MediumModeThreshold:
		mode, maxLine = ModeMedium, MediumModeMaxLines
		picked = rankedByCentrality(ctx, ordered, idx)
		picked = firstN(picked, MediumModeMaxFiles)
	default:
		mode, maxLine = ModeLarge, LargeModeMaxLinesPerFile
		picked = partitionedSample(ordered)
	}

	files := readAll(picked, maxLine, read)
	return Selection{
		Mode:     mode,
		Files:    files,
		Coverage: coverage(mode, files, total, len(diffFiles)),
	}
}

// injectDiffFiles puts diffFiles first, de-duplicated against each
// other and against candidates, preserving candidates' own order for
// everything else.
func injectDiffFiles(candidates, diffFiles []string) []string {
	if len(diffFiles) == 0 {
		return candidates
	}
	seen := make(map[string]bool, len(candidates)+len(diffFiles))
	out := make([]string, 0, len(candidates)+len(diffFiles))
	for _, f := range diffFiles {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, f := range candidates {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func firstN(files []string, n int) []string {
	if len(files) <= n {
		return files
	}
	return files[:n]
}

// rankedByCentrality re-orders ordered by the index store's incoming-call-edge
// count, falling back to the given priority order when the index has
// never been populated or the ranking query fails.
func rankedByCentrality(ctx context.Context, ordered []string, idx Index) []string {
	if idx == nil || !idx.IsPopulated() {
		return ordered
	}
	ranked, err := idx.TopFilesByIncomingCalls(ctx, MediumModeMaxFiles)
	if err != nil || len(ranked) == 0 {
		return ordered
	}

	candidateSet := make(map[string]bool, len(ordered))
	for _, f := range ordered {
		candidateSet[f] = true
	}

	out := make([]string, 0, len(ranked))
	seen := make(map[string]bool, len(ranked))
	for _, f := range ranked {
		if candidateSet[f] && !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	// Files the index ranked but that fell outside this call's
	// candidate set are useless here; pad with the remaining
	// candidates in priority order so medium mode still fills up.
	for _, f := range ordered {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// partitionedSample implements large mode: partition candidates by
// top-level subdirectory, sorted alphabetically, then take the first
// LargeModeGroups groups and the first LargeModeFilesPerGroup files of
// each.
func partitionedSample(ordered []string) []string {
	groupOrder := make([]string, 0)
	groups := make(map[string][]string)
	for _, f := range ordered {
		top := topLevelDir(f)
		if _, ok := groups[top]; !ok {
			groupOrder = append(groupOrder, top)
		}
		groups[top] = append(groups[top], f)
	}
	sort.Strings(groupOrder)

	var picked []string
	for i, top := range groupOrder {
		if i >= LargeModeGroups {
			break
		}
		picked = append(picked, firstN(groups[top], LargeModeFilesPerGroup)...)
	}
	return picked
}

func topLevelDir(path string) string {
	path = strings.TrimPrefix(strings.TrimPrefix(path, "./"), "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return "."
}

// FileReader loads path truncated to at most maxLines lines. Injected
// so tests can supply an in-memory fixture instead of touching disk.
type FileReader func(path string, maxLines int) (string, error)

// ReadTruncated is the default FileReader: reads path from disk and
// keeps only its first maxLines lines.
func ReadTruncated(path string, maxLines int) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(string(raw), "\n")
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return strings.Join(lines, "\n"), nil
}

func readAll(paths []string, maxLines int, read FileReader) []SelectedFile {
	if read == nil {
		read = ReadTruncated
	}
	out := make([]SelectedFile, 0, len(paths))
	for _, p := range paths {
		content, err := read(p, maxLines)
		if err != nil {
			continue
		}
		out = append(out, SelectedFile{Path: p, Content: content})
	}
	return out
}

// coverage renders the one-line summary: files
// included, total lines, mode label, total candidates available, plus
// a "N del diff reciente" note when diff files were injected.
func coverage(mode Mode, files []SelectedFile, total, diffCount int) string {
	lines := 0
	for _, f := range files {
		lines += countContentLines(f.Content)
	}

	summary := fmt.Sprintf("%s mode: %d/%d files included, %d lines", mode, len(files), total, lines)
	if diffCount > 0 {
		summary += fmt.Sprintf(" (%d del diff reciente)", diffCount)
	}
	return summary
}

// countContentLines counts terminated lines in content, plus one more
// for a trailing unterminated line, so "a\nb\n" (two complete lines)
// and "a\nb" (one complete, one partial) both count as 2.
func countContentLines(content string) int {
	if content == "" {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

// ToRecord captures a Selection as the persisted artefact: one
// immutable JSON file per review invocation. at is
// passed in rather than taken from time.Now() so callers control the
// timestamp that ends up both in the record and in its file name.
func ToRecord(projectRoot string, at time.Time, sel Selection, suggestions []string) types.ReviewRecord {
	return types.ReviewRecord{
		Timestamp:     at,
		ProjectRoot:   projectRoot,
		FilesReviewed: len(sel.Files),
		Suggestions:   suggestions,
	}
}
