package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/git"
	"github.com/sentinel-dev/sentinel/internal/logging"
	"github.com/sentinel-dev/sentinel/internal/review"
	"github.com/sentinel-dev/sentinel/internal/types"
)

func reviewCmd() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "One architectural LLM pass over representative project files",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "history", Usage: "List previous review records"},
			&cli.BoolFlag{Name: "diff", Usage: "Prioritize files changed against HEAD"},
		},
		Action: reviewAction,
	}
}

func reviewAction(c *cli.Context) error {
	root, err := projectRoot(c)
	if err != nil {
		return userExit(err)
	}

	if c.Bool("history") {
		return reviewHistory(root)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return userExit(err)
	}

	candidates, err := collectFiles(root, root, cfg)
	if err != nil {
		return userExit(err)
	}
	if len(candidates) == 0 {
		return cli.Exit("no reviewable files in project", exitViolation)
	}
	sortByFrameworkPriority(candidates, cfg)

	var diffFiles []string
	if c.Bool("diff") {
		diffFiles = changedCandidates(c.Context, root, cfg)
	}

	st, err := openStoreIfPresent(root)
	if err != nil {
		return userExit(err)
	}
	var idx review.Index
	if st != nil {
		defer st.Close()
		idx = st
	}

	reader := func(rel string, maxLines int) (string, error) {
		return review.ReadTruncated(filepath.Join(root, filepath.FromSlash(rel)), maxLines)
	}
	sel := review.Select(c.Context, candidates, diffFiles, idx, reader)
	fmt.Println(sel.Coverage)

	llm, err := newLLMFromEnv()
	if err != nil {
		return cli.Exit(fmt.Sprintf("review needs an LLM: %v", err), exitViolation)
	}

	suggestions, err := runReviewPass(c.Context, sel, llm)
	if err != nil {
		return cli.Exit(fmt.Sprintf("review pass failed: %v", err), exitViolation)
	}

	rec := review.ToRecord(root, time.Now(), sel, suggestions)
	path, err := review.Save(root, rec)
	if err != nil {
		return userExit(err)
	}

	for _, s := range suggestions {
		fmt.Printf("- %s\n", s)
	}
	fmt.Printf("review saved: %s\n", path)
	return nil
}

// sortByFrameworkPriority orders candidates by their extension's
// position in cfg.FileExtensions (the project's primary language
// first), then by path for determinism.
func sortByFrameworkPriority(files []string, cfg *config.Config) {
	rank := make(map[string]int, len(cfg.FileExtensions))
	for i, ext := range cfg.FileExtensions {
		rank[ext] = i
	}
	priority := func(f string) int {
		if r, ok := rank[extensionOf(f)]; ok {
			return r
		}
		return len(cfg.FileExtensions)
	}
	sort.SliceStable(files, func(i, j int) bool {
		if priority(files[i]) != priority(files[j]) {
			return priority(files[i]) < priority(files[j])
		}
		return files[i] < files[j]
	})
}

// changedCandidates asks git for working-tree changes against HEAD,
// keeping only still-existing files the project's config covers. Any
// git failure degrades to no diff injection.
func changedCandidates(ctx context.Context, root string, cfg *config.Config) []string {
	provider, err := git.NewProvider(root)
	if err != nil {
		logging.Review("no git diff available: %v", err)
		return nil
	}
	changed, err := provider.ChangedFiles(ctx)
	if err != nil {
		logging.Review("no git diff available: %v", err)
		return nil
	}

	var out []string
	for _, f := range changed {
		if f.Status == git.StatusDeleted {
			continue
		}
		if cfg.HasExtension(extensionOf(f.Path)) {
			out = append(out, filepath.ToSlash(f.Path))
		}
	}
	return out
}

func runReviewPass(ctx context.Context, sel review.Selection, llm *httpLLM) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, llmDeepTimeout)
	defer cancel()

	var prompt strings.Builder
	prompt.WriteString("Review the architecture of this project from the representative files below.\n")
	prompt.WriteString("Reply with one suggestion per line, no preamble.\n\n")
	for _, f := range sel.Files {
		fmt.Fprintf(&prompt, "=== %s ===\n%s\n", f.Path, f.Content)
	}

	text, err := llm.Chat(ctx, prompt.String(), "")
	if err != nil {
		return nil, err
	}

	var suggestions []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" {
			suggestions = append(suggestions, line)
		}
	}
	return suggestions, nil
}

func reviewHistory(root string) error {
	entries, err := os.ReadDir(review.RecordsDir(root))
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("no reviews recorded yet")
			return nil
		}
		return userExit(err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, readErr := os.ReadFile(filepath.Join(review.RecordsDir(root), e.Name()))
		if readErr != nil {
			continue
		}
		var rec types.ReviewRecord
		if json.Unmarshal(data, &rec) != nil {
			continue
		}
		fmt.Printf("%s  %d files, %d suggestions\n",
			rec.Timestamp.Local().Format(time.RFC3339), rec.FilesReviewed, len(rec.Suggestions))
	}
	return nil
}
