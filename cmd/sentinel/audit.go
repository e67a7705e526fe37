package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sentinel-dev/sentinel/internal/audit"
	"github.com/sentinel-dev/sentinel/internal/collab"
	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/logging"
	"github.com/sentinel-dev/sentinel/internal/types"
)

func auditCmd() *cli.Command {
	return &cli.Command{
		Name:      "audit",
		Usage:     "Batched LLM audit of target files",
		ArgsUsage: "<target>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-fix", Usage: "Never prompt to apply fixes"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Output format: text, json", Value: "text"},
			&cli.IntFlag{Name: "max-files", Usage: "Max files per batch", Value: audit.MaxFilesPerBatch},
			&cli.IntFlag{Name: "concurrency", Aliases: []string{"k"}, Usage: "Parallel LLM calls (clamped to 1-10)", Value: audit.DefaultConcurrency},
		},
		Action: auditAction,
	}
}

func auditAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("usage: sentinel audit <target>", exitBadPath)
	}
	format := c.String("format")
	if format != "text" && format != "json" {
		return cli.Exit(fmt.Sprintf("unknown format %q (want text or json)", format), exitBadPath)
	}
	if format == "json" {
		logging.SetQuietStdout(true)
	}

	root, err := projectRoot(c)
	if err != nil {
		return userExit(err)
	}
	cfg, err := config.Load(root)
	if err != nil {
		return userExit(err)
	}

	files, err := collectFiles(root, c.Args().First(), cfg)
	if err != nil {
		return userExit(err)
	}
	if len(files) == 0 {
		fmt.Println("no auditable files in target")
		return nil
	}

	llm, err := newLLMFromEnv()
	if err != nil {
		return cli.Exit(fmt.Sprintf("audit needs an LLM: %v", err), exitViolation)
	}

	// Fix application needs a terminal and the user's consent; --no-fix
	// or piped stdout force report-only mode.
	if c.Bool("no-fix") || !stdoutIsTerminal() {
		logging.Audit("non-interactive mode: reporting findings only")
	}

	counter := func(rel string) (int, error) {
		return countFileLines(filepath.Join(root, filepath.FromSlash(rel)))
	}
	batches := audit.BuildBatches(files, c.Int("max-files"), audit.MaxLinesPerBatch, counter)
	logging.Audit("auditing %d files in %d batches", len(files), len(batches))

	findings, runErr := audit.Run(c.Context, batches, llm, c.Int("concurrency"), func(ctx context.Context, b types.AuditBatch, llm collab.LLM) ([]types.AuditFinding, error) {
		return runAuditBatch(ctx, root, b, llm)
	})

	failed := 0
	timedOut := false
	if runErr != nil {
		var multi interface{ Unwrap() []error }
		if errors.As(runErr, &multi) {
			for _, e := range multi.Unwrap() {
				failed++
				if errors.Is(e, context.DeadlineExceeded) {
					timedOut = true
				}
				logging.Error("audit batch failed: %v", e)
			}
		} else {
			failed = 1
			timedOut = errors.Is(runErr, context.DeadlineExceeded)
		}
	}

	if format == "json" {
		if err := renderAuditJSON(os.Stdout, len(batches), failed, findings); err != nil {
			return userExit(err)
		}
	} else {
		renderAuditText(len(batches), failed, findings)
	}

	if timedOut && len(findings) == 0 {
		return cli.Exit("", exitTimeout)
	}
	// Partial batch failures still exit 0 when other batches
	// succeeded.
	if failed == len(batches) && failed > 0 {
		return cli.Exit("", exitViolation)
	}
	return nil
}

func stdoutIsTerminal() bool {
	stat, err := os.Stdout.Stat()
	return err == nil && stat.Mode()&os.ModeCharDevice != 0
}

func countFileLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}

// runAuditBatch assembles one batch's prompt, calls the LLM under the
// deep deadline, and parses the response.
func runAuditBatch(ctx context.Context, root string, b types.AuditBatch, llm collab.LLM) ([]types.AuditFinding, error) {
	ctx, cancel := context.WithTimeout(ctx, llmDeepTimeout)
	defer cancel()

	var prompt strings.Builder
	prompt.WriteString("Audit the following related source files for defects, dead code, and risky patterns.\n")
	prompt.WriteString("Reply with a JSON array of {\"title\",\"file\",\"message\",\"severity\"} objects and nothing else.\n\n")
	for _, rel := range b.Files {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		fmt.Fprintf(&prompt, "=== %s ===\n%s\n", rel, content)
	}

	text, err := llm.Chat(ctx, prompt.String(), "")
	if err != nil {
		return nil, err
	}
	return parseAuditFindings(text, b), nil
}

type auditIssueJSON struct {
	Title    string `json:"title"`
	File     string `json:"file"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// parseAuditFindings expects the JSON array the prompt asked for,
// tolerating fenced code blocks around it. A response that isn't JSON
// at all becomes one finding carrying the raw text, attributed to the
// batch's first file. Losing structure beats losing the response.
func parseAuditFindings(text string, b types.AuditBatch) []types.AuditFinding {
	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var issues []auditIssueJSON
	if err := json.Unmarshal([]byte(trimmed), &issues); err != nil {
		if trimmed == "" || len(b.Files) == 0 {
			return nil
		}
		return []types.AuditFinding{{
			Title:    "audit response",
			FilePath: b.Files[0],
			Message:  trimmed,
			Level:    types.LevelInfo,
		}}
	}

	out := make([]types.AuditFinding, 0, len(issues))
	for _, issue := range issues {
		if issue.Title == "" && issue.Message == "" {
			continue
		}
		file := issue.File
		if file == "" && len(b.Files) > 0 {
			file = b.Files[0]
		}
		out = append(out, types.AuditFinding{
			Title:    issue.Title,
			FilePath: file,
			Message:  issue.Message,
			Level:    auditLevel(issue.Severity),
		})
	}
	return out
}

func auditLevel(severity string) types.Level {
	switch strings.ToLower(severity) {
	case "error", "high", "critical":
		return types.LevelError
	case "info", "low":
		return types.LevelInfo
	default:
		return types.LevelWarning
	}
}

func renderAuditText(batches, failed int, findings []types.AuditFinding) {
	var currentFile string
	for _, f := range findings {
		if f.FilePath != currentFile {
			currentFile = f.FilePath
			fmt.Println(currentFile)
		}
		fmt.Printf("  [%s] %s: %s\n", strings.ToUpper(string(f.Level)), f.Title, f.Message)
	}
	fmt.Printf("%d issues across %d batches", len(findings), batches)
	if failed > 0 {
		fmt.Printf(" (%d batches failed)", failed)
	}
	fmt.Println()
}

type auditReport struct {
	Batches int                `json:"batches"`
	Failed  int                `json:"failed"`
	Issues  []auditIssueReport `json:"issues"`
}

type auditIssueReport struct {
	File     string `json:"file"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

func renderAuditJSON(w *os.File, batches, failed int, findings []types.AuditFinding) error {
	report := auditReport{Batches: batches, Failed: failed, Issues: make([]auditIssueReport, len(findings))}
	for i, f := range findings {
		report.Issues[i] = auditIssueReport{File: f.FilePath, Title: f.Title, Message: f.Message, Severity: string(f.Level)}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
