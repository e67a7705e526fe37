// Package audit implements the audit batcher and the
// bounded-parallelism executor that runs each batch through an LLM
// collaborator. Batching groups target files by
// (parent_dir, module_prefix) and caps each batch by file/line count;
// the executor fans out over golang.org/x/sync/semaphore with
// retry-with-backoff and completion-order dedup.
package audit

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sentinel-dev/sentinel/internal/collab"
	"github.com/sentinel-dev/sentinel/internal/errs"
	"github.com/sentinel-dev/sentinel/internal/types"
)

const (
	MaxFilesPerBatch = 8
	MaxLinesPerBatch = 800

	DefaultConcurrency = 3
	MinConcurrency     = 1
	MaxConcurrency     = 10

	MaxAttempts = 3
)

// RetryBackoff is the pause between retry attempts. A var, not a
// const, so tests can shrink it.
var RetryBackoff = 2 * time.Second

// LineCounter returns the line count of one file, keyed by the same
// path string BuildBatches was given. Reading is left to the caller so
// tests can supply an in-memory fixture instead of touching disk.
type LineCounter func(path string) (int, error)

// BuildBatches groups files into AuditBatches. Files are
// grouped by (parent_dir, module_prefix) in first-encounter order;
// within a group, files accumulate into the current batch until the
// next file would push it past maxFiles or maxLines, at which point
// the batch closes and a new one opens. A single file whose own line
// count exceeds maxLines is still included, alone, as its own batch.
// maxFiles/maxLines <= 0 fall back to the package defaults.
func BuildBatches(files []string, maxFiles, maxLines int, lineCount LineCounter) []types.AuditBatch {
	if maxFiles <= 0 {
		maxFiles = MaxFilesPerBatch
	}
	if maxLines <= 0 {
		maxLines = MaxLinesPerBatch
	}

	type group struct {
		parentDir, modulePrefix string
		files                   []string
	}

	var order []string
	groups := make(map[string]*group)

	for _, f := range files {
		parentDir := filepath.Dir(f)
		prefix := modulePrefix(f)
		key := parentDir + "\x00" + prefix

		g, ok := groups[key]
		if !ok {
			g = &group{parentDir: parentDir, modulePrefix: prefix}
			groups[key] = g
			order = append(order, key)
		}
		g.files = append(g.files, f)
	}

	var batches []types.AuditBatch
	for _, key := range order {
		g := groups[key]

		var current []string
		currentLines := 0
		flush := func() {
			if len(current) == 0 {
				return
			}
			batches = append(batches, types.AuditBatch{
				ParentDir: g.parentDir, ModulePrefix: g.modulePrefix, Files: current,
			})
			current = nil
			currentLines = 0
		}

		for _, f := range g.files {
			lines := 0
			if lineCount != nil {
				if n, err := lineCount(f); err == nil {
					lines = n
				}
			}

			if len(current) > 0 && (len(current) >= maxFiles || currentLines+lines > maxLines) {
				flush()
			}
			current = append(current, f)
			currentLines += lines
			if lines > maxLines {
				// A file that alone exceeds the cap is batched alone
				// rather than held open waiting for a peer that would
				// never fit.
				flush()
			}
		}
		flush()
	}
	return batches
}

// modulePrefix is the filename stem up to the first '.', so
// "user.service.ts" and "user.controller.ts" share a prefix while
// "auth.service.ts" does not.
func modulePrefix(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i >= 0 {
		return base[:i]
	}
	return base
}

// BatchRunner turns one batch into a prompt, calls llm, and parses the
// response into findings. Supplied by the caller, since prompt construction
// and response parsing are presentation concerns the core doesn't own.
type BatchRunner func(ctx context.Context, batch types.AuditBatch, llm collab.LLM) ([]types.AuditFinding, error)

// ClampConcurrency normalizes a requested concurrency to the [1,10]
// range, defaulting to 3 when n is 0 (negative values clamp to 1).
func ClampConcurrency(n int) int {
	switch {
	case n == 0:
		return DefaultConcurrency
	case n < MinConcurrency:
		return MinConcurrency
	case n > MaxConcurrency:
		return MaxConcurrency
	default:
		return n
	}
}

// Run executes every batch through runner with bounded parallelism,
// making up to MaxAttempts attempts per batch with RetryBackoff
// between attempts. Findings
// are aggregated in completion order (non-deterministic across
// batches) and deduplicated by Dedup. A batch that
// exhausts its retries is recorded as a failure but never aborts the
// run; the returned error is nil when every batch succeeded.
func Run(ctx context.Context, batches []types.AuditBatch, llm collab.LLM, concurrency int, runner BatchRunner) ([]types.AuditFinding, error) {
	sem := semaphore.NewWeighted(int64(ClampConcurrency(concurrency)))

	var mu sync.Mutex
	var findings []types.AuditFinding
	var failures []error
	var wg sync.WaitGroup

	for _, b := range batches {
		b := b
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			result, err := runWithRetry(ctx, b, llm, runner)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, errs.NewExternalError(batchLabel(b), MaxAttempts, err))
				return
			}
			findings = append(findings, result...)
		}()
	}
	wg.Wait()

	deduped := Dedup(findings)
	multi := errs.NewMultiError(failures)
	if multi.Empty() {
		return deduped, nil
	}
	return deduped, multi
}

func runWithRetry(ctx context.Context, b types.AuditBatch, llm collab.LLM, runner BatchRunner) ([]types.AuditFinding, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		result, err := runner(ctx, b, llm)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < MaxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(RetryBackoff):
			}
		}
	}
	return nil, lastErr
}

func batchLabel(b types.AuditBatch) string {
	return b.ParentDir + "/" + b.ModulePrefix
}

// Dedup retains the first occurrence of each (lowercase(title),
// file_path) pair, preserving the order findings were given in.
func Dedup(findings []types.AuditFinding) []types.AuditFinding {
	seen := make(map[string]bool, len(findings))
	out := make([]types.AuditFinding, 0, len(findings))
	for _, f := range findings {
		key := strings.ToLower(f.Title) + "\x00" + f.FilePath
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, f)
	}
	return out
}
