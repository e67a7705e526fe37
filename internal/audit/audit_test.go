package audit

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sentinel-dev/sentinel/internal/collab"
	"github.com/sentinel-dev/sentinel/internal/types"
)

func linesOf(m map[string]int) LineCounter {
	return func(path string) (int, error) {
		return m[path], nil
	}
}

func TestBuildBatchesGroupsByParentDirAndModulePrefix(t *testing.T) {
	files := []string{
		"src/user.service.ts",
		"src/user.controller.ts",
		"src/auth.service.ts",
	}
	counts := linesOf(map[string]int{
		"src/user.service.ts":    50,
		"src/user.controller.ts": 50,
		"src/auth.service.ts":    50,
	})

	batches := BuildBatches(files, MaxFilesPerBatch, MaxLinesPerBatch, counts)
	require.Len(t, batches, 2)
	require.Equal(t, []string{"src/user.service.ts", "src/user.controller.ts"}, batches[0].Files)
	require.Equal(t, []string{"src/auth.service.ts"}, batches[1].Files)
}

func TestBuildBatchesClosesOnFileCountOverflow(t *testing.T) {
	files := []string{"a/x.1.go", "a/x.2.go", "a/x.3.go"}
	counts := linesOf(map[string]int{"a/x.1.go": 1, "a/x.2.go": 1, "a/x.3.go": 1})

	batches := BuildBatches(files, 2, MaxLinesPerBatch, counts)
	require.Len(t, batches, 2)
	require.Len(t, batches[0].Files, 2)
	require.Len(t, batches[1].Files, 1)
}

func TestBuildBatchesClosesOnLineCountOverflow(t *testing.T) {
	files := []string{"a/x.1.go", "a/x.2.go"}
	counts := linesOf(map[string]int{"a/x.1.go": 60, "a/x.2.go": 60})

	batches := BuildBatches(files, MaxFilesPerBatch, 100, counts)
	require.Len(t, batches, 2)
}

func TestBuildBatchesSingleOversizedFileIsBatchedAlone(t *testing.T) {
	files := []string{"a/x.1.go", "a/x.huge.go", "a/x.2.go"}
	counts := linesOf(map[string]int{"a/x.1.go": 10, "a/x.huge.go": 5000, "a/x.2.go": 10})

	batches := BuildBatches(files, MaxFilesPerBatch, MaxLinesPerBatch, counts)
	require.Len(t, batches, 3)
	require.Equal(t, []string{"a/x.1.go"}, batches[0].Files)
	require.Equal(t, []string{"a/x.huge.go"}, batches[1].Files)
	require.Equal(t, []string{"a/x.2.go"}, batches[2].Files)
}

func TestBuildBatchesPreservesEncounterOrderAcrossGroups(t *testing.T) {
	files := []string{"b/z.go", "a/y.go", "b/z.2.go"}
	counts := linesOf(map[string]int{"b/z.go": 1, "a/y.go": 1, "b/z.2.go": 1})

	batches := BuildBatches(files, MaxFilesPerBatch, MaxLinesPerBatch, counts)
	require.Len(t, batches, 2)
	require.Equal(t, "b", batches[0].ParentDir)
	require.Equal(t, "a", batches[1].ParentDir)
}

func TestDedupKeepsFirstOccurrenceCaseInsensitive(t *testing.T) {
	findings := []types.AuditFinding{
		{Title: "Missing null check", FilePath: "a.go", Message: "first"},
		{Title: "missing null check", FilePath: "a.go", Message: "second"},
		{Title: "Missing null check", FilePath: "b.go", Message: "different file"},
	}
	out := Dedup(findings)
	require.Len(t, out, 2)
	require.Equal(t, "first", out[0].Message)
	require.Equal(t, "different file", out[1].Message)

	// Deduping an already-deduped list changes nothing.
	require.Equal(t, out, Dedup(out))
}

func TestClampConcurrency(t *testing.T) {
	require.Equal(t, DefaultConcurrency, ClampConcurrency(0))
	require.Equal(t, MinConcurrency, ClampConcurrency(-5))
	require.Equal(t, MaxConcurrency, ClampConcurrency(50))
	require.Equal(t, 4, ClampConcurrency(4))
}

type fakeLLM struct{}

func (fakeLLM) Chat(ctx context.Context, prompt, model string) (string, error) { return "", nil }

func TestRunAggregatesFindingsAcrossBatches(t *testing.T) {
	batches := []types.AuditBatch{
		{ParentDir: "a", ModulePrefix: "x", Files: []string{"a/x.go"}},
		{ParentDir: "b", ModulePrefix: "y", Files: []string{"b/y.go"}},
	}
	runner := func(ctx context.Context, b types.AuditBatch, llm collab.LLM) ([]types.AuditFinding, error) {
		return []types.AuditFinding{{Title: "issue in " + b.ParentDir, FilePath: b.Files[0]}}, nil
	}

	findings, err := Run(context.Background(), batches, fakeLLM{}, 2, runner)
	require.NoError(t, err)
	require.Len(t, findings, 2)
}

func TestRunRetriesFailingBatchAndRecordsFailureOnExhaustion(t *testing.T) {
	orig := RetryBackoff
	RetryBackoff = time.Millisecond
	defer func() { RetryBackoff = orig }()

	var calls int32
	runner := func(ctx context.Context, b types.AuditBatch, llm collab.LLM) ([]types.AuditFinding, error) {
		atomic.AddInt32(&calls, 1)
		return nil, errors.New("boom")
	}

	batches := []types.AuditBatch{{ParentDir: "a", ModulePrefix: "x", Files: []string{"a/x.go"}}}

	_, err := Run(context.Background(), batches, fakeLLM{}, 1, runner)
	require.Error(t, err)
	require.Equal(t, int32(MaxAttempts), atomic.LoadInt32(&calls))
}

func TestRunSucceedsOnRetryAfterTransientFailure(t *testing.T) {
	orig := RetryBackoff
	RetryBackoff = time.Millisecond
	defer func() { RetryBackoff = orig }()

	var calls int32
	runner := func(ctx context.Context, b types.AuditBatch, llm collab.LLM) ([]types.AuditFinding, error) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			return nil, errors.New("transient")
		}
		return []types.AuditFinding{{Title: "ok", FilePath: "a/x.go"}}, nil
	}

	batches := []types.AuditBatch{{ParentDir: "a", ModulePrefix: "x", Files: []string{"a/x.go"}}}
	findings, err := Run(context.Background(), batches, fakeLLM{}, 1, runner)
	require.NoError(t, err)
	require.Len(t, findings, 1)
}
