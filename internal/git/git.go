// Package git implements the two git-backed external collaborators the
// core consumes: the "previous content" regression hook
// the watcher invokes on every file change, and the changed-file list the review selector
// injects at the front of its review candidates. The one diff scope
// here is working tree vs HEAD; staged/commit/range scopes belong to
// tooling this module doesn't ship.
package git

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sentinel-dev/sentinel/internal/collab"
)

var _ collab.PreviousContent = (*Provider)(nil)

// ChangeStatus is a file's status in a working-tree diff against HEAD.
type ChangeStatus string

const (
	StatusAdded    ChangeStatus = "added"
	StatusDeleted  ChangeStatus = "deleted"
	StatusModified ChangeStatus = "modified"
	StatusRenamed  ChangeStatus = "renamed"
)

// ChangedFile is one entry of a working-tree diff against HEAD.
type ChangedFile struct {
	Path   string
	Status ChangeStatus
}

// Provider wraps git commands scoped to one repository root. It
// implements collab.PreviousContent.
type Provider struct {
	repoRoot string
}

// NewProvider resolves repoRoot to the repository's actual top-level
// directory (so it works from any subdirectory) and returns a
// Provider, or an error if repoRoot is not inside a git repository.
func NewProvider(repoRoot string) (*Provider, error) {
	absRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("invalid repo root: %w", err)
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = absRoot
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %s", absRoot)
	}

	return &Provider{repoRoot: strings.TrimSpace(string(output))}, nil
}

// IsGitRepo reports whether the resolved root actually has a .git
// directory (a worktree's .git is a file, not a directory, and still
// counts, hence os.Stat rather than IsDir).
func (p *Provider) IsGitRepo() bool {
	_, err := os.Stat(filepath.Join(p.repoRoot, ".git"))
	return err == nil
}

// Previous implements collab.PreviousContent: the file's content as of
// HEAD, or ok=false if the file is untracked, new, or git fails.
func (p *Provider) Previous(ctx context.Context, relPath string) (string, bool) {
	spec := "HEAD:" + filepath.ToSlash(relPath)
	cmd := exec.CommandContext(ctx, "git", "show", spec)
	cmd.Dir = p.repoRoot

	output, err := cmd.Output()
	if err != nil {
		return "", false
	}
	return string(output), true
}

// ChangedFiles returns every file that differs between the working
// tree (including staged changes) and HEAD: the diff files review
// context selection may inject at the front of its candidates.
func (p *Provider) ChangedFiles(ctx context.Context) ([]ChangedFile, error) {
	cmd := exec.CommandContext(ctx, "git", "diff", "HEAD", "--name-status", "--no-renames")
	cmd.Dir = p.repoRoot

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff HEAD failed: %w", err)
	}
	return parseNameStatus(output)
}

func parseNameStatus(output []byte) ([]ChangedFile, error) {
	var files []ChangedFile
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		files = append(files, ChangedFile{Path: parts[1], Status: statusFor(parts[0])})
	}
	return files, scanner.Err()
}

func statusFor(code string) ChangeStatus {
	if code == "" {
		return StatusModified
	}
	switch code[0] {
	case 'A':
		return StatusAdded
	case 'D':
		return StatusDeleted
	case 'R':
		return StatusRenamed
	default:
		return StatusModified
	}
}
