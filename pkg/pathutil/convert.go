// Package pathutil converts absolute paths to project-relative ones.
// The store and indexer key everything by project-relative path;
// user-facing output (render, CLI) wants the same form.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative rewrites absPath relative to rootDir. Inputs that are
// empty, already relative, outside rootDir, or not resolvable come
// back unchanged, so callers can use the result for display without
// re-checking it.
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" || !filepath.IsAbs(absPath) {
		return absPath
	}

	rel, err := filepath.Rel(filepath.Clean(rootDir), filepath.Clean(absPath))
	if err != nil || strings.HasPrefix(rel, "..") {
		return absPath
	}
	return rel
}
