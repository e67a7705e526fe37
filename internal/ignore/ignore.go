// Package ignore implements the ignore engine: a
// central `.sentinel/ignore.json` store plus recursive `.sentinelignore`
// text files, merged by LoadAll into one suppression set.
//
// `.sentinelignore` files carry one `RULE file [symbol]` entry per
// line; `#` comments and blank lines are skipped.
package ignore

import (
	"bufio"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hbollon/go-edlib"

	"github.com/sentinel-dev/sentinel/internal/types"
)

// StorePath returns the canonical central ignore-list path.
func StorePath(root string) string {
	return filepath.Join(root, ".sentinel", "ignore.json")
}

// Set is the merged, queryable suppression list produced by LoadAll.
type Set struct {
	entries []types.IgnoreEntry
}

// LoadAll reads `.sentinel/ignore.json` and every `.sentinelignore`
// file under root, merging them into one Set. A corrupt
// file of either kind never aborts the caller; it silently
// contributes nothing.
func LoadAll(root string) *Set {
	s := &Set{}
	s.entries = append(s.entries, loadCentral(root)...)
	s.entries = append(s.entries, loadSentinelIgnoreFiles(root)...)
	return s
}

func loadCentral(root string) []types.IgnoreEntry {
	data, err := os.ReadFile(StorePath(root))
	if err != nil {
		return nil
	}
	var entries []types.IgnoreEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	for i := range entries {
		entries[i].Symbol = normalize(entries[i].Symbol)
	}
	return entries
}

func loadSentinelIgnoreFiles(root string) []types.IgnoreEntry {
	var entries []types.IgnoreEntry
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" || d.Name() == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ".sentinelignore" {
			return nil
		}
		entries = append(entries, parseSentinelIgnoreFile(path)...)
		return nil
	})
	return entries
}

func parseSentinelIgnoreFile(path string) []types.IgnoreEntry {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var entries []types.IgnoreEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry, ok := parseLine(line)
		if !ok {
			continue
		}
		entries = append(entries, entry)
	}
	if scanner.Err() != nil {
		return nil
	}
	return entries
}

// parseLine parses one `RULE file [symbol]` line; `#` comment lines
// and lines with fewer than two fields are rejected.
func parseLine(line string) (types.IgnoreEntry, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || strings.HasPrefix(fields[0], "#") {
		return types.IgnoreEntry{}, false
	}
	entry := types.IgnoreEntry{Rule: fields[0], File: fields[1]}
	if len(fields) >= 3 {
		entry.Symbol = normalize(fields[2])
	}
	return entry, true
}

// Add appends a new suppression to the central store and persists it.
func Add(root string, entry types.IgnoreEntry) error {
	entry.Symbol = normalize(entry.Symbol)
	entry.Added = time.Now()

	path := StorePath(root)
	data, err := os.ReadFile(path)
	var entries []types.IgnoreEntry
	if err == nil {
		_ = json.Unmarshal(data, &entries)
	}
	entries = append(entries, entry)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0o644)
}

// List returns the central store's entries, in persisted order. Like
// LoadAll, a missing or corrupt store contributes an empty list.
func List(root string) []types.IgnoreEntry {
	return loadCentral(root)
}

// ClearFile removes every central-store entry whose file field equals
// file, persisting the remainder. Returns how many entries were removed.
func ClearFile(root string, file string) (int, error) {
	path := StorePath(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	var entries []types.IgnoreEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, err
	}

	kept := entries[:0:0]
	for _, e := range entries {
		if e.File != file {
			kept = append(kept, e)
		}
	}
	removed := len(entries) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	out, err := json.MarshalIndent(kept, "", "  ")
	if err != nil {
		return 0, err
	}
	return removed, os.WriteFile(path, out, 0o644)
}

// Suppresses reports whether v is matched by any entry in the set:
// rule equality, bidirectional file
// substring containment, and (if the entry names a symbol) normalized
// symbol equality.
func (s *Set) Suppresses(v types.Violation) bool {
	normSymbol := normalize(v.Symbol)
	for _, e := range s.entries {
		if e.Rule != v.Rule {
			continue
		}
		if !strings.Contains(v.File, e.File) && !strings.Contains(e.File, v.File) {
			continue
		}
		if e.Symbol != "" && e.Symbol != normSymbol {
			continue
		}
		return true
	}
	return false
}

// Filter returns violations not suppressed by s.
func (s *Set) Filter(violations []types.Violation) []types.Violation {
	out := make([]types.Violation, 0, len(violations))
	for _, v := range violations {
		if !s.Suppresses(v) {
			out = append(out, v)
		}
	}
	return out
}

// suffixes stripped by normalize, longest first so e.g. "Controller"
// doesn't leave a dangling "roller" match against a shorter suffix.
var stripSuffixes = []string{
	"controller", "repository", "resolver", "provider",
	"service", "handler", "module", "guard", "impl",
}

// normalize canonicalizes a symbol for fuzzy comparison: lowercase,
// strip underscores, then repeatedly strip trailing
// architectural-layer suffixes until none match. This is what makes
// "AuthServiceImpl" collapse to the same "auth" as "AuthService" and
// "auth_service". Both sides of a comparison must be normalized before
// they are compared; normalize is idempotent, so normalizing an
// already-normalized value returns it unchanged.
func normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	for {
		stripped := false
		for _, suf := range stripSuffixes {
			if strings.HasSuffix(s, suf) && len(s) > len(suf) {
				s = strings.TrimSuffix(s, suf)
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return s
}

// Suggest returns the candidate closest to query, using edit-distance
// fuzzy search. Cosmetic only, a "did you mean" hint for
// `sentinel ignore --clear`; it never feeds the match predicate.
func Suggest(query string, candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	match, err := edlib.FuzzySearch(query, candidates, edlib.Levenshtein)
	if err != nil {
		return "", false
	}
	return match, true
}
