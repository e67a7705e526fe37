package review

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sentinel-dev/sentinel/internal/types"
)

// RecordsDir returns the directory review records are persisted under.
func RecordsDir(root string) string {
	return filepath.Join(root, ".sentinel", "reviews")
}

// Save writes rec as a new, immutable JSON file under RecordsDir,
// named by its timestamp so concurrent runs never collide and no run
// ever overwrites another.
func Save(root string, rec types.ReviewRecord) (string, error) {
	dir := RecordsDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s.json", rec.Timestamp.UTC().Format("20060102T150405.000000000Z"))
	path := filepath.Join(dir, name)

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, out, 0o644)
}
