// Package profile loads the optional framework profile: a YAML
// document declaring forbidden patterns, required imports, and
// architectural layer rules for a given framework tag. The rule
// engine applies it after the language analyzers run. A missing profile is not an
// error; most projects never configure one.
package profile

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/sentinel-dev/sentinel/internal/errs"
	"github.com/sentinel-dev/sentinel/internal/types"
)

// Rule is one profile-declared pattern check. Its Name becomes the
// violation's Rule field directly; profile rules are authored
// outside the fixed analyzer catalog.
type Rule struct {
	Name             string `yaml:"name"`
	FileGlob         string `yaml:"file_glob"`
	ForbiddenPattern string `yaml:"forbidden_pattern"`
	RequiredImport   string `yaml:"required_import"`
	Message          string `yaml:"message"`

	compiled *regexp.Regexp
}

// Profile is the parsed .sentinel/profile.yaml document for one
// framework tag.
type Profile struct {
	Framework string `yaml:"framework"`
	Rules     []Rule `yaml:"rules"`
}

// Path returns the canonical profile file path for a project root.
func Path(root string) string {
	return filepath.Join(root, ".sentinel", "profile.yaml")
}

// Load reads the profile for root, returning (nil, nil) if the file
// does not exist.
func Load(root string) (*Profile, error) {
	path := Path(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.NewConfigError(path, "", 0, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, errs.NewConfigError(path, "", 0, err)
	}

	for i := range p.Rules {
		if p.Rules[i].ForbiddenPattern != "" {
			re, err := regexp.Compile(p.Rules[i].ForbiddenPattern)
			if err != nil {
				return nil, errs.NewConfigError(path, p.Rules[i].Name, 0, err)
			}
			p.Rules[i].compiled = re
		}
	}
	return &p, nil
}

// Check runs every rule whose file_glob matches relPath against
// source, emitting a violation for each forbidden-pattern hit or
// missing required import.
func (p *Profile) Check(relPath string, source []byte) []types.Violation {
	if p == nil {
		return nil
	}

	var out []types.Violation
	text := string(source)
	for _, r := range p.Rules {
		if r.FileGlob != "" {
			matched, err := doublestar.Match(r.FileGlob, relPath)
			if err != nil || !matched {
				continue
			}
		}

		switch {
		case r.compiled != nil && r.compiled.MatchString(text):
			out = append(out, p.violation(r, relPath))
		case r.RequiredImport != "" && !strings.Contains(text, r.RequiredImport):
			out = append(out, p.violation(r, relPath))
		}
	}
	return out
}

func (p *Profile) violation(r Rule, relPath string) types.Violation {
	msg := r.Message
	if msg == "" {
		msg = "violates framework profile rule \"" + r.Name + "\""
	}
	return types.Violation{
		Rule:    r.Name,
		Message: msg,
		Level:   types.LevelWarning,
		File:    relPath,
	}
}
