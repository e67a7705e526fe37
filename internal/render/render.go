// Package render implements the renderer: turning a violation stream into
// terminal text, JSON, or SARIF 2.1.0. JSON keys keep a stable order
// (struct-typed payload, 2-space pretty encoder to an io.Writer);
// text mode colors each line by its level.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"

	"github.com/sentinel-dev/sentinel/internal/types"
)

// Summary is the counted/index-state context JSON and text modes both
// report alongside the violation list.
type Summary struct {
	Checked        int
	IndexPopulated bool
}

var levelRank = map[types.Level]int{
	types.LevelError:   0,
	types.LevelWarning: 1,
	types.LevelInfo:    2,
}

var levelColor = map[types.Level]*color.Color{
	types.LevelError:   color.New(color.FgRed),
	types.LevelWarning: color.New(color.FgYellow),
	types.LevelInfo:    color.New(color.FgCyan),
}

// Sorted groups violations by file, then orders each file's
// violations by descending severity (Error > Warning > Info) and
// ascending line, the same
// ordering JSON and SARIF reuse for a stable, comparable issue list.
func Sorted(violations []types.Violation) []types.Violation {
	out := make([]types.Violation, len(violations))
	copy(out, violations)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		if levelRank[out[i].Level] != levelRank[out[j].Level] {
			return levelRank[out[i].Level] < levelRank[out[j].Level]
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// Text writes violations grouped by file, level-and-line sorted, each
// line colour-coded by level as `[{RULE}:{LINE}] {message}` followed
// by a copy-ready suppression hint with the exact `ignore` arguments.
func Text(w io.Writer, violations []types.Violation, summary Summary) error {
	ordered := Sorted(violations)

	var currentFile string
	for _, v := range ordered {
		if v.File != currentFile {
			currentFile = v.File
			if _, err := fmt.Fprintf(w, "%s\n", currentFile); err != nil {
				return err
			}
		}

		c, ok := levelColor[v.Level]
		if !ok {
			c = color.New()
		}
		if _, err := c.Fprintf(w, "  [%s:%d] %s\n", v.Rule, v.Line, v.Message); err != nil {
			return err
		}

		hint := "sentinel ignore " + v.Rule + " " + v.File
		if v.Symbol != "" {
			hint += " " + v.Symbol
		}
		if _, err := fmt.Fprintf(w, "    suppress: %s\n", hint); err != nil {
			return err
		}
	}

	if !summary.IndexPopulated {
		if _, err := fmt.Fprintln(w, "warning: index not populated; results reflect single-file scope only"); err != nil {
			return err
		}
	}
	return nil
}

// jsonIssue is the per-violation shape of the JSON report.
type jsonIssue struct {
	File     string `json:"file"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Symbol   string `json:"symbol"`
}

// jsonReport pins the report's field order:
// checked, errors, warnings, infos, index_populated, issues. A plain
// struct (rather than a map) is what pins that order through
// encoding/json, which always emits struct fields in declaration
// order.
type jsonReport struct {
	Checked        int         `json:"checked"`
	Errors         int         `json:"errors"`
	Warnings       int         `json:"warnings"`
	Infos          int         `json:"infos"`
	IndexPopulated bool        `json:"index_populated"`
	Issues         []jsonIssue `json:"issues"`
}

// JSON writes the single-object report, pretty-printed with 2-space
// indentation.
func JSON(w io.Writer, violations []types.Violation, summary Summary) error {
	ordered := Sorted(violations)

	report := jsonReport{
		Checked:        summary.Checked,
		IndexPopulated: summary.IndexPopulated,
		Issues:         make([]jsonIssue, len(ordered)),
	}
	for i, v := range ordered {
		report.Issues[i] = jsonIssue{
			File: v.File, Rule: v.Rule, Severity: string(v.Level),
			Message: v.Message, Line: v.Line, Symbol: v.Symbol,
		}
		switch v.Level {
		case types.LevelError:
			report.Errors++
		case types.LevelWarning:
			report.Warnings++
		case types.LevelInfo:
			report.Infos++
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
