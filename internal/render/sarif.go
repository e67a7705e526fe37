package render

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/sentinel-dev/sentinel/internal/types"
	"github.com/sentinel-dev/sentinel/internal/version"
)

const sarifSchemaURI = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"

// SARIF 2.1.0 document shape, reduced to the fields Sentinel emits.
type sarifLog struct {
	Schema  string      `json:"$schema"`
	Version string      `json:"version"`
	Runs    []sarifRun  `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID string `json:"id"`
}

type sarifResult struct {
	RuleID    string          `json:"ruleId"`
	Level     string          `json:"level"`
	Message   sarifMessage    `json:"message"`
	Locations []sarifLocation `json:"locations"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
	Region           sarifRegion           `json:"region"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

type sarifRegion struct {
	StartLine int `json:"startLine"`
}

// sarifLevel maps an internal Level to SARIF's error/warning/note
// vocabulary.
func sarifLevel(l types.Level) string {
	switch l {
	case types.LevelError:
		return "error"
	case types.LevelWarning:
		return "warning"
	default:
		return "note"
	}
}

// SARIF writes violations as a single-run SARIF 2.1.0 log: tool.driver
// names sentinel and the running build version, rules are the
// distinct rule names seen, and each result's region.startLine
// defaults to 1 when a violation's line is unknown.
func SARIF(w io.Writer, violations []types.Violation) error {
	ordered := Sorted(violations)

	ruleSet := make(map[string]bool)
	var ruleNames []string
	results := make([]sarifResult, len(ordered))

	for i, v := range ordered {
		if !ruleSet[v.Rule] {
			ruleSet[v.Rule] = true
			ruleNames = append(ruleNames, v.Rule)
		}

		line := v.Line
		if line <= 0 {
			line = 1
		}

		results[i] = sarifResult{
			RuleID:  v.Rule,
			Level:   sarifLevel(v.Level),
			Message: sarifMessage{Text: v.Message},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: v.File, URIBaseID: "%SRCROOT%"},
					Region:           sarifRegion{StartLine: line},
				},
			}},
		}
	}
	sort.Strings(ruleNames)

	rules := make([]sarifRule, len(ruleNames))
	for i, name := range ruleNames {
		rules[i] = sarifRule{ID: name}
	}

	log := sarifLog{
		Schema:  sarifSchemaURI,
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{Driver: sarifDriver{
				Name:    "sentinel",
				Version: version.Version,
				Rules:   rules,
			}},
			Results: results,
		}},
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(log)
}
