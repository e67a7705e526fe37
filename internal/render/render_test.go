package render

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sentinel-dev/sentinel/internal/types"
)

func sampleViolations() []types.Violation {
	return []types.Violation{
		{Rule: "UNUSED_IMPORT", Message: "unused import \"fmt\"", Level: types.LevelWarning, File: "b.go", Line: 3},
		{Rule: "DEAD_CODE", Message: "unreachable function helper", Level: types.LevelError, File: "a.go", Line: 10, Symbol: "helper"},
		{Rule: "NAMING_CONVENTION_GO", Message: "exported Foo lacks doc comment", Level: types.LevelInfo, File: "a.go", Line: 1},
	}
}

func TestSortedGroupsByFileThenSeverityThenLine(t *testing.T) {
	ordered := Sorted(sampleViolations())
	require.Equal(t, "a.go", ordered[0].File)
	require.Equal(t, types.LevelError, ordered[0].Level)
	require.Equal(t, "a.go", ordered[1].File)
	require.Equal(t, types.LevelInfo, ordered[1].Level)
	require.Equal(t, "b.go", ordered[2].File)
}

func TestTextIncludesRuleLineMessageAndSuppressionHint(t *testing.T) {
	var buf bytes.Buffer
	err := Text(&buf, sampleViolations(), Summary{Checked: 2, IndexPopulated: true})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "[DEAD_CODE:10] unreachable function helper")
	require.Contains(t, out, "sentinel ignore DEAD_CODE a.go helper")
	require.NotContains(t, out, "index not populated")
}

func TestTextWarnsWhenIndexNotPopulated(t *testing.T) {
	var buf bytes.Buffer
	err := Text(&buf, nil, Summary{IndexPopulated: false})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "index not populated")
}

func TestJSONHasStableKeyOrderAndCounts(t *testing.T) {
	var buf bytes.Buffer
	err := JSON(&buf, sampleViolations(), Summary{Checked: 3, IndexPopulated: true})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.EqualValues(t, 3, decoded["checked"])
	require.EqualValues(t, 1, decoded["errors"])
	require.EqualValues(t, 1, decoded["warnings"])
	require.EqualValues(t, 1, decoded["infos"])
	require.Equal(t, true, decoded["index_populated"])

	raw := buf.String()
	require.True(t, indexOf(raw, "\"checked\"") < indexOf(raw, "\"errors\""))
	require.True(t, indexOf(raw, "\"errors\"") < indexOf(raw, "\"warnings\""))
	require.True(t, indexOf(raw, "\"warnings\"") < indexOf(raw, "\"infos\""))
	require.True(t, indexOf(raw, "\"infos\"") < indexOf(raw, "\"index_populated\""))
	require.True(t, indexOf(raw, "\"index_populated\"") < indexOf(raw, "\"issues\""))
}

func TestSARIFProducesOneResultPerViolationAndDistinctRuleIDs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, SARIF(&buf, sampleViolations()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	runs := decoded["runs"].([]any)
	require.Len(t, runs, 1)
	run := runs[0].(map[string]any)

	results := run["results"].([]any)
	require.Len(t, results, 3)

	tool := run["tool"].(map[string]any)
	driver := tool["driver"].(map[string]any)
	require.Equal(t, "sentinel", driver["name"])
	rules := driver["rules"].([]any)
	require.Len(t, rules, 3)
}

func TestSARIFDefaultsUnknownLineToOne(t *testing.T) {
	var buf bytes.Buffer
	violations := []types.Violation{{Rule: "HIGH_COMPLEXITY", Message: "m", Level: types.LevelWarning, File: "x.go"}}
	require.NoError(t, SARIF(&buf, violations))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	run := decoded["runs"].([]any)[0].(map[string]any)
	result := run["results"].([]any)[0].(map[string]any)
	locations := result["locations"].([]any)[0].(map[string]any)
	region := locations["physicalLocation"].(map[string]any)["region"].(map[string]any)
	require.EqualValues(t, 1, region["startLine"])
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
