package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/engine"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	eng := engine.New(cfg, nil, nil)
	return NewServer(root, cfg, eng, nil), root
}

func callTool(t *testing.T, handler func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error), args string) map[string]any {
	t.Helper()
	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(args)},
	}
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func TestHandleCheckReportsDeadCode(t *testing.T) {
	s, root := newTestServer(t)
	src := "const user = 1;\nconsole.log(username);\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "app.ts"), []byte(src), 0o644))

	payload := callTool(t, s.handleCheck, `{"path": "app.ts"}`)

	require.Equal(t, float64(1), payload["checked"])
	require.Equal(t, false, payload["index_populated"])

	issues, ok := payload["issues"].([]any)
	require.True(t, ok)
	require.NotEmpty(t, issues)

	found := false
	for _, raw := range issues {
		issue := raw.(map[string]any)
		if issue["rule"] == "DEAD_CODE" && issue["symbol"] == "user" {
			found = true
		}
	}
	require.True(t, found)
}

func TestHandleCheckRejectsBadPath(t *testing.T) {
	s, _ := newTestServer(t)
	req := &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(`{"path": "no/such/file.ts"}`)},
	}
	result, err := s.handleCheck(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestHandleRulesListsCatalog(t *testing.T) {
	s, _ := newTestServer(t)
	payload := callTool(t, s.handleRules, `{}`)

	rules, ok := payload["rules"].([]any)
	require.True(t, ok)
	require.Len(t, rules, 9)

	names := map[string]bool{}
	for _, raw := range rules {
		names[raw.(map[string]any)["name"].(string)] = true
	}
	for _, want := range []string{"DEAD_CODE", "DEAD_CODE_GLOBAL", "UNUSED_IMPORT", "HIGH_COMPLEXITY",
		"FUNCTION_TOO_LONG", "NAMING_CONVENTION", "UNCHECKED_ERROR", "NAMING_CONVENTION_GO", "DEFER_IN_LOOP"} {
		require.True(t, names[want], "missing rule %s", want)
	}
}

func TestHandleIndexStatusWithoutStore(t *testing.T) {
	s, _ := newTestServer(t)
	payload := callTool(t, s.handleIndexStatus, `{}`)
	require.Equal(t, false, payload["present"])
	require.Equal(t, false, payload["populated"])
}
