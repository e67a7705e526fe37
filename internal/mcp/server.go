// Package mcp exposes Sentinel's analysis surface to AI assistants
// over the Model Context Protocol: a stdio server with three tools.
// check runs the analysis pipeline on a path, rules reports the
// active catalog and thresholds, and index_status reports index
// freshness. The CLI's `mcp` verb wires it up; the handlers reuse the
// same engine/store collaborators the batch commands do.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sentinel-dev/sentinel/internal/analysis"
	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/engine"
	"github.com/sentinel-dev/sentinel/internal/ignore"
	"github.com/sentinel-dev/sentinel/internal/store"
	"github.com/sentinel-dev/sentinel/internal/types"
	"github.com/sentinel-dev/sentinel/internal/version"
)

// Server hosts the MCP tools over a stdio transport. st may be nil
// when the project has no index yet; check degrades to single-file
// scope the same way the CLI does.
type Server struct {
	root   string
	cfg    *config.Config
	eng    *engine.Engine
	store  *store.Store
	server *mcp.Server
}

func NewServer(root string, cfg *config.Config, eng *engine.Engine, st *store.Store) *Server {
	s := &Server{
		root:  root,
		cfg:   cfg,
		eng:   eng,
		store: st,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "sentinel-mcp-server",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Start serves until ctx is cancelled or the client closes stdin.
func (s *Server) Start(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "check",
		Description: "Run Sentinel's static analysis on a file or directory and return the violations as JSON.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"path": {
					Type:        "string",
					Description: "File or directory to analyze, relative to the project root (default: whole project)",
				},
			},
		},
	}, s.handleCheck)

	s.server.AddTool(&mcp.Tool{
		Name:        "rules",
		Description: "List Sentinel's active rules with their severity and current thresholds.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleRules)

	s.server.AddTool(&mcp.Tool{
		Name:        "index_status",
		Description: "Report the symbol index's freshness: indexed file count, whether the call graph is populated, and row counts.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleIndexStatus)
}

type checkParams struct {
	Path string `json:"path"`
}

type checkIssue struct {
	File     string `json:"file"`
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Symbol   string `json:"symbol,omitempty"`
}

func (s *Server) handleCheck(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params checkParams
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
			return errorResult(fmt.Errorf("invalid parameters: %w", err)), nil
		}
	}

	target := params.Path
	if target == "" {
		target = "."
	}
	files, err := s.resolveTarget(target)
	if err != nil {
		return errorResult(err), nil
	}

	ignores := ignore.LoadAll(s.root)

	var issues []checkIssue
	checked := 0
	for _, rel := range files {
		content, readErr := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(rel)))
		if readErr != nil {
			continue
		}
		checked++
		violations, valErr := s.eng.ValidateFile(ctx, rel, content)
		if valErr != nil {
			continue
		}
		for _, v := range ignores.Filter(violations) {
			issues = append(issues, checkIssue{
				File: v.File, Rule: v.Rule, Severity: string(v.Level),
				Message: v.Message, Line: v.Line, Symbol: v.Symbol,
			})
		}
	}

	return jsonResult(map[string]any{
		"checked":         checked,
		"index_populated": s.store != nil && s.store.IsPopulated(),
		"issues":          issues,
	})
}

func (s *Server) handleRules(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rc := s.cfg.RuleConfig
	return jsonResult(map[string]any{
		"framework": s.cfg.Framework,
		"rules": []map[string]any{
			{"name": analysis.RuleDeadCode, "level": string(types.LevelWarning), "enabled": rc.DeadCodeEnabled},
			{"name": analysis.RuleDeadCodeGlobal, "level": string(types.LevelError), "enabled": rc.DeadCodeEnabled},
			{"name": analysis.RuleUnusedImport, "level": string(types.LevelWarning), "enabled": rc.UnusedImportsEnabled},
			{"name": analysis.RuleHighComplexity, "level": string(types.LevelError), "threshold": rc.ComplexityThreshold},
			{"name": analysis.RuleFunctionTooLong, "level": string(types.LevelWarning), "threshold": rc.FunctionLengthThreshold},
			{"name": analysis.RuleNamingConvention, "level": string(types.LevelInfo)},
			{"name": analysis.RuleUncheckedError, "level": string(types.LevelWarning)},
			{"name": analysis.RuleNamingGo, "level": string(types.LevelInfo)},
			{"name": analysis.RuleDeferInLoop, "level": string(types.LevelWarning)},
		},
	})
}

func (s *Server) handleIndexStatus(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.store == nil {
		return jsonResult(map[string]any{
			"present":   false,
			"populated": false,
		})
	}

	fileCount, err := s.store.IndexedFileCount(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	symbols, _ := s.store.GetSymbols(ctx, 0)
	edges, _ := s.store.GetCallGraph(ctx, 0)
	imports, _ := s.store.GetImportUsage(ctx, 0)

	return jsonResult(map[string]any{
		"present":       true,
		"populated":     s.store.IsPopulated(),
		"indexed_files": fileCount,
		"symbols":       len(symbols),
		"call_edges":    len(edges),
		"imports":       len(imports),
	})
}

// resolveTarget expands a project-relative file or directory into the
// analyzable files beneath it, honouring the configured extensions.
func (s *Server) resolveTarget(target string) ([]string, error) {
	abs := filepath.Join(s.root, filepath.FromSlash(target))
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %s", target)
	}

	if !info.IsDir() {
		rel, relErr := filepath.Rel(s.root, abs)
		if relErr != nil {
			return nil, fmt.Errorf("path %s is outside the project root", target)
		}
		return []string{filepath.ToSlash(rel)}, nil
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if name == ".git" || name == ".sentinel" || name == "node_modules" ||
				name == "vendor" || name == "dist" || (strings.HasPrefix(name, ".") && path != abs) {
				return filepath.SkipDir
			}
			return nil
		}
		ext := extensionOf(path)
		if !s.cfg.HasExtension(ext) {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func extensionOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 || idx == len(path)-1 {
		return ""
	}
	return path[idx+1:]
}

// jsonResult wraps data as the single text-content payload MCP tools
// return.
func jsonResult(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal tool response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
