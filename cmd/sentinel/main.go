// Command sentinel is the CLI entry point: it wires the core packages
// (config, store, indexer, engine, ignore, audit, review, render)
// together with the external collaborators (git, LLM client, process
// signals) and maps each verb onto them.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/sentinel-dev/sentinel/internal/analysis"
	"github.com/sentinel-dev/sentinel/internal/config"
	"github.com/sentinel-dev/sentinel/internal/engine"
	"github.com/sentinel-dev/sentinel/internal/errs"
	"github.com/sentinel-dev/sentinel/internal/langreg"
	"github.com/sentinel-dev/sentinel/internal/logging"
	"github.com/sentinel-dev/sentinel/internal/profile"
	"github.com/sentinel-dev/sentinel/internal/store"
	"github.com/sentinel-dev/sentinel/internal/version"
	"github.com/sentinel-dev/sentinel/pkg/pathutil"
)

// Exit codes: 0 success, 1 violations or tool error, 2
// invalid path argument, 124 external timeout.
const (
	exitOK        = 0
	exitViolation = 1
	exitBadPath   = 2
	exitTimeout   = 124
)

func main() {
	app := &cli.App{
		Name:                   "sentinel",
		Usage:                  "Local code-quality guardian for AI-modified projects",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (defaults to the working directory)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Verbose diagnostic logging",
			},
		},
		Before: func(c *cli.Context) error {
			logging.SetDebug(c.Bool("debug") || os.Getenv("SENTINEL_DEBUG") == "1")
			return nil
		},
		Commands: []*cli.Command{
			initCmd(),
			doctorCmd(),
			monitorCmd(),
			indexCmd(),
			checkCmd(),
			auditCmd(),
			reviewCmd(),
			ignoreCmd(),
			rulesCmd(),
			mcpCmd(),
		},
	}

	// Run handles cli.Exit codes itself; anything else is a tool error.
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitViolation)
	}
}

// projectRoot resolves the --root flag (or the working directory) to
// an absolute path.
func projectRoot(c *cli.Context) (string, error) {
	root := c.String("root")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve working directory: %w", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve root %q: %w", root, err)
	}
	return abs, nil
}

// indexPath is the canonical store location under a project root.
func indexPath(root string) string {
	return filepath.Join(root, ".sentinel", "index.db")
}

// openStore opens (creating if needed) the project's index store.
func openStore(root string) (*store.Store, error) {
	path := indexPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.NewIOError("mkdir", filepath.Dir(path), err)
	}
	return store.Open(path)
}

// openStoreIfPresent attaches to an existing index without creating
// one, so read-only commands (check on a fresh clone) observe the
// cold-start state instead of materializing an empty database.
func openStoreIfPresent(root string) (*store.Store, error) {
	path := indexPath(root)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	return store.Open(path)
}

// newEngine assembles the rule engine from a loaded config, the optional framework
// profile, and an optional store. st may be nil.
func newEngine(root string, cfg *config.Config, st *store.Store) (*engine.Engine, error) {
	prof, err := profile.Load(root)
	if err != nil {
		return nil, err
	}
	var idx engine.Store
	if st != nil {
		idx = st
	}
	return engine.New(cfg, prof, idx), nil
}

var walkSkipDirs = map[string]bool{
	".git": true, ".sentinel": true, "node_modules": true,
	"vendor": true, "target": true, "dist": true, "build": true,
}

// collectFiles resolves target (a file or directory, relative to root
// or absolute) to the project-relative paths of every contained file
// whose extension is configured. A nonexistent target is a user error
// (exit 2).
func collectFiles(root, target string, cfg *config.Config) ([]string, error) {
	abs := target
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, target)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, errs.NewUserError("invalid path: %s", target)
	}

	if !info.IsDir() {
		rel, err := filepath.Rel(root, abs)
		if err != nil {
			return nil, errs.NewUserError("path %s is outside the project root", target)
		}
		return []string{filepath.ToSlash(rel)}, nil
	}

	var files []string
	walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if walkSkipDirs[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != abs) {
				return filepath.SkipDir
			}
			return nil
		}
		if !cfg.HasExtension(extensionOf(path)) {
			return nil
		}
		rel := pathutil.ToRelative(path, root)
		if filepath.IsAbs(rel) {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		return nil, errs.NewIOError("walk", abs, walkErr)
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

// userExit maps an error onto the exit-code contract.
func userExit(err error) error {
	if err == nil {
		return nil
	}
	var userErr *errs.UserError
	if errors.As(err, &userErr) {
		return cli.Exit(userErr.Message, exitBadPath)
	}
	return cli.Exit(err.Error(), exitViolation)
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write the default .sentinel/config.toml, detecting project languages",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing config"},
		},
		Action: func(c *cli.Context) error {
			root, err := projectRoot(c)
			if err != nil {
				return userExit(err)
			}

			path := config.Path(root)
			if !c.Bool("force") {
				if _, err := os.Stat(path); err == nil {
					return cli.Exit(fmt.Sprintf("%s already exists (use --force to overwrite)", path), exitViolation)
				}
			}

			cfg := config.Default()
			if detected := detectExtensions(root); len(detected) > 0 {
				cfg.FileExtensions = detected
			}
			if err := config.Save(root, cfg); err != nil {
				return userExit(err)
			}
			fmt.Printf("wrote %s (languages: %s)\n", path, strings.Join(cfg.FileExtensions, ", "))
			return nil
		},
	}
}

// detectExtensions scans the tree for extensions the registry knows,
// preserving the default ordering for any it finds.
func detectExtensions(root string) []string {
	present := map[string]bool{}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if walkSkipDirs[d.Name()] || (strings.HasPrefix(d.Name(), ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		ext := extensionOf(path)
		if _, ok := langreg.Resolve(ext); ok {
			present[strings.ToLower(ext)] = true
		}
		return nil
	})

	var out []string
	for _, ext := range config.DefaultFileExtensions {
		if present[ext] {
			out = append(out, ext)
			delete(present, ext)
		}
	}
	var rest []string
	for ext := range present {
		rest = append(rest, ext)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Report config, credentials, index, and language status",
		Action: func(c *cli.Context) error {
			root, err := projectRoot(c)
			if err != nil {
				return userExit(err)
			}

			fmt.Println(version.FullInfo())

			critical := false

			if _, err := os.Stat(config.Path(root)); err == nil {
				fmt.Printf("config:    %s\n", config.Path(root))
			} else {
				fmt.Println("config:    missing (defaults in effect; run `sentinel init`)")
			}

			if _, err := newLLMFromEnv(); err == nil {
				fmt.Println("llm:       configured")
			} else {
				fmt.Printf("llm:       not configured (%v); audit/review unavailable\n", err)
			}

			st, err := openStoreIfPresent(root)
			switch {
			case err != nil:
				fmt.Printf("index:     unreadable: %v\n", err)
				critical = true
			case st == nil:
				fmt.Println("index:     absent (run `sentinel index --rebuild`)")
			default:
				count, countErr := st.IndexedFileCount(c.Context)
				if countErr != nil {
					fmt.Printf("index:     unreadable: %v\n", countErr)
					critical = true
				} else {
					fmt.Printf("index:     %d files, populated=%t\n", count, st.IsPopulated())
				}
				st.Close()
			}

			detected := detectExtensions(root)
			if len(detected) == 0 {
				fmt.Println("languages: none detected")
				critical = true
			} else {
				fmt.Printf("languages: %s\n", strings.Join(detected, ", "))
			}

			if critical {
				return cli.Exit("doctor found critical problems", exitViolation)
			}
			return nil
		},
	}
}

func rulesCmd() *cli.Command {
	return &cli.Command{
		Name:  "rules",
		Usage: "Enumerate active rules and current thresholds",
		Action: func(c *cli.Context) error {
			root, err := projectRoot(c)
			if err != nil {
				return userExit(err)
			}
			cfg, err := config.Load(root)
			if err != nil {
				return userExit(err)
			}

			for _, r := range ruleCatalog(cfg) {
				fmt.Printf("%-22s %-8s %s\n", r.name, r.state, r.detail)
			}
			return nil
		},
	}
}

type ruleStatus struct {
	name, state, detail string
}

func ruleCatalog(cfg *config.Config) []ruleStatus {
	onOff := func(enabled bool) string {
		if enabled {
			return "on"
		}
		return "off"
	}
	return []ruleStatus{
		{analysis.RuleDeadCode, onOff(cfg.RuleConfig.DeadCodeEnabled), "single-file dead declarations"},
		{analysis.RuleDeadCodeGlobal, onOff(cfg.RuleConfig.DeadCodeEnabled), "never called anywhere in the project"},
		{analysis.RuleUnusedImport, onOff(cfg.RuleConfig.UnusedImportsEnabled), "imported but never referenced"},
		{analysis.RuleHighComplexity, "on", fmt.Sprintf("cyclomatic complexity > %d", cfg.RuleConfig.ComplexityThreshold)},
		{analysis.RuleFunctionTooLong, "on", fmt.Sprintf("function length > %d lines", cfg.RuleConfig.FunctionLengthThreshold)},
		{analysis.RuleNamingConvention, "on", fmt.Sprintf("framework convention (%s)", cfg.Framework)},
		{analysis.RuleUncheckedError, "on", "call result assigned to blank identifiers only (Go)"},
		{analysis.RuleNamingGo, "on", "SCREAMING_SNAKE const names (Go)"},
		{analysis.RuleDeferInLoop, "on", "defer inside a for loop (Go)"},
	}
}
