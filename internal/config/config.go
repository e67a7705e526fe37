// Package config implements Sentinel's project configuration: a
// single .sentinel/config.toml file with documented defaults for
// every key, parsed with pelletier/go-toml/v2.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/sentinel-dev/sentinel/internal/errs"
)

const (
	DefaultComplexityThreshold     = 10
	DefaultFunctionLengthThreshold = 50

	// Generation floors: analyzers always emit above these,
	// regardless of RuleConfig, so any user threshold is reachable.
	ComplexityFloor     = 5
	FunctionLengthFloor = 10
)

var DefaultFileExtensions = []string{"ts", "tsx", "js", "jsx", "go", "py"}

// RuleConfig holds the user-tunable threshold knobs. These govern
// post-generation filtering only; they never suppress generation itself.
type RuleConfig struct {
	ComplexityThreshold     int  `toml:"complexity_threshold"`
	FunctionLengthThreshold int  `toml:"function_length_threshold"`
	DeadCodeEnabled         bool `toml:"dead_code_enabled"`
	UnusedImportsEnabled    bool `toml:"unused_imports_enabled"`
}

// Config is the parsed contents of .sentinel/config.toml.
type Config struct {
	FileExtensions []string   `toml:"file_extensions"`
	TestPatterns   []string   `toml:"test_patterns"`
	Framework      string     `toml:"framework"`
	RuleConfig     RuleConfig `toml:"rule_config"`
}

// Default returns the documented-default configuration used whenever a
// key, or the whole file, is missing.
func Default() *Config {
	return &Config{
		FileExtensions: append([]string(nil), DefaultFileExtensions...),
		TestPatterns:   []string{"**/*_test.go", "**/*.test.ts", "**/test_*.py"},
		Framework:      "typescript",
		RuleConfig: RuleConfig{
			ComplexityThreshold:     DefaultComplexityThreshold,
			FunctionLengthThreshold: DefaultFunctionLengthThreshold,
			DeadCodeEnabled:         true,
			UnusedImportsEnabled:    true,
		},
	}
}

// Path returns the canonical config file path for a project root.
func Path(root string) string {
	return filepath.Join(root, ".sentinel", "config.toml")
}

// Load reads .sentinel/config.toml under root, falling back to
// documented defaults for any key that's absent, and for the whole
// file when it doesn't exist at all.
func Load(root string) (*Config, error) {
	cfg := Default()

	path := Path(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errs.NewConfigError(path, "", 0, err)
	}

	// Decode onto the defaults so omitted keys keep their default value.
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errs.NewConfigError(path, "", 0, err)
	}

	if len(cfg.FileExtensions) == 0 {
		cfg.FileExtensions = append([]string(nil), DefaultFileExtensions...)
	}
	if cfg.RuleConfig.ComplexityThreshold <= 0 {
		cfg.RuleConfig.ComplexityThreshold = DefaultComplexityThreshold
	}
	if cfg.RuleConfig.FunctionLengthThreshold <= 0 {
		cfg.RuleConfig.FunctionLengthThreshold = DefaultFunctionLengthThreshold
	}
	if cfg.Framework == "" {
		cfg.Framework = "typescript"
	}

	return cfg, nil
}

// Save writes cfg to .sentinel/config.toml, creating the directory if needed.
func Save(root string, cfg *Config) error {
	path := Path(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.NewIOError("mkdir", filepath.Dir(path), err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errs.NewConfigError(path, "", 0, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errs.NewIOError("write", path, err)
	}
	return nil
}

// HasExtension reports whether ext (no leading dot, any case) is among
// the project's configured file_extensions.
func (c *Config) HasExtension(ext string) bool {
	for _, e := range c.FileExtensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
