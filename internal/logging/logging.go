// Package logging wraps zap behind one package-level logger with
// topic-scoped helper functions instead of a single generic Log call,
// plus a mode flag that suppresses output entirely when a command is
// emitting machine-readable stdout (JSON/SARIF).
package logging

import (
	"sync"

	"go.uber.org/zap"
)

var (
	mu          sync.Mutex
	logger      *zap.SugaredLogger
	quietStdout bool // true while --format json|sarif is active
)

func init() {
	logger = newLogger(false)
}

func newLogger(debug bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.DisableStacktrace = true
	l, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op logger rather than aborting the command;
		// logging is an ambient concern, not a correctness dependency.
		return zap.NewNop().Sugar()
	}
	return l.Sugar()
}

// SetDebug switches the package logger between warn-level production
// output and verbose development output.
func SetDebug(enabled bool) {
	mu.Lock()
	defer mu.Unlock()
	logger = newLogger(enabled)
}

// SetQuietStdout suppresses all log output while a machine-readable
// renderer (JSON/SARIF) owns stdout.
func SetQuietStdout(quiet bool) {
	mu.Lock()
	defer mu.Unlock()
	quietStdout = quiet
}

func sugared() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if quietStdout {
		return nil
	}
	return logger
}

// Indexing logs an indexer-scoped message.
func Indexing(template string, args ...any) {
	if l := sugared(); l != nil {
		l.Debugf(template, args...)
	}
}

// Watch logs a watcher-scoped message.
func Watch(template string, args ...any) {
	if l := sugared(); l != nil {
		l.Debugf(template, args...)
	}
}

// Audit logs an audit-batcher-scoped message.
func Audit(template string, args ...any) {
	if l := sugared(); l != nil {
		l.Infof(template, args...)
	}
}

// Review logs a review-selector-scoped message.
func Review(template string, args ...any) {
	if l := sugared(); l != nil {
		l.Infof(template, args...)
	}
}

// Warn logs a one-shot banner condition (cold start, staleness, etc.)
// that must reach the user exactly once, never per-iteration.
func Warn(template string, args ...any) {
	if l := sugared(); l != nil {
		l.Warnf(template, args...)
	}
}

// Error logs a recovered error that a command continues past.
func Error(template string, args ...any) {
	if l := sugared(); l != nil {
		l.Errorf(template, args...)
	}
}
