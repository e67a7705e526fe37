// Package collab names the external collaborators the core consumes
// but does not implement: the LLM request client, the previous-
// content regression hook, and daemon process control. Each is a
// narrow interface so the audit, review, and watch packages can be
// exercised in tests with a fake, and so a real implementation (HTTP
// client, git provider, os/signal) can be wired in from cmd/sentinel
// without the core importing it.
package collab

import "context"

// LLM is the chat contract the audit executor and review pass call:
// a prompt and model in, text or an error out, nothing else assumed.
type LLM interface {
	Chat(ctx context.Context, prompt, model string) (string, error)
}

// PreviousContent is the regression hook the watcher may invoke on
// every file change. Ok is false when there is no prior version (new
// file, no VCS, hook unavailable).
type PreviousContent interface {
	Previous(ctx context.Context, relPath string) (content string, ok bool)
}

// ProcessControl delivers `monitor --stop`'s stop signal to the PID
// recorded in `.sentinel/monitor.pid`.
type ProcessControl interface {
	Stop(pid int) error
}
