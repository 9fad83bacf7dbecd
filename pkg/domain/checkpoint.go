package domain

import "encoding/json"

// Checkpoint is a durable snapshot of a paused pipeline machine: the
// active state path (root to leaf) plus the serialized context.
// Checkpoints are only taken at state boundaries, never while an
// invocation is outstanding.
type Checkpoint struct {
	StatePath []string        `json:"state_path"`
	Context   json.RawMessage `json:"context"`
}

// ExecResult is the outcome of a sandbox command.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// OK reports whether the command exited cleanly.
func (r ExecResult) OK() bool {
	return r.ExitCode == 0
}
