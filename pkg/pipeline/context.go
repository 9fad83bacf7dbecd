package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ContextVersion guards checkpoint compatibility. Bump it whenever the
// Context shape changes; old checkpoints are rejected, not migrated.
const ContextVersion = 1

// Context is the shared record threaded through the whole machine. It
// is created once per run (or reloaded from a checkpoint) and mutated
// only by transition actions and by the host at reactive states.
type Context struct {
	Version int    `json:"version" mapstructure:"version"`
	Prompt  string `json:"prompt" mapstructure:"prompt"`

	// Feedback holds the latest FEEDBACK event payload. Generation
	// stages prefer it over Prompt when present, mirroring how a
	// revision request narrows the task.
	Feedback string `json:"feedback" mapstructure:"feedback"`

	// Files accumulates the generated application across stages.
	Files map[string]string `json:"files" mapstructure:"files"`

	// Error and ErrorKind record the last invocation failure.
	Error     string `json:"error" mapstructure:"error"`
	ErrorKind string `json:"error_kind" mapstructure:"error_kind"`
}

// NewContext creates a fresh run context for a user prompt.
func NewContext(prompt string) *Context {
	return &Context{
		Version: ContextVersion,
		Prompt:  prompt,
		Files:   make(map[string]string),
	}
}

// Dump serializes the context for checkpointing.
func (c *Context) Dump() ([]byte, error) {
	return json.Marshal(c)
}

// Load restores the context from a checkpoint payload. Unknown fields
// and version mismatches are rejected outright so a checkpoint can
// never silently reconstruct a partially valid context.
func (c *Context) Load(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode context: %w", err)
	}

	var loaded Context
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &loaded,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode context: %w", err)
	}

	if _, ok := raw["version"]; !ok {
		return fmt.Errorf("context missing version field")
	}
	if loaded.Version != ContextVersion {
		return fmt.Errorf("unsupported context version %d (want %d)", loaded.Version, ContextVersion)
	}
	if loaded.Files == nil {
		loaded.Files = make(map[string]string)
	}

	*c = loaded
	return nil
}

// promptOrFeedback picks the active instruction for a generation stage.
func (c *Context) promptOrFeedback() string {
	if c.Feedback != "" {
		return c.Feedback
	}
	return c.Prompt
}
