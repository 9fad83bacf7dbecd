package ports

import "context"

// Playbook is the per-stage generation recipe: the prompt templates
// plus the sandbox scoping and validation commands for that stage.
// Prompt bodies are opaque to the engine.
type Playbook struct {
	Stage        string
	SystemPrompt string

	// UserTemplate is the body of the opening user turn. Occurrences
	// of {{prompt}}, {{feedback}} and {{context}} are substituted.
	UserTemplate string

	// AllowedPaths and ProtectedPaths scope the stage sandbox.
	AllowedPaths   []string
	ProtectedPaths []string

	// RelevantPaths are read from the sandbox into the prompt context.
	RelevantPaths []string

	// Checks are the validation commands, run concurrently per node in
	// declaration order of their reported output.
	Checks []PlaybookCheck
}

// PlaybookCheck is one validation command.
type PlaybookCheck struct {
	Name string
	Argv []string
}

// PromptSource supplies playbooks by stage name. The default source is
// compiled in; the loam adapter loads them from a document repository.
type PromptSource interface {
	Playbook(ctx context.Context, stage string) (Playbook, error)
}
