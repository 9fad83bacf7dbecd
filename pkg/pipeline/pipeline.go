package pipeline

import (
	"context"
	"log/slog"
	"maps"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/search"
	"github.com/aretw0/arbor/pkg/statechart"
)

// truncateAt bounds file contents in review summaries.
const truncateAt = 256

// Config assembles a pipeline. Gateway and Sandbox are required; the
// rest defaults to the built-in registry, compiled-in playbooks, a nop
// logger and default search parameters.
type Config struct {
	Gateway ports.Gateway
	Sandbox ports.Sandbox
	Tools   *registry.Registry
	Prompts ports.PromptSource
	Params  search.Params
	Logger  *slog.Logger
	Hooks   domain.LifecycleHooks
}

func (cfg Config) withDefaults() Config {
	if cfg.Tools == nil {
		cfg.Tools = registry.New()
	}
	if cfg.Prompts == nil {
		cfg.Prompts = DefaultPlaybooks()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	return cfg
}

// build loads the stage playbooks and wires the state tree.
func (cfg Config) build(ctx context.Context) (*statechart.State[*Context], error) {
	engine := search.New(cfg.Gateway, cfg.Tools, search.WithLogger(cfg.Logger), search.WithHooks(cfg.Hooks))

	stage := func(name string, params search.Params) (*Stage, error) {
		pb, err := cfg.Prompts.Playbook(ctx, name)
		if err != nil {
			return nil, err
		}
		return NewStage(pb, engine, cfg.Sandbox, params, cfg.Logger), nil
	}

	dataModel, err := stage(StageNameDataModel, cfg.Params)
	if err != nil {
		return nil, err
	}
	handlers, err := stage(StageNameHandlers, cfg.Params)
	if err != nil {
		return nil, err
	}
	ui, err := stage(StageNameUI, cfg.Params)
	if err != nil {
		return nil, err
	}

	// Edits are focused revisions: the beam stays narrow.
	editParams := cfg.Params
	editParams.BeamWidth = 1
	edit, err := stage(StageNameEdit, editParams)
	if err != nil {
		return nil, err
	}

	return MakeStates(Services{
		DataModel: dataModel,
		Handlers:  handlers,
		UI:        ui,
		Edit:      edit,
	}), nil
}

// Pipeline is the host-facing run handle. Its methods are meant to be
// called sequentially by one host; the machine serializes the actual
// work internally.
type Pipeline struct {
	machine *statechart.Machine[*Context]
}

// Start creates a pipeline for a user prompt and immediately confirms
// into the first stage, so the data model is already generated (or the
// run already failed) when Start returns.
func Start(ctx context.Context, cfg Config, prompt string) (*Pipeline, error) {
	cfg = cfg.withDefaults()
	root, err := cfg.build(ctx)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{machine: statechart.New(root, NewContext(prompt),
		statechart.WithLogger[*Context](cfg.Logger), statechart.WithHooks[*Context](cfg.Hooks))}
	if err := p.Confirm(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// Load restores a pipeline from a checkpoint.
func Load(ctx context.Context, cfg Config, cp domain.Checkpoint) (*Pipeline, error) {
	cfg = cfg.withDefaults()
	root, err := cfg.build(ctx)
	if err != nil {
		return nil, err
	}
	m, err := statechart.Load(root, cp, &Context{},
		statechart.WithLogger[*Context](cfg.Logger), statechart.WithHooks[*Context](cfg.Hooks))
	if err != nil {
		return nil, err
	}
	return &Pipeline{machine: m}, nil
}

// Confirm advances past the current review gate (or, at the root
// boundary, into the first stage).
func (p *Pipeline) Confirm(ctx context.Context) error {
	return p.machine.Send(ctx, statechart.Event{Type: EventConfirm})
}

// Feedback records the feedback text on the context and delivers the
// FEEDBACK event, landing in whichever revision stage the current
// state maps it to.
func (p *Pipeline) Feedback(ctx context.Context, text string) error {
	p.machine.Context().Feedback = text
	return p.machine.Send(ctx, statechart.Event{Type: EventFeedback, Payload: text})
}

// Run confirms through the remaining stages until the machine reaches
// complete or failure.
func (p *Pipeline) Run(ctx context.Context) error {
	for !p.Done() {
		if err := p.Confirm(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Current returns the active state ID.
func (p *Pipeline) Current() string {
	return p.machine.Current()
}

// Done reports whether the machine reached a final state.
func (p *Pipeline) Done() bool {
	cur := p.machine.Current()
	return cur == StateComplete || cur == StateFailure
}

// Files returns a copy of the accumulated application files.
func (p *Pipeline) Files() map[string]string {
	return maps.Clone(p.machine.Context().Files)
}

// Err returns the recorded failure message and kind, both empty while
// the run is healthy.
func (p *Pipeline) Err() (msg, kind string) {
	c := p.machine.Context()
	return c.Error, c.ErrorKind
}

// SearchExhausted reports whether the recorded failure was a search
// running out of candidates, the one failure a user can retry with
// better feedback.
func (p *Pipeline) SearchExhausted() bool {
	_, kind := p.Err()
	return kind == domain.ErrorKindSearchExhausted
}

// Checkpoint snapshots the machine at its current rest state.
func (p *Pipeline) Checkpoint() (domain.Checkpoint, error) {
	return p.machine.Checkpoint()
}

// Output summarizes the current state for a host UI: the files under
// review (truncated), the full application on completion, or the error.
func (p *Pipeline) Output() map[string]any {
	c := p.machine.Context()
	switch p.machine.Current() {
	case StateReviewDataModel:
		return map[string]any{"data_model": truncatedFiles(c.Files)}
	case StateReviewHandlers:
		return map[string]any{"handlers": truncatedFiles(c.Files)}
	case StateReviewUI:
		return map[string]any{"ui": truncatedFiles(c.Files)}
	case StateComplete:
		return map[string]any{"application": maps.Clone(c.Files)}
	case StateFailure:
		msg := c.Error
		if msg == "" {
			msg = "unknown error"
		}
		return map[string]any{"error": msg}
	default:
		return map[string]any{"status": "processing"}
	}
}

func truncatedFiles(files map[string]string) map[string]string {
	out := make(map[string]string, len(files))
	for path, content := range files {
		if len(content) > truncateAt {
			content = "large file truncated"
		}
		out[path] = content
	}
	return out
}
