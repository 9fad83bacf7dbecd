package arbor

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/adapters/anthropic"
	loamSource "github.com/aretw0/arbor/pkg/adapters/loam"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/adapters/process"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/search"
	"github.com/aretw0/arbor/pkg/session"
)

// Version of the library.
var Version = "0.1.0"

// App is the high-level entry point: a session manager wired with the
// default adapter stack, overridable through options.
type App struct {
	sessions *session.Manager

	gateway ports.Gateway
	sandbox ports.Sandbox
	store   ports.CheckpointStore
	prompts ports.PromptSource
	tools   *registry.Registry
	params  search.Params
	hooks   domain.LifecycleHooks
	logger  *slog.Logger

	promptDirErr error
}

// Option defines a functional option for configuring the App.
type Option func(*App)

// WithGateway injects a custom model gateway, bypassing the default
// Anthropic client.
func WithGateway(g ports.Gateway) Option {
	return func(a *App) {
		a.gateway = g
	}
}

// WithSandbox injects a custom sandbox, bypassing the default
// process-backed one.
func WithSandbox(sb ports.Sandbox) Option {
	return func(a *App) {
		a.sandbox = sb
	}
}

// WithStore injects a checkpoint store (default: in-memory).
func WithStore(store ports.CheckpointStore) Option {
	return func(a *App) {
		a.store = store
	}
}

// WithPromptSource injects a playbook source, bypassing the
// compiled-in defaults.
func WithPromptSource(src ports.PromptSource) Option {
	return func(a *App) {
		a.prompts = src
	}
}

// WithPromptDir loads playbooks from a loam repository at the given
// path.
func WithPromptDir(path string) Option {
	return func(a *App) {
		src, err := loamSource.Open(path)
		if err != nil {
			a.prompts = nil
			a.promptDirErr = err
			return
		}
		a.prompts = src
	}
}

// WithTools injects a custom tool registry.
func WithTools(tools *registry.Registry) Option {
	return func(a *App) {
		a.tools = tools
	}
}

// WithSearchParams sets the beam width, depth and token budgets.
func WithSearchParams(params search.Params) Option {
	return func(a *App) {
		a.params = params
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *App) {
		a.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// New assembles an App around a project template directory. The
// directory seeds every run's sandbox. Without WithGateway, the
// ANTHROPIC_API_KEY environment variable must be set.
func New(templateDir string, opts ...Option) (*App, error) {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}
	if a.promptDirErr != nil {
		return nil, fmt.Errorf("failed to open prompt dir: %w", a.promptDirErr)
	}

	if a.logger == nil {
		a.logger = logging.NewNop()
	}
	if a.gateway == nil {
		key := os.Getenv("ANTHROPIC_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("no gateway configured and ANTHROPIC_API_KEY is not set")
		}
		gw, err := anthropic.New(key)
		if err != nil {
			return nil, err
		}
		a.gateway = gw
	}
	if a.sandbox == nil {
		if templateDir == "" {
			return nil, fmt.Errorf("templateDir is required when no custom sandbox is provided")
		}
		a.sandbox = process.New(templateDir, process.WithLogger(a.logger))
	}
	if a.store == nil {
		a.store = memory.NewStore()
	}

	a.sessions = session.NewManager(a.store, pipeline.Config{
		Gateway: a.gateway,
		Sandbox: a.sandbox,
		Tools:   a.tools,
		Prompts: a.prompts,
		Params:  a.params,
		Logger:  a.logger,
		Hooks:   a.hooks,
	}, session.WithLogger(a.logger))

	return a, nil
}

// Sessions returns the session manager driving all runs.
func (a *App) Sessions() *session.Manager {
	return a.sessions
}
