package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/search"
)

// StageInput is the slice of the pipeline context a stage invocation
// sees. It is computed once at state entry; the stage never reads the
// shared context directly.
type StageInput struct {
	// Files seed the stage sandbox.
	Files map[string]string

	// Prompt is the active instruction: the user prompt, or feedback
	// text when a revision loop re-enters the stage.
	Prompt string

	// Feedback is set only in edit mode, where the original prompt and
	// the revision request are rendered as separate template slots.
	Feedback string
}

// Stage runs one generation phase as a statechart service: it scopes a
// sandbox from its playbook, opens the dialogue and drives a search
// until a node passes the stage checks.
type Stage struct {
	playbook ports.Playbook
	engine   *search.Engine
	base     ports.Sandbox
	params   search.Params
	logger   *slog.Logger
}

// NewStage binds a playbook to the engine and the run's base sandbox.
func NewStage(playbook ports.Playbook, engine *search.Engine, base ports.Sandbox, params search.Params, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Stage{
		playbook: playbook,
		engine:   engine,
		base:     base,
		params:   params,
		logger:   logger,
	}
}

// Name returns the stage name from the playbook.
func (s *Stage) Name() string {
	return s.playbook.Stage
}

// Invoke implements statechart.Service. A nil result from the search
// means no candidate survived the depth budget; that is reported as a
// SearchExhaustedError so the machine routes to the failure state with
// a recoverable kind.
func (s *Stage) Invoke(ctx context.Context, input any) (any, error) {
	in, ok := input.(StageInput)
	if !ok {
		return nil, fmt.Errorf("stage %s: unexpected input type %T", s.Name(), input)
	}

	sb, err := s.prepareSandbox(ctx, in.Files)
	if err != nil {
		return nil, err
	}
	defer s.releaseSandbox(sb)

	user := s.renderPrompt(ctx, sb, in)
	root := domain.NewNode([]domain.Message{domain.UserText(user)}, true, s.Name())

	s.logger.Info("stage started", "stage", s.Name(), "files", len(in.Files))
	result, err := s.engine.Search(ctx, search.Request{
		Root:    root,
		System:  s.playbook.SystemPrompt,
		Sandbox: sb,
		Checks:  s.validator(sb),
		Params:  s.params,
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, &domain.SearchExhaustedError{Stage: s.Name()}
	}
	return result, nil
}

// prepareSandbox clones the run sandbox, seeds it with the accumulated
// files and narrows it to the playbook's path rules. Seeding happens
// before narrowing so inherited files land regardless of stage scope.
func (s *Stage) prepareSandbox(ctx context.Context, files map[string]string) (ports.Sandbox, error) {
	sb, err := s.base.Clone(ctx)
	if err != nil {
		return nil, &domain.InfraError{Op: "sandbox clone", Err: err}
	}
	for path, content := range files {
		if err := sb.WriteFile(ctx, path, content); err != nil {
			s.releaseSandbox(sb)
			return nil, &domain.InfraError{Op: "sandbox seed " + path, Err: err}
		}
	}
	return sb.Permissions(s.playbook.AllowedPaths, s.playbook.ProtectedPaths), nil
}

// releaseSandbox discards the stage's temporary clone once the
// invocation is done, for adapters that own disposable state. The
// search result carries its files in memory, so nothing reads the
// clone afterwards.
func (s *Stage) releaseSandbox(sb ports.Sandbox) {
	r, ok := sb.(interface{ Remove() error })
	if !ok {
		return
	}
	if err := r.Remove(); err != nil {
		s.logger.Warn("sandbox cleanup failed", "stage", s.Name(), "error", err)
	}
}

// renderPrompt substitutes the template slots of the opening user turn.
func (s *Stage) renderPrompt(ctx context.Context, sb ports.Sandbox, in StageInput) string {
	return strings.NewReplacer(
		"{{prompt}}", in.Prompt,
		"{{feedback}}", in.Feedback,
		"{{context}}", s.buildContext(ctx, sb),
	).Replace(s.playbook.UserTemplate)
}

// buildContext inlines the playbook's relevant files plus the sandbox
// scope note. Unreadable files are skipped, not fatal: a fresh run has
// none of them yet.
func (s *Stage) buildContext(ctx context.Context, sb ports.Sandbox) string {
	var parts []string
	for _, path := range s.playbook.RelevantPaths {
		content, err := sb.ReadFile(ctx, path)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("<file path=%q>\n%s\n</file>", path, strings.TrimSpace(content)))
	}
	if len(s.playbook.AllowedPaths) > 0 {
		parts = append(parts, "Allowed paths and directories: "+strings.Join(s.playbook.AllowedPaths, ", "))
	}
	return strings.Join(parts, "\n")
}

// validator binds the playbook's check commands to the stage sandbox.
func (s *Stage) validator(sb ports.Sandbox) search.Validator {
	if len(s.playbook.Checks) == 0 {
		return nil
	}
	return search.ValidatorFunc(func(ctx context.Context, node *domain.Node) (string, error) {
		if err := restoreNode(ctx, sb, node); err != nil {
			return "", err
		}
		checks := make([]search.Check, len(s.playbook.Checks))
		for i, c := range s.playbook.Checks {
			checks[i] = search.CommandCheck(c.Name, sb, c.Argv)
		}
		return search.RunChecks(ctx, checks)
	})
}

// restoreNode re-materializes the node's trajectory files on top of
// the stage sandbox. Sibling branches share the sandbox, so the
// evaluated node's own view is restored before its checks run. The
// writes were permission-checked when the tool first made them.
func restoreNode(ctx context.Context, sb ports.Sandbox, node *domain.Node) error {
	for path, content := range node.TrajectoryFiles() {
		if err := sb.WriteFile(ctx, path, content); err != nil {
			return &domain.InfraError{Op: "sandbox restore " + path, Err: err}
		}
	}
	return nil
}
