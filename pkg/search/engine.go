// Package search implements the beam-limited tree search that drives a
// bounded dialogue with the model until a completion-signaled node also
// passes stage validation.
//
// The engine grows a tree of conversation states: every round it
// selects the live leaves, fans them out to the gateway concurrently,
// and evaluates the new children in selection order. Branch diversity
// comes entirely from model non-determinism; the effective beam width
// collapses to one after the first round so cost stays bounded.
package search

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
)

// nudge is appended when a turn carried neither tool calls nor the
// completion signal.
const nudge = "Continue or mark completed via tool call"

// Params bound one search. They are explicit arguments rather than
// engine state so concurrent searches can never interfere.
type Params struct {
	// BeamWidth is the fan-out from a branching node.
	BeamWidth int

	// MaxDepth prunes leaves permanently once they sit deeper.
	MaxDepth int

	// MaxTokens caps each gateway completion.
	MaxTokens int
}

func (p Params) withDefaults() Params {
	if p.BeamWidth <= 0 {
		p.BeamWidth = 1
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 50
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = 8192
	}
	return p
}

// Validator runs the stage's checks for one node. It returns the
// concatenated failure text, or "" when the node passes. The error
// return is reserved for broken check plumbing and aborts the search.
type Validator interface {
	Validate(ctx context.Context, node *domain.Node) (string, error)
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, node *domain.Node) (string, error)

// Validate implements Validator.
func (f ValidatorFunc) Validate(ctx context.Context, node *domain.Node) (string, error) {
	return f(ctx, node)
}

// Request carries the per-search inputs.
type Request struct {
	Root    *domain.Node
	System  string
	Tools   []domain.Tool // defaults to the registry's specs
	Sandbox ports.Sandbox
	Checks  Validator
	Params  Params
}

// Engine drives searches. It is stateless between calls: the tree
// lives on the request's root and is discarded by the caller once a
// terminal node is returned.
type Engine struct {
	gateway ports.Gateway
	tools   *registry.Registry
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
}

// Option configures the engine.
type Option func(*Engine)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHooks attaches lifecycle hooks for observability.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// New creates a search engine over a gateway and a tool registry.
func New(gateway ports.Gateway, tools *registry.Registry, opts ...Option) *Engine {
	e := &Engine{
		gateway: gateway,
		tools:   tools,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search grows the tree under req.Root until some node is accepted, and
// returns that node. It returns (nil, nil) when candidate selection
// comes up empty: the search is exhausted. Validation failures are fed
// back into the dialogue and consume depth budget; only infrastructure
// failures (gateway, sandbox plumbing) surface as errors.
func (e *Engine) Search(ctx context.Context, req Request) (*domain.Node, error) {
	p := req.Params.withDefaults()
	tools := req.Tools
	if tools == nil {
		tools = e.tools.Tools()
	}

	for round := 1; ; round++ {
		candidates := selectCandidates(req.Root, p)
		if len(candidates) == 0 {
			e.logger.Info("no candidates to evaluate, search terminated", "stage", req.Root.Stage, "round", round)
			return nil, nil
		}
		e.hooks.Round(ctx, req.Root.Stage, round, len(candidates))
		e.logger.Info("running round", "stage", req.Root.Stage, "round", round, "candidates", len(candidates))

		children, err := e.expand(ctx, candidates, req.System, tools, p)
		if err != nil {
			return nil, err
		}

		// Evaluation follows selection order: the first accepted node
		// wins even if a later sibling would also pass.
		for _, child := range children {
			done, err := e.evaluate(ctx, child, req)
			if err != nil {
				return nil, err
			}
			if done {
				e.logger.Info("solution found", "stage", child.Stage, "depth", child.Depth)
				return child, nil
			}
		}
	}
}

// selectCandidates collects the leaves eligible for another round.
// A fresh branching root fans out BeamWidth times; afterwards every
// live leaf continues linearly unless it is marked should-branch and
// the tree is still in its opening round. Leaves past MaxDepth are
// pruned permanently.
func selectCandidates(root *domain.Node, p Params) []*domain.Node {
	if root.IsLeaf() && root.ShouldBranch {
		out := make([]*domain.Node, p.BeamWidth)
		for i := range out {
			out[i] = root
		}
		return out
	}

	all := append([]*domain.Node{root}, root.Descendants()...)
	var candidates []*domain.Node
	for _, n := range all {
		if !n.IsLeaf() || n.Depth > p.MaxDepth {
			continue
		}
		if !n.ShouldBranch {
			candidates = append(candidates, n)
			continue
		}
		// Heuristic: once the tree holds more nodes than depth+1,
		// branching has already happened and fan-out narrows to one.
		effective := p.BeamWidth
		if len(all) > n.Depth+1 {
			effective = 1
		}
		for i := 0; i < effective; i++ {
			candidates = append(candidates, n)
		}
	}
	return candidates
}

// expand dispatches every candidate to the gateway concurrently and
// materializes the children in selection order once all turns are in.
func (e *Engine) expand(ctx context.Context, candidates []*domain.Node, system string, tools []domain.Tool, p Params) ([]*domain.Node, error) {
	turns := make([]domain.Message, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	for i, cand := range candidates {
		g.Go(func() error {
			msg, err := e.gateway.Complete(gctx, ports.CompletionRequest{
				System:    system,
				Messages:  cand.Messages,
				Tools:     tools,
				MaxTokens: p.MaxTokens,
			})
			if err != nil {
				return &domain.InfraError{Op: "gateway completion", Err: err}
			}
			turns[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Child creation mutates the parent, so it happens after the join.
	children := make([]*domain.Node, len(candidates))
	for i, cand := range candidates {
		children[i] = cand.NewChild(turns[i])
		e.hooks.NodeExpand(ctx, cand.Stage, children[i])
	}
	return children, nil
}

// evaluate applies the node's tool calls and decides whether it is an
// accepted terminal. All non-terminal outcomes turn into the next user
// turn: tool results, validation feedback, or a nudge.
func (e *Engine) evaluate(ctx context.Context, node *domain.Node, req Request) (bool, error) {
	var results []domain.ContentBlock
	completed := false

	for _, use := range node.LastMessage().ToolUses() {
		res, err := e.tools.Execute(ctx, *use, node, req.Sandbox)
		if err != nil {
			return false, &domain.InfraError{Op: "tool " + use.Name, Err: err}
		}
		e.hooks.ToolCall(ctx, node.Stage, use.Name, res.IsError)
		if res.Completed {
			completed = true
		}
		results = append(results, domain.ResultBlock(res))
	}

	if completed {
		feedback, err := e.runChecks(ctx, node, req.Checks)
		if err != nil {
			return false, err
		}
		if feedback == "" {
			node.Terminal = true
			return true, nil
		}
		// Validation failure becomes conversational feedback; the
		// retry happens in the next round, bounded by MaxDepth.
		node.AppendMessage(domain.UserText(feedback))
		return false, nil
	}

	if len(results) > 0 {
		node.AppendMessage(domain.Message{Role: domain.RoleUser, Content: results})
		return false, nil
	}

	node.AppendMessage(domain.UserText(nudge))
	return false, nil
}

func (e *Engine) runChecks(ctx context.Context, node *domain.Node, checks Validator) (string, error) {
	if checks == nil {
		return "", nil
	}
	feedback, err := checks.Validate(ctx, node)
	e.hooks.Validation(ctx, node.Stage, node, feedback)
	if err != nil {
		return "", err
	}
	return feedback, nil
}
