package domain

import "context"

// LifecycleHooks defines callbacks for engine observability. All
// fields are optional; nil hooks are skipped.
type LifecycleHooks struct {
	// OnRound fires once per search round with the number of selected candidates.
	OnRound func(ctx context.Context, stage string, round, candidates int)

	// OnNodeExpand fires when the gateway returned a new child node.
	OnNodeExpand func(ctx context.Context, stage string, node *Node)

	// OnValidation fires after a node's checks ran. feedback is empty on success.
	OnValidation func(ctx context.Context, stage string, node *Node, feedback string)

	// OnToolCall fires after a tool handler returned.
	OnToolCall func(ctx context.Context, stage, tool string, isError bool)

	// OnTransition fires when the machine moves to a new state path.
	OnTransition func(ctx context.Context, event string, path []string)
}

// Round safely invokes OnRound.
func (h LifecycleHooks) Round(ctx context.Context, stage string, round, candidates int) {
	if h.OnRound != nil {
		h.OnRound(ctx, stage, round, candidates)
	}
}

// NodeExpand safely invokes OnNodeExpand.
func (h LifecycleHooks) NodeExpand(ctx context.Context, stage string, node *Node) {
	if h.OnNodeExpand != nil {
		h.OnNodeExpand(ctx, stage, node)
	}
}

// Validation safely invokes OnValidation.
func (h LifecycleHooks) Validation(ctx context.Context, stage string, node *Node, feedback string) {
	if h.OnValidation != nil {
		h.OnValidation(ctx, stage, node, feedback)
	}
}

// ToolCall safely invokes OnToolCall.
func (h LifecycleHooks) ToolCall(ctx context.Context, stage, tool string, isError bool) {
	if h.OnToolCall != nil {
		h.OnToolCall(ctx, stage, tool, isError)
	}
}

// Transition safely invokes OnTransition.
func (h LifecycleHooks) Transition(ctx context.Context, event string, path []string) {
	if h.OnTransition != nil {
		h.OnTransition(ctx, event, path)
	}
}
