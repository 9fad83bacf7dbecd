package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Handler applies one tool call against the sandbox and the node that
// requested it. Handlers report tool-level problems (bad input, denied
// path) inside the ToolResult so the model can recover; the error
// return is reserved for broken plumbing.
type Handler func(ctx context.Context, call domain.ToolUse, node *domain.Node, sb ports.Sandbox) (domain.ToolResult, error)

// Registry manages the available tool handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	specs    []domain.Tool
}

// New creates a registry preloaded with the built-in file tools and
// the completion signal.
func New() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	r.Register(WriteFileSpec(), WriteFile)
	r.Register(ReadFileSpec(), ReadFile)
	r.Register(CompleteSpec(), Complete)
	return r
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(spec domain.Tool, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[spec.Name]; !exists {
		r.specs = append(r.specs, spec)
	} else {
		for i := range r.specs {
			if r.specs[i].Name == spec.Name {
				r.specs[i] = spec
			}
		}
	}
	r.handlers[spec.Name] = fn
}

// Tools returns the tool specs in registration order, for the gateway.
func (r *Registry) Tools() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Tool, len(r.specs))
	copy(out, r.specs)
	return out
}

// Execute looks up a tool by name and applies it. An unknown tool is
// reported back to the model as an errored result, not a failure.
func (r *Registry) Execute(ctx context.Context, call domain.ToolUse, node *domain.Node, sb ports.Sandbox) (domain.ToolResult, error) {
	r.mu.RLock()
	fn, ok := r.handlers[call.Name]
	r.mu.RUnlock()

	if !ok {
		return domain.ToolResult{
			ID:      call.ID,
			IsError: true,
			Content: fmt.Sprintf("tool not found: %s", call.Name),
		}, nil
	}

	return fn(ctx, call, node, sb)
}
