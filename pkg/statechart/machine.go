package statechart

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// Serializable is the contract the machine context must satisfy for
// checkpoint and restore. Load must reject payloads it does not fully
// understand rather than construct a partially populated context.
type Serializable interface {
	Dump() ([]byte, error)
	Load(data []byte) error
}

// Machine drives a state tree over a shared context. All operations
// are serialized on an internal lock, so while an invocation is
// outstanding no other event can re-enter the invoking state or
// duplicate its work.
type Machine[C Serializable] struct {
	root    *State[C]
	context C

	logger *slog.Logger
	hooks  domain.LifecycleHooks

	mu   sync.Mutex
	path []string // guarded by mu
}

// Option configures the machine.
type Option[C Serializable] func(*Machine[C])

// WithLogger attaches a logger for transition tracing.
func WithLogger[C Serializable](logger *slog.Logger) Option[C] {
	return func(m *Machine[C]) {
		m.logger = logger
	}
}

// WithHooks attaches lifecycle hooks fired on every transition.
func WithHooks[C Serializable](hooks domain.LifecycleHooks) Option[C] {
	return func(m *Machine[C]) {
		m.hooks = hooks
	}
}

// New creates a machine at the root boundary (empty path). The first
// pipeline stage is reached by sending the initial event.
func New[C Serializable](root *State[C], c C, opts ...Option[C]) *Machine[C] {
	m := &Machine[C]{
		root:    root,
		context: c,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reconstructs a machine positioned at the checkpoint's state
// path. It fails fast on malformed input: an unresolvable path or a
// context payload that does not load cleanly.
func Load[C Serializable](root *State[C], cp domain.Checkpoint, c C, opts ...Option[C]) (*Machine[C], error) {
	if root.at(cp.StatePath) == nil {
		return nil, fmt.Errorf("%w: state path %v not in machine definition", domain.ErrCheckpointInvalid, cp.StatePath)
	}
	if err := c.Load(cp.Context); err != nil {
		return nil, fmt.Errorf("%w: context: %v", domain.ErrCheckpointInvalid, err)
	}
	m := New(root, c, opts...)
	m.path = slices.Clone(cp.StatePath)
	return m, nil
}

// Context returns the shared machine context. The pipeline context is
// only safe to mutate while the machine rests at a reactive state.
func (m *Machine[C]) Context() C {
	return m.context
}

// Path returns a copy of the active state path, root to leaf.
func (m *Machine[C]) Path() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.path)
}

// Current returns the active leaf state ID, or "" at the root boundary.
func (m *Machine[C]) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.path) == 0 {
		return ""
	}
	return m.path[len(m.path)-1]
}

// Checkpoint snapshots the machine. It blocks until the machine rests
// at a state boundary, so a checkpoint never captures a half-finished
// invocation.
func (m *Machine[C]) Checkpoint() (domain.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, err := m.context.Dump()
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("dump context: %w", err)
	}
	return domain.Checkpoint{StatePath: slices.Clone(m.path), Context: raw}, nil
}

// Send delivers an event. The event type is looked up at the active
// leaf and bubbles through ancestors up to the root mapping; if no
// transition matches, the machine does not move and Send returns
// domain.ErrUnhandledEvent. A matching transition moves the active
// path, then follows any chain of invoking states until the machine
// rests again.
func (m *Machine[C]) Send(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, ok := m.resolve(event.Type)
	if !ok {
		m.logger.Debug("event not handled at active path", "event", event.Type, "path", m.path)
		return fmt.Errorf("%w: %s at %v", domain.ErrUnhandledEvent, event.Type, m.path)
	}
	m.logger.Info("event accepted", "event", event.Type, "target", target)

	if err := m.transition(ctx, event.Type, target); err != nil {
		return err
	}
	return m.settle(ctx, event.Type)
}

// resolve walks the active path leaf-to-root looking for a mapping of
// the event type. Index 0 is the root's own mapping, which acts as the
// machine-wide default.
func (m *Machine[C]) resolve(eventType string) (string, bool) {
	for i := len(m.path); i >= 0; i-- {
		st := m.root.at(m.path[:i])
		if st == nil {
			continue
		}
		if target, ok := st.On[eventType]; ok {
			return target, true
		}
	}
	return "", false
}

// transition atomically repositions the active path onto the target.
func (m *Machine[C]) transition(ctx context.Context, event, target string) error {
	path := m.root.find(target)
	if path == nil {
		return fmt.Errorf("transition target %q not in machine definition", target)
	}
	m.path = path
	m.hooks.Transition(ctx, event, slices.Clone(m.path))
	return nil
}

// settle runs invoking states until the machine rests at a reactive or
// sink state. Invocation input is computed exactly once per entry.
func (m *Machine[C]) settle(ctx context.Context, event string) error {
	for {
		st := m.root.at(m.path)
		if st == nil || st.Invoke == nil {
			return nil
		}

		inv := st.Invoke
		input := inv.Input(m.context)

		m.logger.Info("invoking state entered", "state", m.path[len(m.path)-1])
		result, err := inv.Src.Invoke(ctx, input)

		arrow := inv.OnDone
		var v any = result
		if err != nil {
			arrow = inv.OnError
			v = err
			m.logger.Error("invocation failed", "state", m.path[len(m.path)-1], "err", err)
		}

		for _, action := range arrow.Actions {
			if actionErr := action(ctx, m.context, v); actionErr != nil {
				return fmt.Errorf("transition action: %w", actionErr)
			}
		}
		if err := m.transition(ctx, event, arrow.Target); err != nil {
			return err
		}
	}
}

