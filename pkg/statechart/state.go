package statechart

import "context"

// Event is an external stimulus. Equality is defined by Type alone;
// Payload is carried for the host's benefit (e.g. feedback text) and
// never inspected by the machine.
type Event struct {
	Type    string
	Payload string
}

// Service is the asynchronous unit of work an invoking state runs.
type Service interface {
	Invoke(ctx context.Context, input any) (any, error)
}

// ServiceFunc adapts a function to the Service interface.
type ServiceFunc func(ctx context.Context, input any) (any, error)

// Invoke implements Service.
func (f ServiceFunc) Invoke(ctx context.Context, input any) (any, error) {
	return f(ctx, input)
}

// Action mutates the context when an invocation finishes. On the done
// path v carries the service result; on the error path it carries the
// error.
type Action[C any] func(ctx context.Context, c C, v any) error

// Arrow is the target (plus context-mutating actions) of an
// invocation outcome.
type Arrow[C any] struct {
	Target  string
	Actions []Action[C]
}

// Invocation wires a service into a state. Input is computed once,
// lazily, from the context at entry time and never re-read while the
// work is outstanding.
type Invocation[C any] struct {
	Src     Service
	Input   func(c C) any
	OnDone  Arrow[C]
	OnError Arrow[C]
}

// State is a node of the state tree. A state with a nil Invoke is
// reactive: it rests until an event matches On (bubbling to ancestors
// on a miss). A state with Invoke schedules its service on entry. A
// state with neither entries is a sink.
type State[C any] struct {
	// On maps event types to target state IDs.
	On map[string]string

	// States holds nested child states, keyed by ID. IDs must be
	// unique across the whole tree.
	States map[string]*State[C]

	// Invoke, when set, makes this an invoking state.
	Invoke *Invocation[C]
}

// find returns the root-to-target ID path for a state ID, or nil.
func (s *State[C]) find(id string) []string {
	for key, child := range s.States {
		if key == id {
			return []string{key}
		}
		if sub := child.find(id); sub != nil {
			return append([]string{key}, sub...)
		}
	}
	return nil
}

// at resolves an ID path to a state, returning nil when the path does
// not exist in the tree. The empty path resolves to s itself.
func (s *State[C]) at(path []string) *State[C] {
	cur := s
	for _, id := range path {
		next, ok := cur.States[id]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}
