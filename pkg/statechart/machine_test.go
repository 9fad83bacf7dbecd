package statechart_test

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/statechart"
)

// testContext is a minimal serializable machine context.
type testContext struct {
	Steps []string `json:"steps"`
	Err   string   `json:"err"`
}

func (c *testContext) Dump() ([]byte, error) {
	return json.Marshal(c)
}

func (c *testContext) Load(data []byte) error {
	return json.Unmarshal(data, c)
}

func record(step string) statechart.Action[*testContext] {
	return func(_ context.Context, c *testContext, _ any) error {
		c.Steps = append(c.Steps, step)
		return nil
	}
}

// twoPhase builds a tree with one invoking state between two reactive
// states, using the root GO mapping as the entry transition.
func twoPhase(svc statechart.Service) *statechart.State[*testContext] {
	return &statechart.State[*testContext]{
		On: map[string]string{"GO": "working"},
		States: map[string]*statechart.State[*testContext]{
			"working": {
				Invoke: &statechart.Invocation[*testContext]{
					Src:     svc,
					Input:   func(c *testContext) any { return len(c.Steps) },
					OnDone:  statechart.Arrow[*testContext]{Target: "done", Actions: []statechart.Action[*testContext]{record("done")}},
					OnError: statechart.Arrow[*testContext]{Target: "failed", Actions: []statechart.Action[*testContext]{record("failed")}},
				},
			},
			"done":   {On: map[string]string{"GO": "working"}},
			"failed": {},
		},
	}
}

func TestMachineInvokesOnEntry(t *testing.T) {
	invoked := 0
	svc := statechart.ServiceFunc(func(_ context.Context, input any) (any, error) {
		invoked++
		return input, nil
	})

	m := statechart.New(twoPhase(svc), &testContext{})
	require.NoError(t, m.Send(context.Background(), statechart.Event{Type: "GO"}))

	assert.Equal(t, 1, invoked)
	assert.Equal(t, "done", m.Current())
	assert.Equal(t, []string{"done"}, m.Context().Steps)
}

func TestMachineErrorPath(t *testing.T) {
	svc := statechart.ServiceFunc(func(_ context.Context, _ any) (any, error) {
		return nil, errors.New("boom")
	})

	m := statechart.New(twoPhase(svc), &testContext{})
	require.NoError(t, m.Send(context.Background(), statechart.Event{Type: "GO"}))

	assert.Equal(t, "failed", m.Current())
	assert.Equal(t, []string{"failed"}, m.Context().Steps)
}

func TestMachineUnhandledEvent(t *testing.T) {
	m := statechart.New(twoPhase(nil), &testContext{})

	err := m.Send(context.Background(), statechart.Event{Type: "NOPE"})
	assert.ErrorIs(t, err, domain.ErrUnhandledEvent)
	assert.Equal(t, "", m.Current(), "machine must not move on an unhandled event")
}

func TestMachineEventBubbling(t *testing.T) {
	// The leaf handles RETRY itself; STOP only exists on the root.
	root := &statechart.State[*testContext]{
		On: map[string]string{"GO": "waiting", "STOP": "stopped"},
		States: map[string]*statechart.State[*testContext]{
			"waiting": {On: map[string]string{"RETRY": "waiting2"}},
			"waiting2": {},
			"stopped":  {},
		},
	}

	m := statechart.New(root, &testContext{})
	require.NoError(t, m.Send(context.Background(), statechart.Event{Type: "GO"}))
	require.NoError(t, m.Send(context.Background(), statechart.Event{Type: "RETRY"}))
	assert.Equal(t, "waiting2", m.Current())

	// waiting2 has no mapping; STOP bubbles to the root default.
	require.NoError(t, m.Send(context.Background(), statechart.Event{Type: "STOP"}))
	assert.Equal(t, "stopped", m.Current())
}

func TestMachineLeafOverridesRoot(t *testing.T) {
	root := &statechart.State[*testContext]{
		On: map[string]string{"GO": "a", "EV": "fallback"},
		States: map[string]*statechart.State[*testContext]{
			"a":        {On: map[string]string{"EV": "override"}},
			"override": {},
			"fallback": {},
		},
	}

	m := statechart.New(root, &testContext{})
	require.NoError(t, m.Send(context.Background(), statechart.Event{Type: "GO"}))
	require.NoError(t, m.Send(context.Background(), statechart.Event{Type: "EV"}))
	assert.Equal(t, "override", m.Current())
}

func TestMachineInvocationChain(t *testing.T) {
	// a invokes into b, which invokes into rest. Both services observe
	// the input computed at their own entry.
	var inputs []any
	svc := statechart.ServiceFunc(func(_ context.Context, input any) (any, error) {
		inputs = append(inputs, input)
		return nil, nil
	})

	root := &statechart.State[*testContext]{
		On: map[string]string{"GO": "a"},
		States: map[string]*statechart.State[*testContext]{
			"a": {
				Invoke: &statechart.Invocation[*testContext]{
					Src:    svc,
					Input:  func(c *testContext) any { return "first:" + strconv.Itoa(len(c.Steps)) },
					OnDone: statechart.Arrow[*testContext]{Target: "b", Actions: []statechart.Action[*testContext]{record("a")}},
				},
			},
			"b": {
				Invoke: &statechart.Invocation[*testContext]{
					Src:    svc,
					Input:  func(c *testContext) any { return "second:" + strconv.Itoa(len(c.Steps)) },
					OnDone: statechart.Arrow[*testContext]{Target: "rest", Actions: []statechart.Action[*testContext]{record("b")}},
				},
			},
			"rest": {},
		},
	}

	m := statechart.New(root, &testContext{})
	require.NoError(t, m.Send(context.Background(), statechart.Event{Type: "GO"}))

	assert.Equal(t, "rest", m.Current())
	assert.Equal(t, []string{"a", "b"}, m.Context().Steps)
	assert.Equal(t, []any{"first:0", "second:1"}, inputs)
}

func TestMachineCheckpointRoundTrip(t *testing.T) {
	svc := statechart.ServiceFunc(func(_ context.Context, input any) (any, error) {
		return input, nil
	})

	m := statechart.New(twoPhase(svc), &testContext{})
	require.NoError(t, m.Send(context.Background(), statechart.Event{Type: "GO"}))

	cp, err := m.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, []string{"done"}, cp.StatePath)

	restored, err := statechart.Load(twoPhase(svc), cp, &testContext{})
	require.NoError(t, err)
	assert.Equal(t, "done", restored.Current())
	assert.Equal(t, []string{"done"}, restored.Context().Steps)

	// The restored machine keeps working.
	require.NoError(t, restored.Send(context.Background(), statechart.Event{Type: "GO"}))
	assert.Equal(t, "done", restored.Current())
	assert.Equal(t, []string{"done", "done"}, restored.Context().Steps)
}

func TestMachineCheckpointIdempotent(t *testing.T) {
	m := statechart.New(twoPhase(nil), &testContext{Steps: []string{"x"}})

	cp1, err := m.Checkpoint()
	require.NoError(t, err)
	cp2, err := m.Checkpoint()
	require.NoError(t, err)

	assert.Equal(t, cp1.StatePath, cp2.StatePath)
	assert.JSONEq(t, string(cp1.Context), string(cp2.Context))
}

func TestMachineLoadRejectsBadCheckpoint(t *testing.T) {
	t.Run("unknown state path", func(t *testing.T) {
		cp := domain.Checkpoint{StatePath: []string{"nowhere"}, Context: json.RawMessage(`{}`)}
		_, err := statechart.Load(twoPhase(nil), cp, &testContext{})
		assert.ErrorIs(t, err, domain.ErrCheckpointInvalid)
	})

	t.Run("malformed context", func(t *testing.T) {
		cp := domain.Checkpoint{StatePath: []string{"done"}, Context: json.RawMessage(`{broken`)}
		_, err := statechart.Load(twoPhase(nil), cp, &testContext{})
		assert.ErrorIs(t, err, domain.ErrCheckpointInvalid)
	})
}

func TestMachineTransitionHooks(t *testing.T) {
	var paths [][]string
	hooks := domain.LifecycleHooks{
		OnTransition: func(_ context.Context, _ string, path []string) {
			paths = append(paths, path)
		},
	}

	svc := statechart.ServiceFunc(func(_ context.Context, input any) (any, error) {
		return input, nil
	})
	m := statechart.New(twoPhase(svc), &testContext{}, statechart.WithHooks[*testContext](hooks))
	require.NoError(t, m.Send(context.Background(), statechart.Event{Type: "GO"}))

	require.Len(t, paths, 2)
	assert.Equal(t, []string{"working"}, paths[0])
	assert.Equal(t, []string{"done"}, paths[1])
}
