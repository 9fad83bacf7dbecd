package search_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
	"github.com/aretw0/arbor/pkg/search"
)

// fakeSandbox is an in-memory ports.Sandbox for engine tests. Exec is
// not used here; checks are injected as validators instead.
type fakeSandbox struct {
	mu    sync.Mutex
	files map[string]string
}

func newFakeSandbox() *fakeSandbox {
	return &fakeSandbox{files: make(map[string]string)}
}

func (s *fakeSandbox) WriteFile(_ context.Context, path, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = content
	return nil
}

func (s *fakeSandbox) ReadFile(_ context.Context, path string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	content, ok := s.files[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return content, nil
}

func (s *fakeSandbox) Exec(_ context.Context, argv []string) (domain.ExecResult, error) {
	return domain.ExecResult{}, nil
}

func (s *fakeSandbox) Clone(_ context.Context) (ports.Sandbox, error) {
	clone := newFakeSandbox()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.files {
		clone.files[k] = v
	}
	return clone, nil
}

func (s *fakeSandbox) Permissions(allowed, protected []string) ports.Sandbox {
	return s
}

// scriptGateway pops scripted assistant turns in call order.
type scriptGateway struct {
	mu      sync.Mutex
	turns   []domain.Message
	calls   int
	failure error
}

func (g *scriptGateway) Complete(_ context.Context, req ports.CompletionRequest) (domain.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.failure != nil {
		return domain.Message{}, g.failure
	}
	if len(g.turns) == 0 {
		return assistantText("nothing left to say"), nil
	}
	turn := g.turns[0]
	g.turns = g.turns[1:]
	return turn, nil
}

func assistantText(text string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: []domain.ContentBlock{domain.TextBlock(text)}}
}

func assistantComplete(id string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: []domain.ContentBlock{
		{Type: domain.BlockToolUse, ToolUse: &domain.ToolUse{ID: id, Name: registry.ToolComplete}},
	}}
}

func assistantWrite(id, path, content string) domain.Message {
	return domain.Message{Role: domain.RoleAssistant, Content: []domain.ContentBlock{
		{Type: domain.BlockToolUse, ToolUse: &domain.ToolUse{
			ID:   id,
			Name: registry.ToolWriteFile,
			Input: map[string]any{
				"path":    path,
				"content": content,
			},
		}},
	}}
}

func newRequest(sb ports.Sandbox, params search.Params) search.Request {
	return search.Request{
		Root:    domain.NewNode([]domain.Message{domain.UserText("build it")}, true, "handlers"),
		System:  "system",
		Sandbox: sb,
		Params:  params,
	}
}

func TestSearchWriteThenComplete(t *testing.T) {
	gw := &scriptGateway{turns: []domain.Message{
		assistantWrite("t1", "api/routes.go", "package api"),
		assistantComplete("t2"),
	}}
	sb := newFakeSandbox()
	eng := search.New(gw, registry.New())

	node, err := eng.Search(context.Background(), newRequest(sb, search.Params{}))
	require.NoError(t, err)
	require.NotNil(t, node)

	assert.True(t, node.Terminal)
	assert.Equal(t, 2, node.Depth)
	assert.Equal(t, map[string]string{"api/routes.go": "package api"}, node.TrajectoryFiles())
	assert.Equal(t, "package api", mustRead(t, sb, "api/routes.go"))

	// The write round fed its tool result back as a user turn.
	trajectory := node.Trajectory()
	require.Len(t, trajectory, 3)
	mid := trajectory[1]
	feedback := mid.LastMessage()
	assert.Equal(t, domain.RoleUser, feedback.Role)
	require.Len(t, feedback.Content, 1)
	assert.Equal(t, domain.BlockToolResult, feedback.Content[0].Type)
}

func TestSearchFirstRoundFanOut(t *testing.T) {
	gw := &scriptGateway{turns: []domain.Message{
		assistantText("a"),
		assistantText("b"),
		assistantComplete("t1"),
	}}
	eng := search.New(gw, registry.New())

	req := newRequest(newFakeSandbox(), search.Params{BeamWidth: 3, MaxDepth: 3})
	node, err := eng.Search(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, node)

	// All three first-round candidates hit the gateway before any
	// evaluation ran.
	assert.GreaterOrEqual(t, gw.calls, 3)
	assert.Len(t, req.Root.Children(), 3)
}

func TestSearchBeamNarrowsAfterFirstRound(t *testing.T) {
	// Three-wide fan-out on round one, then one continuation per
	// branch: rounds two and three cost three calls each, not nine.
	gw := &scriptGateway{turns: []domain.Message{
		assistantText("a"), assistantText("b"), assistantText("c"),
		assistantText("d"), assistantText("e"), assistantText("f"),
		assistantComplete("t1"), assistantComplete("t2"), assistantComplete("t3"),
	}}
	eng := search.New(gw, registry.New())

	req := newRequest(newFakeSandbox(), search.Params{BeamWidth: 3, MaxDepth: 5})
	node, err := eng.Search(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, node)

	assert.Equal(t, 9, gw.calls)
	assert.Equal(t, 3, node.Depth)

	require.Len(t, req.Root.Children(), 3)
	for _, branch := range req.Root.Children() {
		require.Len(t, branch.Children(), 1)
		assert.Len(t, branch.Children()[0].Children(), 1)
	}
}

func TestSearchStopsAtFirstAcceptedSibling(t *testing.T) {
	// All three siblings signal completion. Validation rejects the
	// first in selection order and accepts the second; the third is
	// never evaluated.
	gw := &scriptGateway{turns: []domain.Message{
		assistantComplete("t1"), assistantComplete("t2"), assistantComplete("t3"),
	}}
	eng := search.New(gw, registry.New())

	evaluated := 0
	req := newRequest(newFakeSandbox(), search.Params{BeamWidth: 3})
	req.Checks = search.ValidatorFunc(func(_ context.Context, _ *domain.Node) (string, error) {
		evaluated++
		if evaluated == 1 {
			return "missing handler for POST /todos", nil
		}
		return "", nil
	})

	node, err := eng.Search(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, node)

	assert.Equal(t, 3, gw.calls)
	assert.Equal(t, 2, evaluated)

	siblings := req.Root.Children()
	require.Len(t, siblings, 3)
	assert.Same(t, siblings[1], node)
	assert.False(t, siblings[0].Terminal)
	assert.False(t, siblings[2].Terminal)
}

func TestSearchNudgesIdleTurns(t *testing.T) {
	gw := &scriptGateway{turns: []domain.Message{
		assistantText("thinking out loud"),
		assistantComplete("t1"),
	}}
	eng := search.New(gw, registry.New())

	req := newRequest(newFakeSandbox(), search.Params{})
	node, err := eng.Search(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, node)

	idle := node.Parent
	nudge := idle.LastMessage()
	assert.Equal(t, domain.RoleUser, nudge.Role)
	assert.Equal(t, "Continue or mark completed via tool call", nudge.JoinedText())
}

func TestSearchValidationFeedbackLoop(t *testing.T) {
	gw := &scriptGateway{turns: []domain.Message{
		assistantComplete("t1"),
		assistantComplete("t2"),
	}}
	eng := search.New(gw, registry.New())

	// Fail the first validation, pass the second.
	attempts := 0
	req := newRequest(newFakeSandbox(), search.Params{})
	req.Checks = search.ValidatorFunc(func(_ context.Context, node *domain.Node) (string, error) {
		attempts++
		if attempts == 1 {
			return "compile check errors:\nE0433: unresolved import", nil
		}
		return "", nil
	})

	node, err := eng.Search(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, node)

	assert.Equal(t, 2, attempts)
	assert.True(t, node.Terminal)
	assert.Equal(t, 2, node.Depth)

	// The failure text became the next user turn on the rejected node.
	rejected := node.Parent
	last := rejected.LastMessage()
	assert.Equal(t, domain.RoleUser, last.Role)
	assert.Contains(t, last.JoinedText(), "E0433")
}

func TestSearchValidationDropsToolResults(t *testing.T) {
	// A turn that both writes and completes, then fails validation:
	// the feedback replaces the tool results entirely.
	gw := &scriptGateway{turns: []domain.Message{
		{Role: domain.RoleAssistant, Content: []domain.ContentBlock{
			{Type: domain.BlockToolUse, ToolUse: &domain.ToolUse{
				ID: "t1", Name: registry.ToolWriteFile,
				Input: map[string]any{"path": "a.txt", "content": "x"},
			}},
			{Type: domain.BlockToolUse, ToolUse: &domain.ToolUse{ID: "t2", Name: registry.ToolComplete}},
		}},
		assistantComplete("t3"),
	}}
	eng := search.New(gw, registry.New())

	calls := 0
	req := newRequest(newFakeSandbox(), search.Params{})
	req.Checks = search.ValidatorFunc(func(_ context.Context, _ *domain.Node) (string, error) {
		calls++
		if calls == 1 {
			return "tests failed", nil
		}
		return "", nil
	})

	node, err := eng.Search(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, node)

	rejected := node.Parent
	last := rejected.LastMessage()
	assert.Equal(t, "tests failed", last.JoinedText())
	for _, block := range last.Content {
		assert.NotEqual(t, domain.BlockToolResult, block.Type)
	}
}

func TestSearchExhaustion(t *testing.T) {
	gw := &scriptGateway{} // never completes
	eng := search.New(gw, registry.New())

	node, err := eng.Search(context.Background(), newRequest(newFakeSandbox(), search.Params{MaxDepth: 3}))
	require.NoError(t, err)
	assert.Nil(t, node, "search past MaxDepth must terminate empty-handed")
}

func TestSearchGatewayFailure(t *testing.T) {
	gw := &scriptGateway{failure: errors.New("connection refused")}
	eng := search.New(gw, registry.New())

	_, err := eng.Search(context.Background(), newRequest(newFakeSandbox(), search.Params{}))
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindInfra, domain.ErrorKind(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRunChecksJoinsInDeclarationOrder(t *testing.T) {
	checks := []search.Check{
		{Name: "slow", Run: func(_ context.Context) (string, error) {
			return "first failure", nil
		}},
		{Name: "passing", Run: func(_ context.Context) (string, error) {
			return "", nil
		}},
		{Name: "fast", Run: func(_ context.Context) (string, error) {
			return "second failure", nil
		}},
	}

	text, err := search.RunChecks(context.Background(), checks)
	require.NoError(t, err)
	assert.Equal(t, []string{"first failure", "second failure"}, strings.Split(text, "\n"))
}

func TestRunChecksPlumbingFailure(t *testing.T) {
	checks := []search.Check{
		{Name: "broken", Run: func(_ context.Context) (string, error) {
			return "", errors.New("sandbox gone")
		}},
	}

	_, err := search.RunChecks(context.Background(), checks)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorKindInfra, domain.ErrorKind(err))
}

func mustRead(t *testing.T, sb ports.Sandbox, path string) string {
	t.Helper()
	content, err := sb.ReadFile(context.Background(), path)
	require.NoError(t, err)
	return content
}
