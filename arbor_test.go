package arbor_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
)

// stageWriter completes each stage in one turn, writing into the
// directory the default playbooks allow for it.
func stageWriter() ports.Gateway {
	var mu sync.Mutex
	calls := 0
	paths := []string{"schema/schema.sql", "api/routes.py", "ui/index.html"}

	return ports.GatewayFunc(func(_ context.Context, _ ports.CompletionRequest) (domain.Message, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		path := "edit.txt"
		if calls <= len(paths) {
			path = paths[calls-1]
		}
		return domain.Message{Role: domain.RoleAssistant, Content: []domain.ContentBlock{
			{Type: domain.BlockToolUse, ToolUse: &domain.ToolUse{
				ID:    fmt.Sprintf("w%d", calls),
				Name:  registry.ToolWriteFile,
				Input: map[string]any{"path": path, "content": "generated"},
			}},
			{Type: domain.BlockToolUse, ToolUse: &domain.ToolUse{
				ID:   fmt.Sprintf("c%d", calls),
				Name: registry.ToolComplete,
			}},
		}}, nil
	})
}

func TestApp_Integration(t *testing.T) {
	templateDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(templateDir, "README.md"), []byte("# template"), 0o644); err != nil {
		t.Fatal(err)
	}

	app, err := arbor.New(templateDir, arbor.WithGateway(stageWriter()))
	if err != nil {
		t.Fatalf("Failed to assemble app: %v", err)
	}

	ctx := context.Background()
	snap, err := app.Sessions().Start(ctx, "demo", "a todo app")
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if snap.State != pipeline.StateReviewDataModel {
		t.Errorf("Expected initial review state, got %q", snap.State)
	}
	if _, ok := snap.Files["schema/schema.sql"]; !ok {
		t.Errorf("Expected generated schema, got files: %v", snap.Files)
	}

	for !snap.Done {
		snap, err = app.Sessions().Confirm(ctx, "demo")
		if err != nil {
			t.Fatalf("Confirm failed: %v", err)
		}
	}
	if snap.State != pipeline.StateComplete {
		t.Errorf("Expected complete, got %q (error %q)", snap.State, snap.Error)
	}
	if len(snap.Files) != 3 {
		t.Errorf("Expected 3 generated files, got %v", snap.Files)
	}
}
