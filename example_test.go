package arbor_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/registry"
)

// ExampleNew demonstrates driving a full generation run with a custom
// gateway. Production hosts omit WithGateway and let the app talk to
// the Anthropic API instead.
func ExampleNew() {
	templateDir, err := os.MkdirTemp("", "arbor-example-")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(templateDir)

	// A scripted gateway that finishes every stage in one turn.
	calls := 0
	gateway := ports.GatewayFunc(func(_ context.Context, _ ports.CompletionRequest) (domain.Message, error) {
		calls++
		paths := []string{"schema/schema.sql", "api/routes.py", "ui/index.html"}
		return domain.Message{Role: domain.RoleAssistant, Content: []domain.ContentBlock{
			{Type: domain.BlockToolUse, ToolUse: &domain.ToolUse{
				ID:    fmt.Sprintf("w%d", calls),
				Name:  registry.ToolWriteFile,
				Input: map[string]any{"path": paths[calls-1], "content": "-- generated"},
			}},
			{Type: domain.BlockToolUse, ToolUse: &domain.ToolUse{
				ID:   fmt.Sprintf("c%d", calls),
				Name: registry.ToolComplete,
			}},
		}}, nil
	})

	app, err := arbor.New(templateDir, arbor.WithGateway(gateway))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	snap, err := app.Sessions().Start(ctx, "example", "a todo app")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(snap.State)

	for !snap.Done {
		if snap, err = app.Sessions().Confirm(ctx, "example"); err != nil {
			log.Fatal(err)
		}
		fmt.Println(snap.State)
	}
	fmt.Println(len(snap.Files), "files generated")
	// Output:
	// review_data_model
	// review_handlers
	// review_ui
	// complete
	// 3 files generated
}
