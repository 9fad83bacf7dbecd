package registry

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Names of the built-in tools.
const (
	ToolWriteFile = "write_file"
	ToolReadFile  = "read_file"
	ToolComplete  = "complete"
)

// WriteFileSpec describes the file-write tool.
func WriteFileSpec() domain.Tool {
	return domain.Tool{
		Name:        ToolWriteFile,
		Description: "Write a file into the project workspace, overwriting any existing content.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path":    map[string]any{"type": "string"},
				"content": map[string]any{"type": "string"},
			},
			"required": []string{"path", "content"},
		},
	}
}

// ReadFileSpec describes the file-read tool.
func ReadFileSpec() domain.Tool {
	return domain.Tool{
		Name:        ToolReadFile,
		Description: "Read a file from the project workspace.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{"type": "string"},
			},
			"required": []string{"path"},
		},
	}
}

// CompleteSpec describes the completion signal tool.
func CompleteSpec() domain.Tool {
	return domain.Tool{
		Name:        ToolComplete,
		Description: "Mark the current task as completed. Call this once all requested changes are in place.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
	}
}

// WriteFile stores content in the sandbox and records it on the node
// so the trajectory file set can be merged later.
func WriteFile(ctx context.Context, call domain.ToolUse, node *domain.Node, sb ports.Sandbox) (domain.ToolResult, error) {
	path, ok := call.Input["path"].(string)
	if !ok || path == "" {
		return errResult(call, "write_file: missing path"), nil
	}
	content, ok := call.Input["content"].(string)
	if !ok {
		return errResult(call, "write_file: missing content"), nil
	}

	if err := sb.WriteFile(ctx, path, content); err != nil {
		// Permission denials are conversational feedback, not failures.
		return errResult(call, fmt.Sprintf("write_file %s: %v", path, err)), nil
	}
	node.Files[path] = content
	return domain.ToolResult{ID: call.ID, Content: "success"}, nil
}

// ReadFile returns the sandbox content of a path.
func ReadFile(ctx context.Context, call domain.ToolUse, node *domain.Node, sb ports.Sandbox) (domain.ToolResult, error) {
	path, ok := call.Input["path"].(string)
	if !ok || path == "" {
		return errResult(call, "read_file: missing path"), nil
	}

	content, err := sb.ReadFile(ctx, path)
	if err != nil {
		return errResult(call, fmt.Sprintf("read_file %s: %v", path, err)), nil
	}
	return domain.ToolResult{ID: call.ID, Content: content}, nil
}

// Complete raises the terminal signal consumed by node evaluation.
func Complete(ctx context.Context, call domain.ToolUse, node *domain.Node, sb ports.Sandbox) (domain.ToolResult, error) {
	return domain.ToolResult{ID: call.ID, Content: "completed", Completed: true}, nil
}

func errResult(call domain.ToolUse, msg string) domain.ToolResult {
	return domain.ToolResult{ID: call.ID, IsError: true, Content: msg}
}
