// Package mcp exposes pipeline sessions as a Model Context Protocol
// server, so agent hosts can drive app generation as tool calls.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/arbor/pkg/session"
)

// StateResponse is the structured result shared by the session tools.
type StateResponse struct {
	ID     string         `json:"id" jsonschema_description:"Session ID"`
	State  string         `json:"state" jsonschema_description:"Active pipeline state"`
	Done   bool           `json:"done" jsonschema_description:"Whether the run reached complete or failure"`
	Output map[string]any `json:"output" jsonschema_description:"State summary: files under review, the final application, or the error"`
}

// Server wraps the session manager and exposes it as an MCP Server.
type Server struct {
	sessions  *session.Manager
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, version string) *Server {
	s := &Server{
		sessions:  sessions,
		mcpServer: server.NewMCPServer("arbor-mcp", version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	createTool := mcp.NewTool("create_app",
		mcp.WithDescription("Start generating an application from a prompt. Runs the first stage and returns the session at its first review gate."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("What the application should do")),
		mcp.WithString("session_id", mcp.Description("Session ID to use (optional, generated when omitted)")),
		mcp.WithOutputSchema[StateResponse](),
	)
	s.mcpServer.AddTool(createTool, mcp.NewStructuredToolHandler(s.handleCreate))

	confirmTool := mcp.NewTool("confirm",
		mcp.WithDescription("Accept the work under review and advance the pipeline to its next stage."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[StateResponse](),
	)
	s.mcpServer.AddTool(confirmTool, mcp.NewStructuredToolHandler(s.handleConfirm))

	feedbackTool := mcp.NewTool("apply_feedback",
		mcp.WithDescription("Request a revision. At a review gate the feedback loops into that stage; on a completed app it triggers a whole-app edit."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithString("feedback", mcp.Required(), mcp.Description("The requested change")),
		mcp.WithOutputSchema[StateResponse](),
	)
	s.mcpServer.AddTool(feedbackTool, mcp.NewStructuredToolHandler(s.handleFeedback))

	stateTool := mcp.NewTool("get_state",
		mcp.WithDescription("Get the current state of a session without advancing it."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
		mcp.WithOutputSchema[StateResponse](),
	)
	s.mcpServer.AddTool(stateTool, mcp.NewStructuredToolHandler(s.handleState))

	s.mcpServer.AddTool(mcp.NewTool("get_files",
		mcp.WithDescription("Get the full generated file set of a session as JSON."),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session ID")),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := request.GetString("session_id", "")
		snap, err := s.sessions.Status(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(snap.Files)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the known session IDs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleCreate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	prompt, _ := args["prompt"].(string)
	if prompt == "" {
		return StateResponse{}, fmt.Errorf("prompt is required")
	}
	id, _ := args["session_id"].(string)

	snap, err := s.sessions.Start(ctx, id, prompt)
	if err != nil {
		return StateResponse{}, fmt.Errorf("start failed: %w", err)
	}
	return toResponse(snap), nil
}

func (s *Server) handleConfirm(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	id, _ := args["session_id"].(string)
	snap, err := s.sessions.Confirm(ctx, id)
	if err != nil {
		return StateResponse{}, fmt.Errorf("confirm failed: %w", err)
	}
	return toResponse(snap), nil
}

func (s *Server) handleFeedback(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	id, _ := args["session_id"].(string)
	feedback, _ := args["feedback"].(string)
	if feedback == "" {
		return StateResponse{}, fmt.Errorf("feedback is required")
	}

	snap, err := s.sessions.Feedback(ctx, id, feedback)
	if err != nil {
		return StateResponse{}, fmt.Errorf("feedback failed: %w", err)
	}
	return toResponse(snap), nil
}

func (s *Server) handleState(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	id, _ := args["session_id"].(string)
	snap, err := s.sessions.Status(ctx, id)
	if err != nil {
		return StateResponse{}, fmt.Errorf("status failed: %w", err)
	}
	return toResponse(snap), nil
}

func toResponse(snap session.Snapshot) StateResponse {
	return StateResponse{
		ID:     snap.ID,
		State:  snap.State,
		Done:   snap.Done,
		Output: snap.Output,
	}
}
