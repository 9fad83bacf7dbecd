// Package anthropic implements the Gateway port on the Anthropic
// Messages API, including tool use. The client is a thin net/http
// wrapper with rate limiting and retries; search rounds hit it with
// many concurrent identical requests and rely on sampling
// non-determinism for branch diversity.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	defaultModel   = "claude-sonnet-4-20250514"
	apiVersion     = "2023-06-01"

	defaultTimeout     = 120 * time.Second
	defaultMaxRetries  = 3
	defaultBaseBackoff = 2 * time.Second
	defaultRateLimit   = 5 // requests per second
	defaultBurst       = 10
)

// Gateway talks to the Messages API.
type Gateway struct {
	model      string
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

// Option configures the gateway.
type Option func(*Gateway)

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(g *Gateway) {
		g.model = model
	}
}

// WithBaseURL overrides the API endpoint (e.g. for a proxy).
func WithBaseURL(url string) Option {
	return func(g *Gateway) {
		g.baseURL = url
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = client
	}
}

// WithRateLimit sets the request rate (per second) and burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *Gateway) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// New creates a gateway. The API key is required.
func New(apiKey string, opts ...Option) (*Gateway, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key required")
	}
	g := &Gateway{
		model:      defaultModel,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// wire types for the Messages API

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
	Tools     []apiTool    `json:"tools,omitempty"`
}

type apiMessage struct {
	Role    string     `json:"role"`
	Content []apiBlock `json:"content"`
}

type apiBlock struct {
	Type string `json:"type"`

	// type == "text"
	Text string `json:"text,omitempty"`

	// type == "tool_use"
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// type == "tool_result"
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type apiTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type apiResponse struct {
	Role    string     `json:"role"`
	Content []apiBlock `json:"content"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// retryableError marks transient failures worth another attempt.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}

// Complete implements ports.Gateway.
func (g *Gateway) Complete(ctx context.Context, req ports.CompletionRequest) (domain.Message, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return domain.Message{}, fmt.Errorf("rate limiter: %w", err)
	}

	body := apiRequest{
		Model:     g.model,
		MaxTokens: req.MaxTokens,
		System:    req.System,
		Messages:  encodeMessages(req.Messages),
		Tools:     encodeTools(req.Tools),
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := defaultBaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return domain.Message{}, ctx.Err()
			}
		}

		msg, err := g.doRequest(ctx, body)
		if err == nil {
			return msg, nil
		}
		lastErr = err
		if !isRetryable(err) {
			return domain.Message{}, err
		}
	}
	return domain.Message{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (g *Gateway) doRequest(ctx context.Context, body apiRequest) (domain.Message, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/messages", bytes.NewReader(jsonData))
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-Key", g.apiKey)
	httpReq.Header.Set("Anthropic-Version", apiVersion)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return domain.Message{}, &retryableError{err: fmt.Errorf("API request failed: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.Message{}, &retryableError{err: errors.New("rate limited (429)")}
	case resp.StatusCode >= 500:
		return domain.Message{}, &retryableError{err: fmt.Errorf("server error (%d): %s", resp.StatusCode, respBody)}
	case resp.StatusCode != http.StatusOK:
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return domain.Message{}, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return domain.Message{}, fmt.Errorf("API error (%d): %s", resp.StatusCode, respBody)
	}

	var parsed apiResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return domain.Message{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Content) == 0 {
		return domain.Message{}, errors.New("empty response from API")
	}

	return decodeMessage(parsed), nil
}

func encodeMessages(messages []domain.Message) []apiMessage {
	out := make([]apiMessage, 0, len(messages))
	for _, m := range messages {
		enc := apiMessage{Role: m.Role}
		for _, block := range m.Content {
			switch block.Type {
			case domain.BlockText:
				enc.Content = append(enc.Content, apiBlock{Type: "text", Text: block.Text})
			case domain.BlockToolUse:
				enc.Content = append(enc.Content, apiBlock{
					Type:  "tool_use",
					ID:    block.ToolUse.ID,
					Name:  block.ToolUse.Name,
					Input: block.ToolUse.Input,
				})
			case domain.BlockToolResult:
				enc.Content = append(enc.Content, apiBlock{
					Type:      "tool_result",
					ToolUseID: block.ToolResult.ID,
					Content:   block.ToolResult.Content,
					IsError:   block.ToolResult.IsError,
				})
			}
		}
		out = append(out, enc)
	}
	return out
}

func encodeTools(tools []domain.Tool) []apiTool {
	out := make([]apiTool, 0, len(tools))
	for _, t := range tools {
		schema := t.InputSchema
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		out = append(out, apiTool{Name: t.Name, Description: t.Description, InputSchema: schema})
	}
	return out
}

func decodeMessage(resp apiResponse) domain.Message {
	msg := domain.Message{Role: domain.RoleAssistant}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			msg.Content = append(msg.Content, domain.TextBlock(block.Text))
		case "tool_use":
			msg.Content = append(msg.Content, domain.ContentBlock{
				Type: domain.BlockToolUse,
				ToolUse: &domain.ToolUse{
					ID:    block.ID,
					Name:  block.Name,
					Input: block.Input,
				},
			})
		}
	}
	return msg
}
