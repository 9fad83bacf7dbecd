package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// CompletionRequest is one call against the model.
type CompletionRequest struct {
	System    string
	Messages  []domain.Message
	Tools     []domain.Tool
	MaxTokens int
}

// Gateway produces assistant turns from a transcript. Implementations
// must tolerate highly concurrent invocation: a search round dispatches
// every candidate at once. Identical-input non-determinism is expected
// and is what makes beam branches diverge.
type Gateway interface {
	Complete(ctx context.Context, req CompletionRequest) (domain.Message, error)
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, req CompletionRequest) (domain.Message, error)

// Complete implements Gateway.
func (f GatewayFunc) Complete(ctx context.Context, req CompletionRequest) (domain.Message, error) {
	return f(ctx, req)
}
