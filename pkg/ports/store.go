package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// CheckpointStore persists machine checkpoints per session. This
// enables durable "stop & resume" pipeline runs.
type CheckpointStore interface {
	// Save persists the checkpoint for a given session ID.
	Save(ctx context.Context, sessionID string, cp domain.Checkpoint) error

	// Load retrieves the checkpoint for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (domain.Checkpoint, error)

	// Delete removes the checkpoint for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the known session IDs.
	List(ctx context.Context) ([]string, error)
}
