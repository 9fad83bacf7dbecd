// Package memory implements ports.CheckpointStore in memory.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/arbor/pkg/domain"
)

// Store holds checkpoints in a map. Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]domain.Checkpoint
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Checkpoint),
	}
}

// Save persists the checkpoint in memory.
func (s *Store) Save(ctx context.Context, sessionID string, cp domain.Checkpoint) error {
	// Deep copy so the caller can't mutate stored state afterwards.
	stored := domain.Checkpoint{
		StatePath: slices.Clone(cp.StatePath),
		Context:   slices.Clone(cp.Context),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = stored
	return nil
}

// Load retrieves the checkpoint from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.data[sessionID]
	if !ok {
		return domain.Checkpoint{}, domain.ErrSessionNotFound
	}

	return domain.Checkpoint{
		StatePath: slices.Clone(cp.StatePath),
		Context:   slices.Clone(cp.Context),
	}, nil
}

// Delete removes the checkpoint.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the known sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}
