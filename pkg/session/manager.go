package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/pipeline"
	"github.com/aretw0/arbor/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Snapshot is the externally visible view of a session after an
// operation settled.
type Snapshot struct {
	ID     string
	State  string
	Done   bool
	Files  map[string]string
	Output map[string]any
	Error  string
	Kind   string
}

// Manager runs pipeline sessions against a checkpoint store. Locks are
// reference counted so idle sessions leave nothing behind.
type Manager struct {
	store ports.CheckpointStore
	cfg   pipeline.Config

	mu    sync.Mutex
	locks map[string]*lockEntry

	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager over a checkpoint store and the
// pipeline configuration used to rebuild machines.
func NewManager(store ports.CheckpointStore, cfg pipeline.Config, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		cfg:    cfg,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference
// count. The caller must lock entry.mu and call release afterwards.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry once it
// reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// withLock executes fn while holding the session lock.
func (m *Manager) withLock(sessionID string, fn func() error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()
	return fn()
}

// Start creates a new session for a prompt and runs the first stage.
// An empty sessionID gets a generated one. The checkpoint lands in the
// store before Start returns.
func (m *Manager) Start(ctx context.Context, sessionID, prompt string) (Snapshot, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var snap Snapshot
	err := m.withLock(sessionID, func() error {
		if _, err := m.store.Load(ctx, sessionID); err == nil {
			return fmt.Errorf("session %s already exists", sessionID)
		} else if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		p, err := pipeline.Start(ctx, m.cfg, prompt)
		if err != nil {
			return err
		}
		snap = m.snapshot(sessionID, p)
		return m.save(ctx, sessionID, p)
	})
	return snap, err
}

// Confirm loads the session, advances past its review gate and
// checkpoints the result.
func (m *Manager) Confirm(ctx context.Context, sessionID string) (Snapshot, error) {
	return m.apply(ctx, sessionID, func(p *pipeline.Pipeline) error {
		return p.Confirm(ctx)
	})
}

// Feedback loads the session, routes the feedback text into the
// matching revision stage and checkpoints the result.
func (m *Manager) Feedback(ctx context.Context, sessionID, text string) (Snapshot, error) {
	return m.apply(ctx, sessionID, func(p *pipeline.Pipeline) error {
		return p.Feedback(ctx, text)
	})
}

// Status reports the session without sending any event.
func (m *Manager) Status(ctx context.Context, sessionID string) (Snapshot, error) {
	return m.apply(ctx, sessionID, nil)
}

// Delete removes the session checkpoint.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.withLock(sessionID, func() error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// apply loads the pipeline, runs op (when non-nil) and saves the new
// checkpoint, all under the session lock.
func (m *Manager) apply(ctx context.Context, sessionID string, op func(*pipeline.Pipeline) error) (Snapshot, error) {
	var snap Snapshot
	err := m.withLock(sessionID, func() error {
		cp, err := m.store.Load(ctx, sessionID)
		if err != nil {
			return err
		}
		p, err := pipeline.Load(ctx, m.cfg, cp)
		if err != nil {
			return err
		}
		if op != nil {
			if err := op(p); err != nil {
				return err
			}
			if err := m.save(ctx, sessionID, p); err != nil {
				return err
			}
		}
		snap = m.snapshot(sessionID, p)
		return nil
	})
	return snap, err
}

func (m *Manager) save(ctx context.Context, sessionID string, p *pipeline.Pipeline) error {
	cp, err := p.Checkpoint()
	if err != nil {
		return err
	}
	if err := m.store.Save(ctx, sessionID, cp); err != nil {
		return fmt.Errorf("failed to save session %s: %w", sessionID, err)
	}
	return nil
}

func (m *Manager) snapshot(sessionID string, p *pipeline.Pipeline) Snapshot {
	msg, kind := p.Err()
	return Snapshot{
		ID:     sessionID,
		State:  p.Current(),
		Done:   p.Done(),
		Files:  p.Files(),
		Output: p.Output(),
		Error:  msg,
		Kind:   kind,
	}
}
