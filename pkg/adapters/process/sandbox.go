// Package process implements the Sandbox port on a local directory
// tree with real command execution.
//
// Writes are allow-listed by path prefix so a stage can only touch the
// files it owns; everything else about the workspace is plain files,
// which keeps the adapter inspectable and easy to seed in tests.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Sandbox is a directory-backed workspace.
type Sandbox struct {
	dir       string
	allowed   []string
	protected []string
	env       []string
	logger    *slog.Logger
	temp      bool
}

// Option configures the sandbox.
type Option func(*Sandbox)

// WithEnv appends environment variables (KEY=VALUE) for Exec.
func WithEnv(env ...string) Option {
	return func(s *Sandbox) {
		s.env = append(s.env, env...)
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sandbox) {
		s.logger = logger
	}
}

// New creates a sandbox rooted at dir. The directory must exist; it is
// typically a copy of a project template.
func New(dir string, opts ...Option) *Sandbox {
	s := &Sandbox{
		dir:    dir,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the backing directory.
func (s *Sandbox) Dir() string {
	return s.dir
}

// WriteFile stores content under path, honoring the permission rules.
func (s *Sandbox) WriteFile(ctx context.Context, path, content string) error {
	clean, err := s.resolve(path)
	if err != nil {
		return err
	}
	if !s.writable(path) {
		return fmt.Errorf("path not allowed: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	return os.WriteFile(clean, []byte(content), 0o644)
}

// ReadFile returns the content stored under path.
func (s *Sandbox) ReadFile(ctx context.Context, path string) (string, error) {
	clean, err := s.resolve(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(clean)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Exec runs argv in the sandbox directory. A non-zero exit is reported
// through the result; only broken plumbing produces an error.
func (s *Sandbox) Exec(ctx context.Context, argv []string) (domain.ExecResult, error) {
	if len(argv) == 0 {
		return domain.ExecResult{}, errors.New("exec: empty argv")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = s.dir
	cmd.Env = append(cmd.Environ(), s.env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	s.logger.Debug("exec", "argv", argv, "dir", s.dir)
	err := cmd.Run()

	result := domain.ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("exec %s: %w", argv[0], err)
	}
	return result, nil
}

// Clone copies the whole file tree into a fresh temporary directory.
// The copy inherits env and permission rules but shares no state.
func (s *Sandbox) Clone(ctx context.Context) (ports.Sandbox, error) {
	dst, err := os.MkdirTemp("", "arbor-sandbox-")
	if err != nil {
		return nil, fmt.Errorf("clone sandbox: %w", err)
	}
	if err := os.CopyFS(dst, os.DirFS(s.dir)); err != nil {
		return nil, fmt.Errorf("clone sandbox: %w", err)
	}
	clone := *s
	clone.dir = dst
	clone.temp = true
	return &clone, nil
}

// Remove deletes the backing directory of a clone so stage workspaces
// do not pile up under the temp dir. On the base sandbox it is a
// no-op.
func (s *Sandbox) Remove() error {
	if !s.temp {
		return nil
	}
	return os.RemoveAll(s.dir)
}

// Permissions returns a view restricted to the given path prefixes.
// The view shares the underlying directory; combine with Clone for a
// fully independent scope.
func (s *Sandbox) Permissions(allowed, protected []string) ports.Sandbox {
	scoped := *s
	scoped.allowed = append([]string(nil), allowed...)
	scoped.protected = append([]string(nil), protected...)
	return &scoped
}

// resolve validates the relative path and anchors it under the root.
func (s *Sandbox) resolve(path string) (string, error) {
	if path == "" || !filepath.IsLocal(path) {
		return "", fmt.Errorf("invalid path: %q", path)
	}
	return filepath.Join(s.dir, filepath.FromSlash(path)), nil
}

// writable applies the protected list first, then the allow list. An
// empty allow list permits everything not protected.
func (s *Sandbox) writable(path string) bool {
	for _, rule := range s.protected {
		if matchRule(path, rule) {
			return false
		}
	}
	if len(s.allowed) == 0 {
		return true
	}
	for _, rule := range s.allowed {
		if matchRule(path, rule) {
			return true
		}
	}
	return false
}

// matchRule treats rules ending in "/" as directory prefixes and
// everything else as exact file paths.
func matchRule(path, rule string) bool {
	if strings.HasSuffix(rule, "/") {
		return strings.HasPrefix(path, rule)
	}
	return path == rule
}
