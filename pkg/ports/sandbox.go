package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// Sandbox is the mutable file set and command-execution surface a
// generation stage works against. One pipeline run owns its sandbox
// exclusively; stages scope permissions on a Clone so sibling stages
// never observe each other's writes.
//
// Commands are expected to enforce their own timeouts and surface them
// as a non-zero exit, not by hanging the round.
type Sandbox interface {
	// WriteFile stores content under the given relative path, honoring
	// the allowed/protected rules of this sandbox.
	WriteFile(ctx context.Context, path, content string) error

	// ReadFile returns the content stored under path.
	ReadFile(ctx context.Context, path string) (string, error)

	// Exec runs argv inside the sandbox and captures its outcome.
	// A non-zero exit is reported via ExecResult, not an error; the
	// error return is reserved for broken execution plumbing.
	Exec(ctx context.Context, argv []string) (domain.ExecResult, error)

	// Clone returns an independent copy of the sandbox's file state.
	Clone(ctx context.Context) (Sandbox, error)

	// Permissions returns a view of this sandbox restricted to the
	// given path prefixes. An empty allowed list permits everything
	// not protected.
	Permissions(allowed, protected []string) Sandbox
}
