package search

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Check is one independent validation step for a node.
type Check struct {
	Name string
	Run  func(ctx context.Context) (string, error)
}

// RunChecks executes the checks concurrently and joins their failure
// texts in declaration order, so feedback is deterministic regardless
// of completion order. An empty return means every check passed.
func RunChecks(ctx context.Context, checks []Check) (string, error) {
	texts := make([]string, len(checks))

	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		g.Go(func() error {
			text, err := check.Run(gctx)
			if err != nil {
				return &domain.InfraError{Op: "check " + check.Name, Err: err}
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var failed []string
	for _, text := range texts {
		if text != "" {
			failed = append(failed, text)
		}
	}
	return strings.Join(failed, "\n"), nil
}

// CommandCheck builds a Check that runs argv in the sandbox. A
// non-zero exit (including a command-enforced timeout) is a
// recoverable validation failure carrying the captured output.
func CommandCheck(name string, sb ports.Sandbox, argv []string) Check {
	return Check{
		Name: name,
		Run: func(ctx context.Context) (string, error) {
			res, err := sb.Exec(ctx, argv)
			if err != nil {
				return "", err
			}
			if res.OK() {
				return "", nil
			}
			out := res.Stderr
			if out == "" {
				out = res.Stdout
			}
			return fmt.Sprintf("%s errors:\n%s", name, out), nil
		},
	}
}
