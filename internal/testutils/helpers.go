// Package testutils carries fixtures shared by adapter tests.
package testutils

import (
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo initializes a Loam repository in a fresh temp
// directory and returns the directory path together with the
// repository. Failures abort the test. t.TempDir already yields an
// absolute path, which Loam requires.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := loam.Init(dir, opts...)
	require.NoError(t, err, "init loam repo in %s", dir)

	return dir, repo
}
