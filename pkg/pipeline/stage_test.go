package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// failWriteSandbox rejects every write. Only WriteFile is reachable
// from the code under test.
type failWriteSandbox struct{ ports.Sandbox }

func (failWriteSandbox) WriteFile(context.Context, string, string) error {
	return errors.New("disk full")
}

func TestRestoreNodeSurfacesWriteFailure(t *testing.T) {
	node := domain.NewNode([]domain.Message{domain.UserText("build it")}, false, "handlers")
	node.Files["schema/schema.sql"] = "create table todos (id integer);"

	err := restoreNode(context.Background(), failWriteSandbox{}, node)
	require.Error(t, err)

	var infra *domain.InfraError
	require.ErrorAs(t, err, &infra)
	assert.Contains(t, err.Error(), "schema/schema.sql")
	assert.Contains(t, err.Error(), "disk full")
}
