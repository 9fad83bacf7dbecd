package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/internal/testutils"
	"github.com/aretw0/arbor/pkg/ports"
)

const dataModelDoc = `---
stage: data_model
system: You design the data layer.
allowed_paths:
  - schema/
protected_paths:
  - api/
relevant_paths:
  - README.md
checks:
  - name: typecheck
    argv: ["tsc", "--noEmit"]
---
{{context}}

Design the data model for:
{{prompt}}`

func newSource(t *testing.T, docs map[string]string) *Source {
	t.Helper()
	_, repo := testutils.SetupTestRepo(t)

	ctx := context.Background()
	for id, content := range docs {
		require.NoError(t, repo.Save(ctx, core.Document{ID: id, Content: content}))
	}
	return New(loam.NewTypedRepository[PlaybookMetadata](repo))
}

func TestSourcePlaybook(t *testing.T) {
	src := newSource(t, map[string]string{"data_model.md": dataModelDoc})

	pb, err := src.Playbook(context.Background(), "data_model")
	require.NoError(t, err)

	assert.Equal(t, "data_model", pb.Stage)
	assert.Equal(t, "You design the data layer.", pb.SystemPrompt)
	assert.Equal(t, []string{"schema/"}, pb.AllowedPaths)
	assert.Equal(t, []string{"api/"}, pb.ProtectedPaths)
	assert.Equal(t, []string{"README.md"}, pb.RelevantPaths)

	require.Len(t, pb.Checks, 1)
	assert.Equal(t, "typecheck", pb.Checks[0].Name)
	assert.Equal(t, []string{"tsc", "--noEmit"}, pb.Checks[0].Argv)

	// The document body is the user template, without surrounding blank lines.
	assert.True(t, len(pb.UserTemplate) > 0)
	assert.Equal(t, byte('{'), pb.UserTemplate[0])
	assert.Contains(t, pb.UserTemplate, "{{context}}")
	assert.Contains(t, pb.UserTemplate, "{{prompt}}")
}

func TestSourceStageDefaultsToDocumentID(t *testing.T) {
	src := newSource(t, map[string]string{
		"handlers.md": "---\nsystem: You implement handlers.\n---\nWrite the handlers.",
	})

	pb, err := src.Playbook(context.Background(), "handlers")
	require.NoError(t, err)
	assert.Equal(t, "handlers", pb.Stage)
	assert.Equal(t, "Write the handlers.", pb.UserTemplate)
}

func TestSourceMissingStage(t *testing.T) {
	src := newSource(t, nil)

	_, err := src.Playbook(context.Background(), "handlers")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handlers")
}

func TestSourceRejectsCheckWithoutCommand(t *testing.T) {
	src := newSource(t, map[string]string{
		"ui.md": "---\nstage: ui\nchecks:\n  - name: lint\n---\nBuild the UI.",
	})

	_, err := src.Playbook(context.Background(), "ui")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command")
}

func TestOpenReadsExistingDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "edit.md"),
		[]byte("---\nstage: edit\nsystem: You revise the app.\n---\nApply:\n{{feedback}}"), 0o644))

	src, err := Open(dir)
	require.NoError(t, err)

	pb, err := src.Playbook(context.Background(), "edit")
	require.NoError(t, err)
	assert.Equal(t, "edit", pb.Stage)
	assert.Equal(t, "Apply:\n{{feedback}}", pb.UserTemplate)
}

var _ ports.PromptSource = (*Source)(nil)
