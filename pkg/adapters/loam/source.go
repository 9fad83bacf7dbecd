// Package loam loads stage playbooks from a loam document repository,
// so prompt engineering lives in versioned markdown rather than in the
// binary. The document body is the user template; everything else sits
// in the frontmatter.
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/arbor/pkg/ports"
)

// PlaybookMetadata is the frontmatter shape of a playbook document.
type PlaybookMetadata struct {
	Stage          string        `json:"stage" mapstructure:"stage"`
	System         string        `json:"system" mapstructure:"system"`
	AllowedPaths   []string      `json:"allowed_paths" mapstructure:"allowed_paths"`
	ProtectedPaths []string      `json:"protected_paths" mapstructure:"protected_paths"`
	RelevantPaths  []string      `json:"relevant_paths" mapstructure:"relevant_paths"`
	Checks         []CheckConfig `json:"checks" mapstructure:"checks"`
}

// CheckConfig is one validation command in the frontmatter.
type CheckConfig struct {
	Name string   `json:"name" mapstructure:"name"`
	Argv []string `json:"argv" mapstructure:"argv"`
}

// Source is a ports.PromptSource over a loam repository. Documents are
// looked up by stage name; loam resolves "data_model" to data_model.md.
type Source struct {
	repo *loam.TypedRepository[PlaybookMetadata]
}

// New creates a source over an already initialized typed repository.
func New(repo *loam.TypedRepository[PlaybookMetadata]) *Source {
	return &Source{repo: repo}
}

// Open initializes a read-only strict loam repository at path and
// returns a source over it. Strict mode keeps frontmatter numerics
// unambiguous; the pipeline only ever reads playbooks.
func Open(path string) (*Source, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[PlaybookMetadata](repo)), nil
}

// Playbook implements ports.PromptSource.
func (s *Source) Playbook(ctx context.Context, stage string) (ports.Playbook, error) {
	doc, err := s.repo.Get(ctx, stage)
	if err != nil {
		return ports.Playbook{}, fmt.Errorf("loam get failed for %s: %w", stage, err)
	}

	meta := doc.Data
	name := meta.Stage
	if name == "" {
		name = trimExtension(doc.ID)
	}

	checks := make([]ports.PlaybookCheck, 0, len(meta.Checks))
	for _, c := range meta.Checks {
		if len(c.Argv) == 0 {
			return ports.Playbook{}, fmt.Errorf("playbook %s: check %q has no command", name, c.Name)
		}
		checks = append(checks, ports.PlaybookCheck{Name: c.Name, Argv: c.Argv})
	}

	return ports.Playbook{
		Stage:          name,
		SystemPrompt:   meta.System,
		UserTemplate:   strings.TrimSpace(doc.Content),
		AllowedPaths:   meta.AllowedPaths,
		ProtectedPaths: meta.ProtectedPaths,
		RelevantPaths:  meta.RelevantPaths,
		Checks:         checks,
	}, nil
}

func trimExtension(id string) string {
	return strings.TrimSuffix(id, filepath.Ext(id))
}
