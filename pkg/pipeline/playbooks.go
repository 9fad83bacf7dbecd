package pipeline

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/pkg/ports"
)

// Stage names used by the default pipeline.
const (
	StageNameDataModel = "data_model"
	StageNameHandlers  = "handlers"
	StageNameUI        = "ui"
	StageNameEdit      = "edit"
)

// StaticPlaybooks is a PromptSource backed by an in-memory map, used
// for the compiled-in defaults and by tests.
type StaticPlaybooks map[string]ports.Playbook

// Playbook implements ports.PromptSource.
func (s StaticPlaybooks) Playbook(_ context.Context, stage string) (ports.Playbook, error) {
	pb, ok := s[stage]
	if !ok {
		return ports.Playbook{}, fmt.Errorf("no playbook for stage %q", stage)
	}
	return pb, nil
}

// DefaultPlaybooks returns the compiled-in stage playbooks. They target
// a generic three-layer web application (schema, API handlers, UI) and
// carry no validation commands; deployments configure real check
// commands for their template's toolchain.
func DefaultPlaybooks() ports.PromptSource {
	return StaticPlaybooks{
		StageNameDataModel: {
			Stage: StageNameDataModel,
			SystemPrompt: "You design the data layer of a web application. " +
				"Write the database schema and model definitions with the write_file tool, " +
				"then call complete.",
			UserTemplate:  "{{context}}\n\nDesign the data model for the following application:\n{{prompt}}",
			AllowedPaths:  []string{"schema/"},
			RelevantPaths: []string{"README.md"},
		},
		StageNameHandlers: {
			Stage: StageNameHandlers,
			SystemPrompt: "You implement the API layer of a web application on top of an " +
				"existing data model. Write route handlers with the write_file tool, " +
				"then call complete. Do not modify the schema.",
			UserTemplate:   "{{context}}\n\nImplement the API handlers for the following application:\n{{prompt}}",
			AllowedPaths:   []string{"api/"},
			ProtectedPaths: []string{"schema/"},
			RelevantPaths:  []string{"README.md", "schema/schema.sql"},
		},
		StageNameUI: {
			Stage: StageNameUI,
			SystemPrompt: "You implement the user interface of a web application against an " +
				"existing API. Write UI pages with the write_file tool, then call complete. " +
				"Do not modify the schema or the handlers.",
			UserTemplate:   "{{context}}\n\nImplement the UI for the following application:\n{{prompt}}",
			AllowedPaths:   []string{"ui/"},
			ProtectedPaths: []string{"schema/", "api/"},
			RelevantPaths:  []string{"README.md", "schema/schema.sql"},
		},
		StageNameEdit: {
			Stage: StageNameEdit,
			SystemPrompt: "You revise an existing web application. Apply the requested change " +
				"with the write_file tool, keeping unrelated files untouched, then call complete.",
			UserTemplate: "{{context}}\n\nThe application was generated from this request:\n{{prompt}}\n\n" +
				"Apply the following change:\n{{feedback}}",
			RelevantPaths: []string{"README.md", "schema/schema.sql"},
		},
	}
}
