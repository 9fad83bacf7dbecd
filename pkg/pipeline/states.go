package pipeline

import (
	"context"
	"fmt"
	"maps"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/statechart"
)

// Event types accepted by the machine.
const (
	EventConfirm  = "CONFIRM"
	EventFeedback = "FEEDBACK"
)

// State IDs of the pipeline machine.
const (
	StateDataModel         = "data_model_generation"
	StateReviewDataModel   = "review_data_model"
	StateDataModelFeedback = "data_model_apply_feedback"
	StateHandlers          = "handlers_generation"
	StateReviewHandlers    = "review_handlers"
	StateHandlersFeedback  = "handlers_apply_feedback"
	StateUI                = "ui_generation"
	StateReviewUI          = "review_ui"
	StateUIFeedback        = "ui_apply_feedback"
	StateApplyFeedback     = "apply_feedback"
	StateComplete          = "complete"
	StateFailure           = "failure"
)

// Services are the four stage services the machine invokes. Each slot
// is a Stage in production; tests substitute ServiceFuncs.
type Services struct {
	DataModel statechart.Service
	Handlers  statechart.Service
	UI        statechart.Service
	Edit      statechart.Service
}

// updateFiles merges the winning node's trajectory files into the
// context. Deletions were already dropped during the merge.
func updateFiles(_ context.Context, c *Context, v any) error {
	result, ok := v.(*domain.Node)
	if !ok {
		return fmt.Errorf("unexpected stage result type %T", v)
	}
	for path, content := range result.TrajectoryFiles() {
		c.Files[path] = content
	}
	return nil
}

// setError records the invocation failure so the host can distinguish
// a recoverable search exhaustion from broken infrastructure.
func setError(_ context.Context, c *Context, v any) error {
	err, ok := v.(error)
	if !ok {
		return fmt.Errorf("unexpected error value type %T", v)
	}
	c.Error = err.Error()
	c.ErrorKind = domain.ErrorKind(err)
	return nil
}

// MakeStates builds the pipeline state tree: three generation stages in
// sequence, each gated by a review state with a stage-scoped feedback
// loop, plus a whole-app edit loop reachable from anywhere via the root
// FEEDBACK mapping. Failure is a sink.
func MakeStates(svcs Services) *statechart.State[*Context] {
	invoking := func(svc statechart.Service, input func(*Context) any, done string) *statechart.State[*Context] {
		return &statechart.State[*Context]{
			Invoke: &statechart.Invocation[*Context]{
				Src:     svc,
				Input:   input,
				OnDone:  statechart.Arrow[*Context]{Target: done, Actions: []statechart.Action[*Context]{updateFiles}},
				OnError: statechart.Arrow[*Context]{Target: StateFailure, Actions: []statechart.Action[*Context]{setError}},
			},
		}
	}

	return &statechart.State[*Context]{
		On: map[string]string{
			EventConfirm:  StateDataModel,
			EventFeedback: StateApplyFeedback,
		},
		States: map[string]*statechart.State[*Context]{
			StateDataModel: invoking(svcs.DataModel, func(c *Context) any {
				// The data model starts from a clean slate.
				return StageInput{Prompt: c.promptOrFeedback()}
			}, StateReviewDataModel),

			StateReviewDataModel: {
				On: map[string]string{
					EventConfirm:  StateHandlers,
					EventFeedback: StateDataModelFeedback,
				},
			},

			StateDataModelFeedback: invoking(svcs.DataModel, func(c *Context) any {
				return StageInput{Files: maps.Clone(c.Files), Prompt: c.Feedback}
			}, StateReviewDataModel),

			StateHandlers: invoking(svcs.Handlers, func(c *Context) any {
				return StageInput{Files: maps.Clone(c.Files), Prompt: c.promptOrFeedback()}
			}, StateReviewHandlers),

			StateReviewHandlers: {
				On: map[string]string{
					EventConfirm:  StateUI,
					EventFeedback: StateHandlersFeedback,
				},
			},

			StateHandlersFeedback: invoking(svcs.Handlers, func(c *Context) any {
				return StageInput{Files: maps.Clone(c.Files), Prompt: c.Feedback}
			}, StateReviewHandlers),

			StateUI: invoking(svcs.UI, func(c *Context) any {
				return StageInput{Files: maps.Clone(c.Files), Prompt: c.promptOrFeedback()}
			}, StateReviewUI),

			StateReviewUI: {
				On: map[string]string{
					EventConfirm:  StateComplete,
					EventFeedback: StateUIFeedback,
				},
			},

			StateUIFeedback: invoking(svcs.UI, func(c *Context) any {
				return StageInput{Files: maps.Clone(c.Files), Prompt: c.Feedback}
			}, StateReviewUI),

			StateApplyFeedback: invoking(svcs.Edit, func(c *Context) any {
				return StageInput{Files: maps.Clone(c.Files), Prompt: c.Prompt, Feedback: c.Feedback}
			}, StateComplete),

			StateComplete: {
				On: map[string]string{
					EventFeedback: StateApplyFeedback,
				},
			},

			StateFailure: {},
		},
	}
}
