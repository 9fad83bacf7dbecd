/*
Package arbor is an orchestration engine for LLM-driven application
generation: a hierarchical state machine drives a staged pipeline (data
model, handlers, UI), and each stage runs a beam-limited tree search
against a model gateway until a candidate passes the stage's validation
commands.

# Concept

Arbor separates the pipeline definition (Logic) from the run record
(Context) and side-effects (sandbox, gateway, tools). The engine
manages transitions, file accumulation and checkpointing, while your
application ("Host") decides when to confirm a review gate or send
feedback. This Hexagonal Architecture allows Arbor to be embedded in
any interface: CLI, HTTP server, or MCP agent infrastructure.

# Key Features

  - Staged generation: each stage works in a scoped sandbox and must
    pass its validation commands before the pipeline advances.
  - Review gates: the host inspects the produced files and either
    confirms or loops feedback back into the stage.
  - Durable sessions: every rest state is checkpointable and a run can
    resume from its checkpoint in a fresh process.
  - Hexagonal Architecture: the gateway, sandbox, store and prompt
    source are ports with swappable adapters.

# Usage

	package main

	import (
		"context"
		"log"

		"github.com/aretw0/arbor"
	)

	func main() {
		app, err := arbor.New("./template")
		if err != nil {
			log.Fatal(err)
		}

		ctx := context.Background()
		snap, err := app.Sessions().Start(ctx, "", "a todo list app")
		if err != nil {
			log.Fatal(err)
		}

		// Inspect snap.Output, then confirm or send feedback.
		snap, err = app.Sessions().Confirm(ctx, snap.ID)
		if err != nil {
			log.Fatal(err)
		}
		_ = snap
	}
*/
package arbor
