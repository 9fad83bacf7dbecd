// Package domain contains the core value types shared by the Arbor
// engine and its adapters: conversation messages, search tree nodes,
// tool calls, checkpoints and the error taxonomy.
//
// The package has no dependencies on other Arbor packages so that
// adapters and hosts can exchange these types freely.
package domain
