// Package session layers durable, serialized access on top of the
// pipeline: every operation loads the machine from its checkpoint,
// applies one event and checkpoints again, holding a per-session lock
// for the whole cycle so concurrent callers can never fork a run.
package session
