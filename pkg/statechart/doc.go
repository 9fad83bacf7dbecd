// Package statechart implements a small hierarchical state machine
// whose states may invoke asynchronous units of work.
//
// Two flavors of state exist. A reactive state only maps external
// events to target states. An invoking state schedules its service on
// entry and transitions automatically on completion or error; chains
// of invoking states run unattended until a reactive (or sink) state
// is reached. From the caller's perspective entry, invocation and the
// resulting transition are one atomic step: Send does not return until
// the machine rests at a state boundary, and a machine at rest can
// always be checkpointed and replayed.
//
// The context type C is user-defined, threaded through every action
// and serialized into checkpoints.
package statechart
