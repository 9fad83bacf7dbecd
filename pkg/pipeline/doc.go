// Package pipeline wires the statechart and the search engine into the
// concrete app-generation flow: data model, handlers and UI stages in
// sequence, each followed by a review gate, with feedback loops back
// into the stage that produced the work under review.
//
// The Pipeline facade is the host-facing surface. It owns the machine,
// translates CONFIRM/FEEDBACK into events, and exposes the accumulated
// files, the active state and checkpoints.
package pipeline
