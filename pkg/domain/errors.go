package domain

import (
	"errors"
	"fmt"
)

// ErrUnhandledEvent is returned by the machine when no transition
// matches the event anywhere on the active path. The machine does not
// move; callers may treat this as a no-op.
var ErrUnhandledEvent = errors.New("unhandled event")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrCheckpointInvalid is returned when persisted machine state cannot
// be replayed against the configured state tree. Loading fails fast
// rather than reconstructing a partially valid machine.
var ErrCheckpointInvalid = errors.New("invalid checkpoint")

// Error kinds recorded into the pipeline context by error actions.
// They let hosts distinguish "retry with other parameters" from hard
// infrastructure failures.
const (
	ErrorKindSearchExhausted = "search_exhausted"
	ErrorKindInfra           = "infra"
)

// SearchExhaustedError reports that candidate selection came up empty
// before any node passed validation.
type SearchExhaustedError struct {
	Stage string
}

func (e *SearchExhaustedError) Error() string {
	return fmt.Sprintf("search exhausted in stage %q: no candidates remain", e.Stage)
}

// Kind returns the error kind tag for context recording.
func (e *SearchExhaustedError) Kind() string { return ErrorKindSearchExhausted }

// InfraError wraps a fatal transport or sandbox failure. Unlike
// validation failures these are never fed back into the dialogue.
type InfraError struct {
	Op  string
	Err error
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfraError) Unwrap() error { return e.Err }

// Kind returns the error kind tag for context recording.
func (e *InfraError) Kind() string { return ErrorKindInfra }

// Kinder is implemented by errors that carry a machine-readable kind.
type Kinder interface {
	Kind() string
}

// ErrorKind extracts the kind tag from err, defaulting to infra.
func ErrorKind(err error) string {
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ErrorKindInfra
}
