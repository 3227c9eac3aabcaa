// Package fault defines the error taxonomy shared by the preflight,
// reasoning, persistence, and orchestrator layers. Every boundary wraps
// its failures in a Kind so callers can route on the class of fault
// without string matching.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a fault.
type Kind int

const (
	// Unknown is the zero Kind for errors that were never classified.
	Unknown Kind = iota
	// Validation covers malformed user input (repo URL, branch). No
	// network call is made once a Validation fault is raised.
	Validation
	// Network covers transport failures: clone, file reads, reasoning
	// calls that never produced a usable response.
	Network
	// MalformedResponse covers reasoning-engine output that fails to
	// parse or violates the expected schema.
	MalformedResponse
	// Persistence covers snapshot store read/write failures. These are
	// always swallowed by the orchestrator and never change run outcome.
	Persistence
	// Pipeline covers any uncaught failure during an active run phase.
	// It terminates the run.
	Pipeline
)

// String returns the taxonomy name for the kind.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Network:
		return "network"
	case MalformedResponse:
		return "malformed_response"
	case Persistence:
		return "persistence"
	case Pipeline:
		return "pipeline"
	default:
		return "unknown"
	}
}

// Error is a classified fault. Op names the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s fault in %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s fault in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a fault with a formatted message.
func New(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap classifies an existing error. A nil err returns nil. If err is
// already a classified fault its kind is preserved and only the op
// chain grows.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return &Error{Kind: fe.Kind, Op: op, Err: err}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from an error chain, or Unknown.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return Unknown
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
