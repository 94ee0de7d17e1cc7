package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorClass classifies an engine error for handling policy. The engine
// never lets any class propagate into host code paths; the classes decide
// what gets logged and counted.
type ErrorClass string

const (
	// ErrorClassCapability indicates the backdrop primitive is not
	// available on this platform. Permanent for the process lifetime;
	// the engine disables itself and never re-probes.
	ErrorClassCapability ErrorClass = "capability"

	// ErrorClassMutation indicates the host declined a property set on a
	// node. Caught at the call site, logged, and skipped; never aborts
	// the enclosing reconciliation pass.
	ErrorClassMutation ErrorClass = "mutation"

	// ErrorClassStale indicates a container or node was destroyed between
	// scheduling and execution. Treated as a normal cancellation, never
	// surfaced as a failure.
	ErrorClassStale ErrorClass = "stale"

	// ErrorClassInternal indicates a defect inside the engine itself.
	ErrorClassInternal ErrorClass = "internal"
)

// Error is a classified engine error with context.
type Error struct {
	// Class is the error classification for handling policy.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Container is the container identity involved, if applicable.
	Container string `json:"container,omitempty"`

	// Node is the node identity involved, if applicable.
	Node string `json:"node,omitempty"`

	// Op is the operation being performed when the error occurred.
	Op string `json:"op,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string
	if e.Container != "" {
		parts = append(parts, "container="+e.Container)
	}
	if e.Node != "" {
		parts = append(parts, "node="+e.Node)
	}
	if e.Op != "" {
		parts = append(parts, "op="+e.Op)
	}

	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if len(parts) > 0 {
		msg += " (" + strings.Join(parts, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// NewCapabilityError creates an error reporting the backdrop primitive
// unavailable.
func NewCapabilityError(message string, err error) *Error {
	return &Error{Class: ErrorClassCapability, Message: message, Err: err}
}

// NewMutationError creates an error reporting a host-rejected property set.
func NewMutationError(message string, err error) *Error {
	return &Error{Class: ErrorClassMutation, Message: message, Err: err}
}

// NewStaleError creates an error reporting a dead container or node
// reference.
func NewStaleError(message string) *Error {
	return &Error{Class: ErrorClassStale, Message: message}
}

// NewInternalError creates an error reporting an engine defect.
func NewInternalError(message string, err error) *Error {
	return &Error{Class: ErrorClassInternal, Message: message, Err: err}
}

// WithContainer adds container context to an error.
func (e *Error) WithContainer(id string) *Error {
	e.Container = id
	return e
}

// WithNode adds node context to an error.
func (e *Error) WithNode(id string) *Error {
	e.Node = id
	return e
}

// WithOp adds operation context to an error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// IsCapabilityError reports whether err is classified as a capability
// failure.
func IsCapabilityError(err error) bool {
	return hasClass(err, ErrorClassCapability)
}

// IsMutationRejected reports whether err is a host-declined mutation.
func IsMutationRejected(err error) bool {
	return hasClass(err, ErrorClassMutation)
}

// IsStale reports whether err is a dead-reference cancellation.
func IsStale(err error) bool {
	return hasClass(err, ErrorClassStale)
}

func hasClass(err error, class ErrorClass) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}
