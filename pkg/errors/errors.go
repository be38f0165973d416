// Package errors provides the standardized error type for PromptFlow.
//
// ContextualError records which component failed, which operation it was
// running, and the underlying cause. Every component maps to one kind of the
// error taxonomy, exposed as a sentinel so callers can branch on the kind:
//
//	err := errors.New(errors.ComponentFlow, "PrepareFlow", cause)
//	if stderrors.Is(err, errors.ErrWorkflow) { ... }
//
// AWS API failures keep their HTTP status code through FromAWS.
package errors

import (
	stderrors "errors"
	"fmt"

	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// Components that produce errors. Each maps to one taxonomy kind.
const (
	ComponentInfra   = "infra"
	ComponentStore   = "store"
	ComponentRole    = "iamrole"
	ComponentFlow    = "flow"
	ComponentInvoke  = "invoke"
	ComponentStream  = "stream"
	ComponentNotify  = "notify"
	ComponentConfig  = "config"
	ComponentFlowDef = "flowdef"
)

// Taxonomy kinds.
var (
	ErrProvisioning = stderrors.New("provisioning error")
	ErrStorage      = stderrors.New("storage error")
	ErrRole         = stderrors.New("role error")
	ErrWorkflow     = stderrors.New("workflow error")
	ErrStream       = stderrors.New("stream error")
	ErrNotification = stderrors.New("notification error")
	ErrConfig       = stderrors.New("configuration error")
)

var componentKinds = map[string]error{
	ComponentInfra:   ErrProvisioning,
	ComponentStore:   ErrStorage,
	ComponentRole:    ErrRole,
	ComponentFlow:    ErrWorkflow,
	ComponentInvoke:  ErrWorkflow,
	ComponentFlowDef: ErrWorkflow,
	ComponentStream:  ErrStream,
	ComponentNotify:  ErrNotification,
	ComponentConfig:  ErrConfig,
}

// ContextualError is a structured error type that provides consistent context
// about where and why an error occurred.
type ContextualError struct {
	// Component identifies the module that produced the error (e.g. "flow", "store").
	Component string

	// Operation describes what was being done when the error occurred.
	Operation string

	// StatusCode is the HTTP status code of a failed AWS call, if known.
	StatusCode int

	// Details holds optional structured metadata about the error.
	Details map[string]any

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a ContextualError with the given component, operation, and cause.
func New(component, operation string, cause error) *ContextualError {
	return &ContextualError{
		Component: component,
		Operation: operation,
		Cause:     cause,
	}
}

// FromAWS wraps an AWS SDK error and copies the HTTP status code when the
// SDK exposes one.
func FromAWS(component, operation string, cause error) *ContextualError {
	e := New(component, operation, cause)
	var respErr *smithyhttp.ResponseError
	if stderrors.As(cause, &respErr) {
		e.StatusCode = respErr.HTTPStatusCode()
	}
	return e
}

// Error returns a human-readable representation of the error.
func (e *ContextualError) Error() string {
	base := fmt.Sprintf("[%s] %s", e.Component, e.Operation)

	if e.StatusCode != 0 {
		base += fmt.Sprintf(" (status %d)", e.StatusCode)
	}

	if e.Cause != nil {
		base += ": " + e.Cause.Error()
	}

	return base
}

// Unwrap returns the underlying cause, enabling use with errors.Is and errors.As.
func (e *ContextualError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the taxonomy kind of this error's component.
func (e *ContextualError) Is(target error) bool {
	kind, ok := componentKinds[e.Component]
	return ok && kind == target
}

// Kind returns the taxonomy sentinel for the error's component, or nil.
func (e *ContextualError) Kind() error {
	return componentKinds[e.Component]
}

// WithStatusCode sets the status code and returns the same error.
func (e *ContextualError) WithStatusCode(code int) *ContextualError {
	e.StatusCode = code
	return e
}

// WithDetails sets the details map and returns the same error.
func (e *ContextualError) WithDetails(details map[string]any) *ContextualError {
	e.Details = details
	return e
}

// Step returns the Operation of the outermost ContextualError in err's chain.
func Step(err error) string {
	var ce *ContextualError
	if stderrors.As(err, &ce) {
		return ce.Operation
	}
	return ""
}
